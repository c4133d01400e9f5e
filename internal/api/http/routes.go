package httpapi

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/home-telemetry/netatmo-collector/internal/readings"
	"github.com/home-telemetry/netatmo-collector/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, repo store.Repository, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	app.Get("/netatmo/latest", func(c *fiber.Ctx) error {
		rows, err := repo.LatestByLocation(c.Context())
		if err != nil {
			logger.Error("latest readings query failed", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest readings")
		}
		if rows == nil {
			rows = []store.LatestReading{}
		}
		return c.JSON(fiber.Map{"data": rows})
	})

	app.Get("/netatmo/history", func(c *fiber.Ctx) error {
		var req historyQuery
		req.bind(c)
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, known := readings.ResolveLocationCode(req.RoomID)
		if !known {
			// Deliberate permissive fallback: display callers always get a page.
			logger.Warn("unknown room code, using default location", "roomID", req.RoomID, "location", string(loc))
		}

		span := readings.ResolveSpan(req.DurationSpan)
		rows, err := repo.WindowAggregate(c.Context(), loc, span)
		if err != nil {
			logger.Error("window aggregate query failed", "location", string(loc), "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch reading history")
		}

		// The store returns newest-first; the display contract is
		// chronologically ascending rows.
		reverse(rows)
		if rows == nil {
			rows = []store.BucketRow{}
		}

		return c.JSON(fiber.Map{
			"durationTitle": span.Title,
			"rowCount":      len(rows),
			"rows":          rows,
		})
	})
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	RoomID       string
	DurationSpan string `validate:"omitempty,oneof=hour day week month year"`
}

func (h *historyQuery) bind(c *fiber.Ctx) {
	h.RoomID = c.Query("roomID")
	h.DurationSpan = c.Query("durationSpan")
}

func reverse(rows []store.BucketRow) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
