package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/home-telemetry/netatmo-collector/internal/netatmo"
	"github.com/home-telemetry/netatmo-collector/internal/readings"
	"github.com/home-telemetry/netatmo-collector/internal/store"
)

// SnapshotFetcher is the station client contract: one snapshot in, one
// outcome out.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (netatmo.StationsData, error)
}

// Service runs one poll cycle: fetch a snapshot, normalize it, persist the
// resulting readings. Every failure below the scheduler is contained here.
type Service struct {
	fetcher    SnapshotFetcher
	normalizer *readings.Normalizer
	repo       store.Repository
	logger     *slog.Logger

	fetchTimeout time.Duration
}

// NewService creates a collector Service.
func NewService(fetcher SnapshotFetcher, normalizer *readings.Normalizer, repo store.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:      fetcher,
		normalizer:   normalizer,
		repo:         repo,
		logger:       logger,
		fetchTimeout: 30 * time.Second,
	}
}

// Collect runs one full poll cycle. It never returns an error: a failed
// fetch loses that cycle's data and the next tick proceeds normally.
func (s *Service) Collect(ctx context.Context) {
	cycle := uuid.NewString()
	log := s.logger.With("cycle", cycle)

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	snapshot, err := s.fetcher.FetchSnapshot(fetchCtx)
	if err != nil {
		log.Error("station fetch failed, skipping cycle", "error", err)
		return
	}

	recs := s.normalizer.Normalize(snapshot)
	if len(recs) == 0 {
		log.Warn("no readings extracted from snapshot")
		return
	}

	// Per-location writes are independent; one failing write must not block
	// or abort the others.
	var wg sync.WaitGroup
	for _, rec := range recs {
		wg.Add(1)
		go func(rec readings.Reading) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					log.Error("write panicked", "device", rec.DeviceID, "location", string(rec.Location), "panic", p)
				}
			}()

			if err := s.repo.InsertReading(ctx, rec); err != nil {
				log.Error("failed to save reading", "device", rec.DeviceID, "location", string(rec.Location), "error", err)
				return
			}
			log.Info("saved reading", "location", string(rec.Location))
		}(rec)
	}
	wg.Wait()

	log.Info("collection cycle complete", "readings", len(recs))
}
