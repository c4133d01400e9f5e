package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/home-telemetry/netatmo-collector/internal/readings"
)

func setupRepo(t *testing.T) (Repository, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo, db
}

func fptr(v float64) *float64 { return &v }

func testReading(loc readings.Location, device string, ts time.Time) readings.Reading {
	return readings.Reading{
		Time:        ts,
		Sender:      "test",
		DeviceID:    device,
		Location:    loc,
		Battery:     80,
		Temperature: 20,
		Humidity:    50,
		Pressure:    fptr(1010),
		CO2:         fptr(600),
	}
}

func TestInsertAndLatest(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.InsertReading(ctx, testReading(readings.Kitchen, "dev-1", now)); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	rows, err := repo.LatestByLocation(ctx)
	if err != nil {
		t.Fatalf("LatestByLocation: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("LatestByLocation: got %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.Location != string(readings.Kitchen) || got.Battery != 80 || got.Temperature != 20 || got.Humidity != 50 {
		t.Errorf("latest row = %+v, want Kitchen battery=80 temp=20 humidity=50", got)
	}
	if got.Pressure == nil || *got.Pressure != 1010 {
		t.Errorf("latest pressure = %v, want 1010", got.Pressure)
	}
}

func TestLatestPicksNewestPerLocation(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	older := testReading(readings.Kitchen, "dev-1", now.Add(-10*time.Minute))
	older.Temperature = 18
	newer := testReading(readings.Kitchen, "dev-1", now.Add(-1*time.Minute))
	newer.Temperature = 22

	if err := repo.InsertReading(ctx, older); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if err := repo.InsertReading(ctx, newer); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	rows, err := repo.LatestByLocation(ctx)
	if err != nil {
		t.Fatalf("LatestByLocation: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Temperature != 22 {
		t.Errorf("latest temperature = %v, want 22 (the newer reading)", rows[0].Temperature)
	}
}

func TestLatestExcludesStaleReadings(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	stale := testReading(readings.Garden, "dev-2", time.Now().UTC().Add(-2*time.Hour))
	if err := repo.InsertReading(ctx, stale); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	rows, err := repo.LatestByLocation(ctx)
	if err != nil {
		t.Fatalf("LatestByLocation: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d rows, want 0 (reading older than an hour)", len(rows))
	}
}

func TestLatestNullFieldsSurviveRoundTrip(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	garden := testReading(readings.Garden, "dev-2", time.Now().UTC())
	garden.Pressure = nil
	garden.CO2 = nil
	if err := repo.InsertReading(ctx, garden); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	rows, err := repo.LatestByLocation(ctx)
	if err != nil {
		t.Fatalf("LatestByLocation: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Pressure != nil || rows[0].CO2 != nil {
		t.Errorf("garden row = %+v, want nil pressure and co2", rows[0])
	}
}

func TestWindowAggregateAveragesAndOrders(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()

	// Two readings at the same instant land in the same bucket and average.
	a := testReading(readings.Kitchen, "dev-1", now.Add(-5*time.Minute))
	a.Temperature = 20
	b := testReading(readings.Kitchen, "dev-9", now.Add(-5*time.Minute))
	b.Temperature = 22

	// A third reading far enough back to land in an earlier 30-minute bucket.
	c := testReading(readings.Kitchen, "dev-1", now.Add(-80*time.Minute))
	c.Temperature = 10

	for _, r := range []readings.Reading{a, b, c} {
		if err := repo.InsertReading(ctx, r); err != nil {
			t.Fatalf("InsertReading: %v", err)
		}
	}

	rows, err := repo.WindowAggregate(ctx, readings.Kitchen, readings.ResolveSpan("day"))
	if err != nil {
		t.Fatalf("WindowAggregate: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d buckets, want 2", len(rows))
	}

	// Newest-first ordering.
	if !rows[0].Bucket.After(rows[1].Bucket) {
		t.Errorf("buckets not in descending order: %v then %v", rows[0].Bucket, rows[1].Bucket)
	}
	if rows[0].Temperature != 21 {
		t.Errorf("newest bucket temperature = %v, want mean 21", rows[0].Temperature)
	}
	if rows[1].Temperature != 10 {
		t.Errorf("older bucket temperature = %v, want 10", rows[1].Temperature)
	}
}

func TestWindowAggregateFiltersLocation(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := repo.InsertReading(ctx, testReading(readings.Kitchen, "dev-1", now)); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	rows, err := repo.WindowAggregate(ctx, readings.Garden, readings.ResolveSpan("day"))
	if err != nil {
		t.Fatalf("WindowAggregate: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("Garden window: got %d buckets, want 0", len(rows))
	}
}

func TestWindowAggregateEmptyIsNotAnError(t *testing.T) {
	repo, _ := setupRepo(t)

	rows, err := repo.WindowAggregate(context.Background(), readings.Kitchen, readings.ResolveSpan("day"))
	if err != nil {
		t.Fatalf("WindowAggregate on empty store: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d buckets, want 0", len(rows))
	}
}

func TestWindowAggregateLocationIsBound(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	if err := repo.InsertReading(ctx, testReading(readings.Kitchen, "dev-1", time.Now().UTC())); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	// A hostile location string is just data, never query text.
	hostile := readings.Location("Kitchen' OR '1'='1")
	rows, err := repo.WindowAggregate(ctx, hostile, readings.ResolveSpan("hour"))
	if err != nil {
		t.Fatalf("WindowAggregate: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("hostile location matched %d buckets, want 0", len(rows))
	}
}

func TestWindowAggregateNullCO2(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	garden := testReading(readings.Garden, "dev-2", time.Now().UTC())
	garden.Pressure = nil
	garden.CO2 = nil
	if err := repo.InsertReading(ctx, garden); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}

	rows, err := repo.WindowAggregate(ctx, readings.Garden, readings.ResolveSpan("hour"))
	if err != nil {
		t.Fatalf("WindowAggregate: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d buckets, want 1", len(rows))
	}
	if rows[0].CO2 != nil {
		t.Errorf("garden bucket co2 = %v, want nil", rows[0].CO2)
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	ts := time.Now().UTC()
	r := testReading(readings.Kitchen, "dev-1", ts)
	if err := repo.InsertReading(ctx, r); err != nil {
		t.Fatalf("InsertReading: %v", err)
	}
	if err := repo.InsertReading(ctx, r); err == nil {
		t.Fatal("duplicate (time, device_id) insert succeeded, want error")
	}
}
