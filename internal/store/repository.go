package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/home-telemetry/netatmo-collector/internal/readings"
)

// ErrRowCount is returned when an insert did not affect exactly one row.
var ErrRowCount = errors.New("insert affected unexpected number of rows")

// timeLayout is SQLite's canonical datetime text format. Storing it keeps
// string comparison against datetime('now', ...) well ordered.
const timeLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS netatmo (
  time        TEXT    NOT NULL,
  sender      TEXT    NOT NULL,
  device_id   TEXT    NOT NULL,
  location    TEXT    NOT NULL,
  battery     INTEGER NOT NULL,
  temperature REAL    NOT NULL,
  humidity    REAL    NOT NULL,
  pressure    REAL,
  co2         REAL,
  PRIMARY KEY (time, device_id)
);
CREATE INDEX IF NOT EXISTS idx_netatmo_location_time ON netatmo(location, time);
`

const insertReadingSQL = `
INSERT INTO netatmo (time, sender, device_id, location, battery, temperature, humidity, pressure, co2)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// latestSQL relies on SQLite's bare-column guarantee: with max(time) in the
// select list, the ungrouped columns come from the newest row per location.
const latestSQL = `
SELECT location, battery, temperature, humidity, pressure, co2, max(time)
FROM netatmo
WHERE time > datetime('now', '-1 hour')
GROUP BY location`

const windowSQL = `
SELECT datetime((CAST(strftime('%s', time) AS INTEGER) / ?) * ?, 'unixepoch') AS time_bucket,
       avg(battery)     AS battery,
       avg(temperature) AS temperature,
       avg(humidity)    AS humidity,
       avg(co2)         AS co2
FROM netatmo
WHERE location = ? AND time > datetime('now', ?)
GROUP BY time_bucket
ORDER BY time_bucket DESC`

// LatestReading is one row of the latest-per-location query.
type LatestReading struct {
	Location    string   `json:"location"`
	Battery     int      `json:"battery"`
	Temperature float64  `json:"temperature"`
	Humidity    float64  `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
	CO2         *float64 `json:"co2"`
}

// BucketRow is one averaged time bucket of the windowed aggregate query.
// CO2 is a pointer because outdoor locations have no CO2 rows to average.
type BucketRow struct {
	Bucket      time.Time `json:"timeBucket"`
	Battery     float64   `json:"battery"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	CO2         *float64  `json:"co2"`
}

// Repository is the persistence contract for canonical readings.
type Repository interface {
	InsertReading(ctx context.Context, r readings.Reading) error
	LatestByLocation(ctx context.Context) ([]LatestReading, error)
	WindowAggregate(ctx context.Context, loc readings.Location, span readings.SpanParams) ([]BucketRow, error)
}

type repository struct {
	db *sql.DB
}

// NewRepository creates a Repository backed by the given database, ensuring
// the schema exists.
func NewRepository(db *sql.DB) (Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &repository{db: db}, nil
}

// InsertReading appends one reading. Exactly one row is expected to be
// inserted; anything else is reported as ErrRowCount.
func (r *repository) InsertReading(ctx context.Context, rec readings.Reading) error {
	res, err := r.db.ExecContext(ctx, insertReadingSQL,
		rec.Time.UTC().Format(timeLayout),
		rec.Sender,
		rec.DeviceID,
		string(rec.Location),
		rec.Battery,
		rec.Temperature,
		rec.Humidity,
		nullableFloat(rec.Pressure),
		nullableFloat(rec.CO2),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert reading: rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("%w: %d", ErrRowCount, n)
	}
	return nil
}

// LatestByLocation returns the most recent reading per location, limited to
// locations with data in the last hour. Locations without recent data are
// simply absent.
func (r *repository) LatestByLocation(ctx context.Context) ([]LatestReading, error) {
	rows, err := r.db.QueryContext(ctx, latestSQL)
	if err != nil {
		return nil, fmt.Errorf("query latest readings: %w", err)
	}
	defer rows.Close()

	var out []LatestReading
	for rows.Next() {
		var (
			rec           LatestReading
			pressure, co2 sql.NullFloat64
			ts            string
		)
		if err := rows.Scan(&rec.Location, &rec.Battery, &rec.Temperature, &rec.Humidity, &pressure, &co2, &ts); err != nil {
			return nil, fmt.Errorf("scan latest reading: %w", err)
		}
		if pressure.Valid {
			rec.Pressure = &pressure.Float64
		}
		if co2.Valid {
			rec.CO2 = &co2.Float64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// WindowAggregate averages readings for one location into fixed-width time
// buckets over the span's lookback window. Buckets without readings are
// omitted. Rows come back newest-first; callers wanting chronological order
// reverse them.
func (r *repository) WindowAggregate(ctx context.Context, loc readings.Location, span readings.SpanParams) ([]BucketRow, error) {
	bucketSecs := int64(span.Bucket.Seconds())
	if bucketSecs <= 0 {
		return nil, fmt.Errorf("invalid bucket width %v", span.Bucket)
	}

	rows, err := r.db.QueryContext(ctx, windowSQL, bucketSecs, bucketSecs, string(loc), span.Lookback)
	if err != nil {
		return nil, fmt.Errorf("query window aggregate: %w", err)
	}
	defer rows.Close()

	var out []BucketRow
	for rows.Next() {
		var (
			rec    BucketRow
			bucket string
			co2    sql.NullFloat64
		)
		if err := rows.Scan(&bucket, &rec.Battery, &rec.Temperature, &rec.Humidity, &co2); err != nil {
			return nil, fmt.Errorf("scan window aggregate: %w", err)
		}
		ts, err := time.ParseInLocation(timeLayout, bucket, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse bucket timestamp %q: %w", bucket, err)
		}
		rec.Bucket = ts
		if co2.Valid {
			rec.CO2 = &co2.Float64
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
