package readings

import "time"

// DurationSpan is the caller-selected historical window.
type DurationSpan string

const (
	SpanHour  DurationSpan = "hour"
	SpanDay   DurationSpan = "day"
	SpanWeek  DurationSpan = "week"
	SpanMonth DurationSpan = "month"
	SpanYear  DurationSpan = "year"
)

// SpanParams are the query parameters a DurationSpan resolves to: the bucket
// width readings are averaged over, the lookback window as a SQLite datetime
// modifier, and the title shown to display consumers.
type SpanParams struct {
	Bucket   time.Duration
	Lookback string
	Title    string
}

var spanTable = map[DurationSpan]SpanParams{
	SpanYear:  {Bucket: 6 * time.Hour, Lookback: "-1 year", Title: "Last year"},
	SpanMonth: {Bucket: 3 * time.Hour, Lookback: "-1 month", Title: "Last month"},
	SpanWeek:  {Bucket: 1 * time.Hour, Lookback: "-7 days", Title: "Last week"},
	SpanDay:   {Bucket: 30 * time.Minute, Lookback: "-1 day", Title: "Last 24 hours"},
	SpanHour:  {Bucket: 1 * time.Minute, Lookback: "-1 hour", Title: "Last hour"},
}

// ResolveSpan maps a durationSpan value to its query parameters.
// The empty string and anything unrecognized resolve to the hour span.
func ResolveSpan(span string) SpanParams {
	if p, ok := spanTable[DurationSpan(span)]; ok {
		return p
	}
	return spanTable[SpanHour]
}
