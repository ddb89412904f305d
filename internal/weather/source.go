package weather

import (
	"context"
)

// Payload is the decoded response of one fetch for one site. Both supported
// API shapes decode into it: the forecast shape may carry a current block
// and an hourly block, the archive shape carries hourly only. Raw holds the
// undecoded body for optional archival.
type Payload struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Current   *CurrentBlock `json:"current,omitempty"`
	Hourly    *HourlyBlock  `json:"hourly,omitempty"`

	Raw []byte `json:"-"`
}

// CurrentBlock is a single-instant measurement.
type CurrentBlock struct {
	Time               string   `json:"time"`
	Temperature2M      *float64 `json:"temperature_2m"`
	RelativeHumidity2M *float64 `json:"relative_humidity_2m"`
	Precipitation      *float64 `json:"precipitation"`
	PressureMSL        *float64 `json:"pressure_msl"`
	WindSpeed10M       *float64 `json:"wind_speed_10m"`
}

// HourlyBlock holds time-indexed parallel arrays. The value arrays may be
// shorter than Time; missing indices normalize to NULL.
type HourlyBlock struct {
	Time               []string   `json:"time"`
	Temperature2M      []*float64 `json:"temperature_2m"`
	RelativeHumidity2M []*float64 `json:"relative_humidity_2m"`
	Precipitation      []*float64 `json:"precipitation"`
	PressureMSL        []*float64 `json:"pressure_msl"`
	WindSpeed10M       []*float64 `json:"wind_speed_10m"`
}

// Source abstracts a weather data API (forecast or archive flavor). Fetch
// performs one retryable round trip for one site; normalization of the
// returned payload is shared (see Normalize).
type Source interface {
	Name() string
	Fetch(ctx context.Context, site Site) (*Payload, error)
}

// Store is the contract the persistent observation store must satisfy.
// UpsertOne writes a single record; UpsertBatch writes many in one round
// trip, falling back to per-record writes on batch failure, and reports
// (succeeded, total). Neither retries internally.
type Store interface {
	UpsertOne(ctx context.Context, rec ObservationRecord) error
	UpsertBatch(ctx context.Context, recs []ObservationRecord) (succeeded, total int)
}
