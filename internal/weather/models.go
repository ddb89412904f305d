package weather

import (
	"fmt"
	"time"
)

// DataType distinguishes the instant-measurement record produced from a
// payload's current block from the per-hour records of its hourly block.
type DataType string

const (
	DataTypeCurrent DataType = "current"
	DataTypeHourly  DataType = "hourly"
)

// Site is a fixed geographic location for which observations are ingested.
// The catalog is loaded once per run and shared read-only across site tasks.
type Site struct {
	SiteID    int     `json:"site_id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone" validate:"required"`

	// City/Country are optional and only consulted when the catalog entry
	// carries no coordinates and geocoding is enabled.
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Key returns a canonical string key for logging and indexing.
func (s Site) Key() string {
	return fmt.Sprintf("%d:%s", s.SiteID, s.Name)
}

// ObservationRecord is the canonical unit of persistence. The uniqueness key
// is (SiteID, Source, ObservationTime); every other field is last-writer-wins
// on conflict. Nil pointers map to SQL NULL.
type ObservationRecord struct {
	SiteID          int
	Source          string
	DataType        DataType
	ObservationTime time.Time // UTC instant the measurement describes
	FetchTime       time.Time // UTC instant the payload was retrieved

	TempC           *float64
	HumidityPct     *float64
	PressureHpa     *float64
	PrecipitationMM *float64
	WindSpeed10M    *float64

	// RawPayload optionally archives the serialized API response the record
	// was normalized from. Only the archive source keeps it.
	RawPayload []byte

	IngestionRunID string
}

// Key returns the uniqueness key (site_id, source, observation_time) as a
// single string, usable as a map key.
func (r ObservationRecord) Key() string {
	return fmt.Sprintf("%d|%s|%s", r.SiteID, r.Source, r.ObservationTime.UTC().Format(time.RFC3339))
}

// PrecipDescription renders precipitation the way the legacy descriptive
// column did: "precipitation=<n>mm", with absent values rendered as 0.
func (r ObservationRecord) PrecipDescription() string {
	if r.PrecipitationMM == nil {
		return "precipitation=0mm"
	}
	return fmt.Sprintf("precipitation=%gmm", *r.PrecipitationMM)
}

// RunStamp carries the run-scoped values stamped into every record a site
// task produces: which run touched the row, which source it came from, and
// when the payload was fetched.
type RunStamp struct {
	RunID     string
	Source    string
	FetchTime time.Time

	// KeepRaw archives the serialized payload alongside each record.
	KeepRaw bool
}
