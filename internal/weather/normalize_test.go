package weather

import (
	"errors"
	"testing"
	"time"
)

func fptr(v float64) *float64 { return &v }

func testStamp() RunStamp {
	return RunStamp{
		RunID:     "run-1",
		Source:    "open-meteo",
		FetchTime: time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC),
	}
}

func collect(t *testing.T, p *Payload, site Site, stamp RunStamp) ([]ObservationRecord, error) {
	t.Helper()
	var recs []ObservationRecord
	for rec, err := range Normalize(p, site, stamp) {
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// TestNormalizeArchiveShortArrays reproduces the archive shape with value
// arrays shorter than the time array: every timestamp still yields a record,
// with out-of-range indices mapped to nil.
func TestNormalizeArchiveShortArrays(t *testing.T) {
	site := Site{SiteID: 7, Name: "test", Latitude: 10.0, Longitude: 20.0, Timezone: "UTC"}
	payload := &Payload{
		Hourly: &HourlyBlock{
			Time:               []string{"2025-01-01T00:00", "2025-01-01T01:00"},
			Temperature2M:      []*float64{fptr(5.0), fptr(6.0)},
			RelativeHumidity2M: []*float64{fptr(80)},
		},
	}

	recs, err := collect(t, payload, site, testStamp())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}

	if recs[0].HumidityPct == nil || *recs[0].HumidityPct != 80 {
		t.Errorf("record[0].HumidityPct = %v, want 80", recs[0].HumidityPct)
	}
	if recs[1].HumidityPct != nil {
		t.Errorf("record[1].HumidityPct = %v, want nil", *recs[1].HumidityPct)
	}
	if recs[1].TempC == nil || *recs[1].TempC != 6.0 {
		t.Errorf("record[1].TempC = %v, want 6.0", recs[1].TempC)
	}
	if recs[0].PrecipitationMM != nil {
		t.Errorf("record[0].PrecipitationMM = %v, want nil", *recs[0].PrecipitationMM)
	}

	wantTS := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if !recs[0].ObservationTime.Equal(wantTS) {
		t.Errorf("record[0].ObservationTime = %v, want %v", recs[0].ObservationTime, wantTS)
	}
	for i, rec := range recs {
		if rec.DataType != DataTypeHourly {
			t.Errorf("record[%d].DataType = %q, want %q", i, rec.DataType, DataTypeHourly)
		}
		if rec.SiteID != 7 || rec.Source != "open-meteo" || rec.IngestionRunID != "run-1" {
			t.Errorf("record[%d] stamp fields wrong: %+v", i, rec)
		}
	}
}

// TestNormalizeForecastShape checks the current-first ordering: one current
// record, then one hourly record per timestamp.
func TestNormalizeForecastShape(t *testing.T) {
	site := Site{SiteID: 3, Name: "test", Timezone: "UTC"}
	payload := &Payload{
		Current: &CurrentBlock{
			Time:               "2025-01-01T12:34",
			Temperature2M:      fptr(1.5),
			RelativeHumidity2M: fptr(70),
			WindSpeed10M:       fptr(3.2),
		},
		Hourly: &HourlyBlock{
			Time:          []string{"2025-01-01T00:00", "2025-01-01T01:00", "2025-01-01T02:00"},
			Temperature2M: []*float64{fptr(1), fptr(2), fptr(3)},
			Precipitation: []*float64{fptr(0), nil, fptr(0.4)},
		},
	}

	recs, err := collect(t, payload, site, testStamp())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected 1+3 records, got %d", len(recs))
	}

	if recs[0].DataType != DataTypeCurrent {
		t.Errorf("first record DataType = %q, want %q", recs[0].DataType, DataTypeCurrent)
	}
	if recs[0].WindSpeed10M == nil || *recs[0].WindSpeed10M != 3.2 {
		t.Errorf("current WindSpeed10M = %v, want 3.2", recs[0].WindSpeed10M)
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].DataType != DataTypeHourly {
			t.Errorf("record[%d].DataType = %q, want %q", i, recs[i].DataType, DataTypeHourly)
		}
	}

	// JSON null inside a value array maps to nil, not an error.
	if recs[2].PrecipitationMM != nil {
		t.Errorf("record[2].PrecipitationMM = %v, want nil", *recs[2].PrecipitationMM)
	}
}

func TestNormalizeUnrecognizedShape(t *testing.T) {
	site := Site{SiteID: 1, Name: "test", Timezone: "UTC"}

	_, err := collect(t, &Payload{}, site, testStamp())
	var normErr *NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
	if normErr.SiteID != 1 {
		t.Errorf("error SiteID = %d, want 1", normErr.SiteID)
	}
}

func TestNormalizeEmptyHourly(t *testing.T) {
	site := Site{SiteID: 1, Name: "test", Timezone: "UTC"}
	payload := &Payload{Hourly: &HourlyBlock{}}

	_, err := collect(t, payload, site, testStamp())
	var normErr *NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError for empty hourly block, got %v", err)
	}
}

// TestNormalizeBadTimestampMidSequence verifies that records yielded before
// the failure stand: the error aborts only the remainder.
func TestNormalizeBadTimestampMidSequence(t *testing.T) {
	site := Site{SiteID: 5, Name: "test", Timezone: "UTC"}
	payload := &Payload{
		Hourly: &HourlyBlock{
			Time:          []string{"2025-01-01T00:00", "not-a-time", "2025-01-01T02:00"},
			Temperature2M: []*float64{fptr(1), fptr(2), fptr(3)},
		},
	}

	recs, err := collect(t, payload, site, testStamp())
	if err == nil {
		t.Fatal("expected error for unparseable timestamp")
	}
	var normErr *NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record before the failure, got %d", len(recs))
	}
}

func TestNormalizeTimestampFormats(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2025-01-01T00:00", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01T00:00Z", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-01-01T00:00:00Z", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := parseObsTime(tc.in)
		if err != nil {
			t.Errorf("parseObsTime(%q): %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("parseObsTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := parseObsTime("garbage"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestNormalizeKeepRaw(t *testing.T) {
	site := Site{SiteID: 2, Name: "test", Timezone: "UTC"}
	payload := &Payload{
		Hourly: &HourlyBlock{Time: []string{"2025-01-01T00:00"}},
		Raw:    []byte(`{"hourly":{}}`),
	}

	stamp := testStamp()
	stamp.KeepRaw = true
	recs, err := collect(t, payload, site, stamp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(recs[0].RawPayload) != `{"hourly":{}}` {
		t.Errorf("RawPayload = %q, want archived body", recs[0].RawPayload)
	}

	stamp.KeepRaw = false
	recs, err = collect(t, payload, site, stamp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs[0].RawPayload != nil {
		t.Errorf("RawPayload = %q, want nil without KeepRaw", recs[0].RawPayload)
	}
}
