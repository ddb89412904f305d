package weather

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"
)

var (
	errNoKnownBlock = errors.New("unrecognized payload shape (no current or hourly block)")
	errNoTimestamps = errors.New("payload contained no timestamps")
)

// Open-Meteo style APIs return minute-precision local timestamps without an
// offset; archived data occasionally carries full RFC 3339.
const obsTimeLayout = "2006-01-02T15:04"

func parseObsTime(s string) (time.Time, error) {
	if ts, err := time.Parse(obsTimeLayout, strings.TrimSuffix(s, "Z")); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return ts.UTC(), nil
}

func at(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// Normalize turns a fetched payload into a lazy, finite sequence of
// observation records: the current block (if present) yields exactly one
// record first, then the hourly block yields one record per timestamp in
// array order. Value arrays shorter than the time array map to NULL fields.
// Pure: no I/O, restartable per call.
//
// A *NormalizationError ends the sequence; records already yielded are not
// rolled back. The sequence stops early if the consumer does.
func Normalize(p *Payload, site Site, stamp RunStamp) iter.Seq2[ObservationRecord, error] {
	return func(yield func(ObservationRecord, error) bool) {
		if p == nil || (p.Current == nil && p.Hourly == nil) {
			yield(ObservationRecord{}, &NormalizationError{SiteID: site.SiteID, Err: errNoKnownBlock})
			return
		}

		var raw []byte
		if stamp.KeepRaw {
			raw = p.Raw
		}

		produced := 0

		if cur := p.Current; cur != nil {
			ts, err := parseObsTime(cur.Time)
			if err != nil {
				yield(ObservationRecord{}, &NormalizationError{SiteID: site.SiteID, Err: err})
				return
			}
			rec := ObservationRecord{
				SiteID:          site.SiteID,
				Source:          stamp.Source,
				DataType:        DataTypeCurrent,
				ObservationTime: ts,
				FetchTime:       stamp.FetchTime,
				TempC:           cur.Temperature2M,
				HumidityPct:     cur.RelativeHumidity2M,
				PressureHpa:     cur.PressureMSL,
				PrecipitationMM: cur.Precipitation,
				WindSpeed10M:    cur.WindSpeed10M,
				RawPayload:      raw,
				IngestionRunID:  stamp.RunID,
			}
			if !yield(rec, nil) {
				return
			}
			produced++
		}

		if hourly := p.Hourly; hourly != nil {
			for i, t := range hourly.Time {
				ts, err := parseObsTime(t)
				if err != nil {
					yield(ObservationRecord{}, &NormalizationError{SiteID: site.SiteID, Err: err})
					return
				}
				rec := ObservationRecord{
					SiteID:          site.SiteID,
					Source:          stamp.Source,
					DataType:        DataTypeHourly,
					ObservationTime: ts,
					FetchTime:       stamp.FetchTime,
					TempC:           at(hourly.Temperature2M, i),
					HumidityPct:     at(hourly.RelativeHumidity2M, i),
					PressureHpa:     at(hourly.PressureMSL, i),
					PrecipitationMM: at(hourly.Precipitation, i),
					WindSpeed10M:    at(hourly.WindSpeed10M, i),
					RawPayload:      raw,
					IngestionRunID:  stamp.RunID,
				}
				if !yield(rec, nil) {
					return
				}
				produced++
			}
		}

		if produced == 0 {
			yield(ObservationRecord{}, &NormalizationError{SiteID: site.SiteID, Err: errNoTimestamps})
		}
	}
}

// NormalizeAll materializes the full normalized sequence; the batch
// persistence path uses it when latency is not a concern.
func NormalizeAll(p *Payload, site Site, stamp RunStamp) ([]ObservationRecord, error) {
	var recs []ObservationRecord
	for rec, err := range Normalize(p, site, stamp) {
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
