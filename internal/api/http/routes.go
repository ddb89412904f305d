package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-etl/internal/scheduler"
	"github.com/i474232898/weather-etl/internal/weather"
)

var validate = validator.New()

// ReportSource exposes the report of the most recently completed run.
type ReportSource interface {
	Latest() *scheduler.RunReport
}

// ObservationReader reads stored observations for the query endpoint.
type ObservationReader interface {
	GetRange(ctx context.Context, siteID int, from, to time.Time) ([]weather.ObservationRecord, error)
}

// RegisterRoutes wires the status and query handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reports ReportSource, obs ObservationReader) {
	v1 := app.Group("/api/v1")

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		report := reports.Latest()
		if report == nil {
			return fiber.NewError(fiber.StatusNotFound, "no completed run yet")
		}
		return c.JSON(report)
	})

	v1.Get("/observations", func(c *fiber.Ctx) error {
		var req observationsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		recs, err := obs.GetRange(c.Context(), req.SiteID, req.From, req.To)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to query observations")
		}

		return c.JSON(fiber.Map{
			"site_id":      req.SiteID,
			"from":         req.From,
			"to":           req.To,
			"observations": toObservationViews(recs),
		})
	})
}

// observationsQuery holds query parameters for the observations endpoint.
type observationsQuery struct {
	SiteID int       `validate:"required"`
	From   time.Time `validate:"required"`
	To     time.Time `validate:"required,gtefield=From"`
}

func (q *observationsQuery) bind(c *fiber.Ctx) error {
	siteIDStr := c.Query("site_id")
	if siteIDStr == "" {
		return errors.New("site_id query parameter is required")
	}
	siteID, err := strconv.Atoi(siteIDStr)
	if err != nil {
		return errors.New("site_id must be an integer")
	}
	q.SiteID = siteID

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	if q.From, err = parseTime(fromStr); err != nil {
		return err
	}
	if q.To, err = parseTime(toStr); err != nil {
		return err
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// observationView is the JSON rendering of a stored record.
type observationView struct {
	SiteID          int       `json:"site_id"`
	Source          string    `json:"source"`
	DataType        string    `json:"data_type"`
	ObservationTime time.Time `json:"observation_time"`
	FetchTime       time.Time `json:"fetch_time"`
	TempC           *float64  `json:"temp_c"`
	HumidityPct     *float64  `json:"humidity_pct"`
	PressureHpa     *float64  `json:"pressure_hpa"`
	PrecipitationMM *float64  `json:"precipitation_mm"`
	WindSpeed10M    *float64  `json:"wind_speed_10m"`
	IngestionRunID  string    `json:"ingestion_run_id"`
}

func toObservationViews(recs []weather.ObservationRecord) []observationView {
	views := make([]observationView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, observationView{
			SiteID:          rec.SiteID,
			Source:          rec.Source,
			DataType:        string(rec.DataType),
			ObservationTime: rec.ObservationTime,
			FetchTime:       rec.FetchTime,
			TempC:           rec.TempC,
			HumidityPct:     rec.HumidityPct,
			PressureHpa:     rec.PressureHpa,
			PrecipitationMM: rec.PrecipitationMM,
			WindSpeed10M:    rec.WindSpeed10M,
			IngestionRunID:  rec.IngestionRunID,
		})
	}
	return views
}
