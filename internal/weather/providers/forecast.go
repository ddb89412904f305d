package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-etl/internal/weather"
)

const defaultForecastBaseURL = "https://api.open-meteo.com/v1/forecast"

const (
	currentFields = "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m"
	hourlyFields  = "temperature_2m,relative_humidity_2m,precipitation,wind_speed_10m"
)

// ForecastSource fetches from the Open-Meteo forecast API: one current
// observation plus the hourly forecast arrays. This is the canonical source
// for streaming ingestion.
type ForecastSource struct {
	name    string
	baseURL string
	client  *http.Client
	policy  weather.RetryPolicy
	circuit *gobreaker.CircuitBreaker
}

// NewForecastSource creates a ForecastSource. An empty baseURL selects the
// public Open-Meteo endpoint.
func NewForecastSource(client *http.Client, baseURL string, policy weather.RetryPolicy) *ForecastSource {
	if baseURL == "" {
		baseURL = defaultForecastBaseURL
	}
	return &ForecastSource{
		name:    "open-meteo-forecast",
		baseURL: baseURL,
		client:  client,
		policy:  policy,
		circuit: newBreaker("open-meteo-forecast"),
	}
}

func (s *ForecastSource) Name() string {
	return s.name
}

func (s *ForecastSource) Fetch(ctx context.Context, site weather.Site) (*weather.Payload, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", site.Latitude))
	values.Set("longitude", fmt.Sprintf("%f", site.Longitude))
	values.Set("timezone", site.Timezone)
	values.Set("current", currentFields)
	values.Set("hourly", hourlyFields)

	u := fmt.Sprintf("%s?%s", s.baseURL, values.Encode())
	return fetchPayload(ctx, s.client, s.circuit, s.policy, fmt.Sprintf("%s site %d", s.name, site.SiteID), u)
}
