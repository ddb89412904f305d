package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-etl/internal/weather"
)

const defaultArchiveBaseURL = "https://archive-api.open-meteo.com/v1/archive"

const archiveHourlyFields = "temperature_2m,relative_humidity_2m,precipitation"

// ArchiveSource fetches historical hourly observations from the Open-Meteo
// archive API over a fixed date window. It is the alternate strategy behind
// the same Source contract; the legacy key-based deployment is covered by
// the optional API key and metric-units flag.
type ArchiveSource struct {
	name    string
	baseURL string
	apiKey  string

	// Inclusive date window, "YYYY-MM-DD".
	startDate string
	endDate   string

	client  *http.Client
	policy  weather.RetryPolicy
	circuit *gobreaker.CircuitBreaker
}

// NewArchiveSource creates an ArchiveSource for the given date window. An
// empty baseURL selects the public Open-Meteo archive endpoint; apiKey may
// be empty for keyless deployments.
func NewArchiveSource(client *http.Client, baseURL, apiKey, startDate, endDate string, policy weather.RetryPolicy) *ArchiveSource {
	if baseURL == "" {
		baseURL = defaultArchiveBaseURL
	}
	return &ArchiveSource{
		name:      "open-meteo",
		baseURL:   baseURL,
		apiKey:    apiKey,
		startDate: startDate,
		endDate:   endDate,
		client:    client,
		policy:    policy,
		circuit:   newBreaker("open-meteo-archive"),
	}
}

func (s *ArchiveSource) Name() string {
	return s.name
}

func (s *ArchiveSource) Fetch(ctx context.Context, site weather.Site) (*weather.Payload, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", site.Latitude))
	values.Set("longitude", fmt.Sprintf("%f", site.Longitude))
	values.Set("timezone", site.Timezone)
	values.Set("start_date", s.startDate)
	values.Set("end_date", s.endDate)
	values.Set("hourly", archiveHourlyFields)
	if s.apiKey != "" {
		values.Set("apikey", s.apiKey)
		values.Set("units", "metric")
	}

	u := fmt.Sprintf("%s?%s", s.baseURL, values.Encode())
	return fetchPayload(ctx, s.client, s.circuit, s.policy, fmt.Sprintf("%s site %d", s.name, site.SiteID), u)
}
