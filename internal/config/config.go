package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
)

// Source names selectable via WEATHER_SOURCE.
const (
	SourceForecast = "forecast"
	SourceArchive  = "archive"
)

// AppConfig is the full process configuration, read from the environment.
type AppConfig struct {
	DB store.Config

	// SitesFile is the JSON site catalog path.
	SitesFile string

	// SourceName selects the fetch strategy: forecast (default) or archive.
	SourceName string

	ForecastBaseURL string
	ArchiveBaseURL  string

	// APIKey is only needed by legacy key-based archive deployments.
	APIKey string

	// Inclusive archive date window, "YYYY-MM-DD".
	ArchiveStartDate string
	ArchiveEndDate   string

	MaxWorkers     int
	RequestTimeout time.Duration

	MaxRetries   int
	RetryMinWait time.Duration
	RetryMaxWait time.Duration

	// StreamingBatchSize selects streaming persistence when > 0; 0 persists
	// each site's records in a single batch after full normalization.
	StreamingBatchSize int

	MaxReportErrors int

	GeocoderAPIKey string

	// Port for the status server in continuous mode.
	Port string
}

// Load reads configuration from the environment with the historical job
// defaults. A .env file is honored when present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{}

	cfg.DB = store.Config{
		Host:     getenvDefault("DB_HOST", "127.0.0.1"),
		Port:     getenvInt("DB_PORT", 5432),
		User:     getenvDefault("DB_USER", "postgres"),
		Password: getenvDefault("DB_PASSWORD", "postgres"),
		Database: getenvDefault("DB_NAME", "weather"),
		SSLMode:  getenvDefault("DB_SSLMODE", "disable"),
	}

	cfg.SitesFile = getenvDefault("SITES_FILE", "config/sites.json")

	cfg.SourceName = getenvDefault("WEATHER_SOURCE", SourceForecast)
	if cfg.SourceName != SourceForecast && cfg.SourceName != SourceArchive {
		return nil, fmt.Errorf("invalid WEATHER_SOURCE %q (want %q or %q)", cfg.SourceName, SourceForecast, SourceArchive)
	}

	cfg.ForecastBaseURL = os.Getenv("API_BASE_FORECAST")
	cfg.ArchiveBaseURL = os.Getenv("API_BASE")
	cfg.APIKey = os.Getenv("WEATHER_API_KEY")
	cfg.ArchiveStartDate = getenvDefault("ARCHIVE_START_DATE", "2025-09-14")
	cfg.ArchiveEndDate = getenvDefault("ARCHIVE_END_DATE", "2025-10-28")

	cfg.MaxWorkers = getenvInt("MAX_WORKERS", 8)

	timeout, err := getenvDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout = timeout

	cfg.MaxRetries = getenvInt("MAX_RETRIES", 3)
	if cfg.RetryMinWait, err = getenvDuration("RETRY_MIN_WAIT", 4*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryMaxWait, err = getenvDuration("RETRY_MAX_WAIT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.StreamingBatchSize = getenvInt("STREAMING_BATCH_SIZE", 10)
	cfg.MaxReportErrors = getenvInt("MAX_REPORT_ERRORS", 5)

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// RetryPolicy builds the fetch retry policy from the configured bounds.
func (c *AppConfig) RetryPolicy() weather.RetryPolicy {
	return weather.RetryPolicy{
		MaxAttempts: c.MaxRetries,
		MinWait:     c.RetryMinWait,
		MaxWait:     c.RetryMaxWait,
		Jitter:      true,
	}
}

var validate = validator.New()

// LoadSites reads and validates the site catalog. Entries missing
// coordinates are geocoded from city/country when a geocoder key is
// configured; otherwise they are rejected.
func LoadSites(path, geocoderKey string) ([]weather.Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site catalog: %w", err)
	}

	var sites []weather.Site
	if err := json.Unmarshal(data, &sites); err != nil {
		return nil, fmt.Errorf("parse site catalog: %w", err)
	}
	if len(sites) == 0 {
		return nil, fmt.Errorf("site catalog %s is empty", path)
	}

	for i := range sites {
		site := &sites[i]
		if err := validate.Struct(site); err != nil {
			return nil, fmt.Errorf("invalid site entry %d: %w", i, err)
		}

		if site.Latitude == 0 && site.Longitude == 0 && site.City != "" {
			if geocoderKey == "" {
				return nil, fmt.Errorf("site %d (%s) has no coordinates and GEOCODER_API_KEY is not set", site.SiteID, site.Name)
			}
			if err := geocodeSite(site, geocoderKey); err != nil {
				return nil, fmt.Errorf("geocode site %d (%s): %w", site.SiteID, site.Name, err)
			}
		}
	}

	log.Printf("loaded %d sites from %s", len(sites), path)
	return sites, nil
}

func geocodeSite(site *weather.Site, key string) error {
	geocoder.ApiKey = key

	loc, err := geocoder.Geocoding(geocoder.Address{
		City:    site.City,
		Country: site.Country,
	})
	if err != nil {
		return err
	}

	site.Latitude = loc.Latitude
	site.Longitude = loc.Longitude
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
