package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DB.Port != 5432 {
		t.Errorf("DB.Port = %d, want 5432", cfg.DB.Port)
	}
	if cfg.SourceName != SourceForecast {
		t.Errorf("SourceName = %q, want %q", cfg.SourceName, SourceForecast)
	}
	if cfg.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", cfg.MaxWorkers)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryMinWait != 4*time.Second || cfg.RetryMaxWait != 10*time.Second {
		t.Errorf("retry waits = %v/%v, want 4s/10s", cfg.RetryMinWait, cfg.RetryMaxWait)
	}
	if cfg.StreamingBatchSize != 10 {
		t.Errorf("StreamingBatchSize = %d, want 10", cfg.StreamingBatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("WEATHER_SOURCE", SourceArchive)
	t.Setenv("MAX_WORKERS", "4")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("STREAMING_BATCH_SIZE", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DB.Host != "db.internal" || cfg.DB.Port != 6432 {
		t.Errorf("DB config = %+v", cfg.DB)
	}
	if cfg.SourceName != SourceArchive {
		t.Errorf("SourceName = %q, want %q", cfg.SourceName, SourceArchive)
	}
	if cfg.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want 4", cfg.MaxWorkers)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.StreamingBatchSize != 25 {
		t.Errorf("StreamingBatchSize = %d, want 25", cfg.StreamingBatchSize)
	}
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	t.Setenv("WEATHER_SOURCE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown WEATHER_SOURCE")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable REQUEST_TIMEOUT")
	}
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSites(t *testing.T) {
	path := writeCatalog(t, `[
		{"site_id": 1, "name": "Bogota", "latitude": 4.71, "longitude": -74.07, "timezone": "America/Bogota"},
		{"site_id": 2, "name": "Madrid", "latitude": 40.42, "longitude": -3.70, "timezone": "Europe/Madrid"}
	]`)

	sites, err := LoadSites(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sites) != 2 {
		t.Fatalf("expected 2 sites, got %d", len(sites))
	}
	if sites[0].SiteID != 1 || sites[0].Timezone != "America/Bogota" {
		t.Errorf("first site = %+v", sites[0])
	}
}

func TestLoadSitesRejectsInvalidEntry(t *testing.T) {
	path := writeCatalog(t, `[{"site_id": 1, "latitude": 4.71, "longitude": -74.07}]`)
	if _, err := LoadSites(path, ""); err == nil {
		t.Fatal("expected validation error for entry missing name/timezone")
	}
}

func TestLoadSitesRejectsEmptyCatalog(t *testing.T) {
	path := writeCatalog(t, `[]`)
	if _, err := LoadSites(path, ""); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestLoadSitesMissingCoordinatesNeedGeocoder(t *testing.T) {
	path := writeCatalog(t, `[{"site_id": 1, "name": "Paris", "timezone": "Europe/Paris", "city": "Paris", "country": "FR"}]`)
	if _, err := LoadSites(path, ""); err == nil {
		t.Fatal("expected error when coordinates are missing and no geocoder key is set")
	}
}

func TestLoadSitesMissingFile(t *testing.T) {
	if _, err := LoadSites(filepath.Join(t.TempDir(), "nope.json"), ""); err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}
