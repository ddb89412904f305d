// Package scheduler drives ingestion runs: a bounded worker pool executes
// one task per site, a single collection point aggregates outcomes into a
// RunReport, and an optional periodic driver repeats runs with a fresh run
// id each cycle.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-etl/internal/weather"
)

// Runner executes one ingestion run across the full site catalog.
type Runner struct {
	sites     []weather.Site
	service   *weather.Service
	workers   int
	maxErrors int
	dryRun    bool
	runID     string
}

// NewRunner creates a Runner with a freshly generated run id. workers bounds
// how many site tasks execute concurrently, independent of catalog size.
func NewRunner(sites []weather.Site, service *weather.Service, workers, maxErrors int, dryRun bool) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		sites:     sites,
		service:   service,
		workers:   workers,
		maxErrors: maxErrors,
		dryRun:    dryRun,
		runID:     uuid.NewString(),
	}
}

// RunID returns the identifier stamped into every record this run touches.
func (r *Runner) RunID() string { return r.runID }

type siteResult struct {
	site    weather.Site
	outcome weather.SiteOutcome
}

// Run processes every site through the worker pool and returns the completed
// report. Site-level failures are recorded, never propagated; completion
// order across sites is unspecified.
func (r *Runner) Run(ctx context.Context) *RunReport {
	report := newRunReport(r.runID, r.dryRun, r.maxErrors)
	report.TotalSites = len(r.sites)

	if len(r.sites) == 0 {
		log.Println("WARNING: no sites to process")
		report.FinishedAt = time.Now().UTC()
		return report
	}

	log.Printf("run %s: processing %d sites with %d workers", r.runID, len(r.sites), r.workers)

	jobs := make(chan weather.Site)
	results := make(chan siteResult)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for site := range jobs {
				stamp := weather.RunStamp{RunID: r.runID, FetchTime: time.Now().UTC()}
				results <- siteResult{site: site, outcome: r.service.ProcessSite(ctx, site, stamp)}
			}
		}()
	}

	go func() {
		for _, site := range r.sites {
			jobs <- site
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Single collection point: all counter mutation happens here.
	for res := range results {
		r.collect(report, res)
	}

	report.FinishedAt = time.Now().UTC()
	return report
}

func (r *Runner) collect(report *RunReport, res siteResult) {
	site, out := res.site, res.outcome
	report.RecordsProcessed += out.Saved

	switch {
	case out.Err != nil:
		report.Failed++
		msg := fmt.Sprintf("error processing %s: %v", site.Name, out.Err)
		report.addError(msg)
		log.Printf("✗ %s", msg)
	case out.Produced == 0:
		report.Failed++
		msg := fmt.Sprintf("no records produced for %s", site.Name)
		report.addError(msg)
		log.Printf("✗ %s", msg)
	case out.Saved == out.Produced:
		report.Succeeded++
		log.Printf("✓ processed %s - %d records saved", site.Name, out.Saved)
	case out.Saved > 0:
		report.PartiallySucceeded++
		msg := fmt.Sprintf("partially saved %d/%d records for %s", out.Saved, out.Produced, site.Name)
		report.addError(msg)
		log.Printf("✗ %s", msg)
	default:
		report.Failed++
		msg := fmt.Sprintf("saved 0/%d records for %s", out.Produced, site.Name)
		report.addError(msg)
		log.Printf("✗ %s", msg)
	}
}
