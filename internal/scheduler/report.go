package scheduler

import (
	"log"
	"time"

	"github.com/i474232898/weather-etl/internal/common"
)

// DefaultMaxErrors bounds how many error messages a report retains verbatim;
// further errors are counted but not kept.
const DefaultMaxErrors = 5

const maxErrorLen = 300

// RunReport aggregates the outcome of one ingestion run. It is mutated only
// by the runner's single collection point and is immutable once the run
// completes.
type RunReport struct {
	RunID      string    `json:"run_id"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	TotalSites         int `json:"total_sites"`
	Succeeded          int `json:"succeeded"`
	PartiallySucceeded int `json:"partially_succeeded"`
	Failed             int `json:"failed"`
	RecordsProcessed   int `json:"records_processed"`

	// Errors holds up to maxErrors messages; ErrorsTotal counts all of them.
	Errors      []string `json:"errors,omitempty"`
	ErrorsTotal int      `json:"errors_total"`

	maxErrors int
}

func newRunReport(runID string, dryRun bool, maxErrors int) *RunReport {
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	return &RunReport{
		RunID:     runID,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
		maxErrors: maxErrors,
	}
}

func (r *RunReport) addError(msg string) {
	r.ErrorsTotal++
	if len(r.Errors) < r.maxErrors {
		r.Errors = append(r.Errors, common.Truncate(msg, maxErrorLen))
	}
}

// LogSummary prints the end-of-run summary banner.
func (r *RunReport) LogSummary() {
	log.Println("============================================================")
	log.Println("ETL RUN SUMMARY")
	log.Println("============================================================")
	log.Printf("Run ID: %s", r.RunID)
	log.Printf("Total sites: %d", r.TotalSites)
	log.Printf("Succeeded: %d", r.Succeeded)
	log.Printf("Partially succeeded: %d", r.PartiallySucceeded)
	log.Printf("Failed: %d", r.Failed)
	log.Printf("Records processed: %d", r.RecordsProcessed)
	log.Printf("Dry-run: %v", r.DryRun)

	if r.ErrorsTotal > 0 {
		log.Println("Errors:")
		for _, msg := range r.Errors {
			log.Printf("  - %s", msg)
		}
		if rest := r.ErrorsTotal - len(r.Errors); rest > 0 {
			log.Printf("  ... and %d more errors", rest)
		}
	}
	log.Println("============================================================")
}
