package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Driver re-runs the ingestion pipeline at a fixed interval. Every cycle
// builds a fresh Runner (and so a fresh run id); cycles never overlap, and
// stopping takes effect at cycle boundaries.
type Driver struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	newRunner func() *Runner

	mu     sync.RWMutex
	latest *RunReport
}

// NewDriver creates a Driver. newRunner is invoked once per cycle.
func NewDriver(interval time.Duration, newRunner func() *Runner) *Driver {
	return &Driver{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		newRunner: newRunner,
	}
}

// Start schedules the periodic job (first cycle runs immediately) and starts
// the underlying scheduler.
func (d *Driver) Start() error {
	seconds := int(d.interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}

	_, err := d.scheduler.Every(seconds).Seconds().SingletonMode().StartImmediately().Do(d.runCycle)
	if err != nil {
		return err
	}

	log.Printf("continuous mode: running every %d seconds", seconds)
	d.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler; the in-flight cycle, if any, completes.
func (d *Driver) Stop() {
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
}

// Latest returns the report of the most recently completed cycle, or nil if
// none has completed yet.
func (d *Driver) Latest() *RunReport {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}

func (d *Driver) runCycle() {
	log.Println("starting ingestion cycle")

	runner := d.newRunner()
	report := runner.Run(context.Background())
	report.LogSummary()

	d.mu.Lock()
	d.latest = report
	d.mu.Unlock()
}
