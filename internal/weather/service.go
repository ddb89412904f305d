package weather

import (
	"context"
	"log"
)

// Service runs the per-site pipeline: fetch from the configured source,
// normalize, persist. It holds no run state; the scheduler passes the
// run-scoped stamp into each call.
type Service struct {
	source Source
	store  Store

	// batchSize > 0 enables streaming persistence: records are flushed in
	// batches of this size as they are normalized. batchSize <= 0 persists
	// the whole normalized sequence in one call after full normalization.
	batchSize int

	keepRaw bool
}

// NewService creates a Service. batchSize selects between streaming and
// batch persistence (see the field comment).
func NewService(source Source, store Store, batchSize int, keepRaw bool) *Service {
	return &Service{
		source:    source,
		store:     store,
		batchSize: batchSize,
		keepRaw:   keepRaw,
	}
}

// SiteOutcome is what one site task produced: how many records were
// normalized, how many reached the store, and the error that ended the task,
// if any. Records persisted before the error remain durable.
type SiteOutcome struct {
	Produced int
	Saved    int
	Err      error
}

// ProcessSite executes fetch -> normalize -> persist for one site.
func (s *Service) ProcessSite(ctx context.Context, site Site, stamp RunStamp) SiteOutcome {
	payload, err := s.source.Fetch(ctx, site)
	if err != nil {
		return SiteOutcome{Err: err}
	}
	log.Printf("fetched data for site %d (%s) from %s", site.SiteID, site.Name, s.source.Name())

	stamp.Source = s.source.Name()
	stamp.KeepRaw = s.keepRaw

	if s.batchSize > 0 {
		return s.persistStreaming(ctx, site, payload, stamp)
	}
	return s.persistBatch(ctx, site, payload, stamp)
}

// persistBatch materializes the whole normalized sequence, then writes it in
// a single batched upsert.
func (s *Service) persistBatch(ctx context.Context, site Site, payload *Payload, stamp RunStamp) SiteOutcome {
	recs, err := NormalizeAll(payload, site, stamp)
	if err != nil {
		return SiteOutcome{Produced: len(recs), Err: err}
	}

	saved, total := s.store.UpsertBatch(ctx, recs)
	if saved < total {
		log.Printf("WARNING: saved %d/%d records for site %d", saved, total, site.SiteID)
	}
	return SiteOutcome{Produced: total, Saved: saved}
}

// persistStreaming consumes the normalized sequence incrementally, flushing
// fixed-size batches as they fill and a final partial batch at the end. Peak
// memory is bounded by the batch size; earlier flushed batches stay durable
// even if normalization fails later.
func (s *Service) persistStreaming(ctx context.Context, site Site, payload *Payload, stamp RunStamp) SiteOutcome {
	var out SiteOutcome
	batch := make([]ObservationRecord, 0, s.batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		saved, total := s.store.UpsertBatch(ctx, batch)
		out.Saved += saved
		if saved < total {
			log.Printf("WARNING: saved %d/%d records of batch for site %d", saved, total, site.SiteID)
		}
		batch = batch[:0]
	}

	for rec, err := range Normalize(payload, site, stamp) {
		if err != nil {
			// Earlier flushed batches stand; the unflushed buffer is
			// discarded with the failed task.
			out.Err = err
			return out
		}
		batch = append(batch, rec)
		out.Produced++

		if len(batch) >= s.batchSize {
			flush()
		}
	}
	flush()

	return out
}
