package access

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/access-cli/internal/measure"
	"github.com/sells-group/access-cli/internal/resilience"
)

// defaultWorkers bounds per-batch origin fan-out when Workers is unset.
const defaultWorkers = 8

// Controller drives the batched accessibility computation. It partitions the
// origin set into consecutive batches of at most BatchSize, fetches each
// batch's cost relation from Source, scores every origin against every
// registered measure, and commits the batch atomically to the sink before
// releasing its intermediate state.
//
// Batches are independent: no batch reads another batch's data, and the only
// state carried across batches is the processed-origin set and the committed
// batch count in the report.
type Controller struct {
	Source        CostSource
	Opportunities map[string]float64
	Registry      *measure.Registry

	// BatchSize bounds how many origins' destination rows are resident at
	// once; it trades peak memory against flush overhead.
	BatchSize int

	// Workers bounds concurrent origin computations within a batch.
	Workers int

	// Retry governs cost-relation fetches and sink commits. Zero value = defaults.
	Retry resilience.RetryConfig
}

// OriginFailure records why a single origin produced no score row.
type OriginFailure struct {
	OriginID string
	Err      error
}

// Report summarizes a run. Failures never abort sibling origins; a halted
// run keeps BatchesCommitted accurate so the caller can resume from the
// first uncommitted batch.
type Report struct {
	MeasureNames     []string
	OriginsTotal     int
	OriginsScored    int
	BatchesTotal     int
	BatchesCommitted int
	Processed        map[string]bool
	Failures         []OriginFailure
}

// Run computes accessibility for origins and writes each batch to sink.
// Origins are deduplicated so the batches form a true partition. The run
// halts with an error only on cancellation or when a batch commit exhausts
// its retries; per-origin failures are recorded in the report and the run
// continues.
func (c *Controller) Run(ctx context.Context, origins []string, sink Sink) (*Report, error) {
	if c.Source == nil || sink == nil {
		return nil, eris.New("access: controller needs a cost source and a sink")
	}
	if c.BatchSize <= 0 {
		return nil, eris.Errorf("access: batch size must be > 0 (got %d)", c.BatchSize)
	}
	if c.Registry == nil || c.Registry.Len() == 0 {
		return nil, eris.New("access: no measures registered")
	}
	if err := ValidateOpportunities(c.Opportunities); err != nil {
		return nil, err
	}

	origins = dedupe(origins)
	measures := c.Registry.Measures()

	report := &Report{
		MeasureNames: c.Registry.Names(),
		OriginsTotal: len(origins),
		BatchesTotal: (len(origins) + c.BatchSize - 1) / c.BatchSize,
		Processed:    make(map[string]bool, len(origins)),
	}

	log := zap.L().With(
		zap.String("component", "access.batch"),
		zap.Int("origins", len(origins)),
		zap.Int("batch_size", c.BatchSize),
		zap.Int("measures", len(measures)),
	)

	for start := 0; start < len(origins); start += c.BatchSize {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "access: run cancelled")
		}

		end := start + c.BatchSize
		if end > len(origins) {
			end = len(origins)
		}
		batch := origins[start:end]
		batchIdx := start / c.BatchSize

		rows, failures, err := c.processBatch(ctx, batch, measures)
		if err != nil {
			return report, eris.Wrapf(err, "access: batch %d", batchIdx)
		}
		report.Failures = append(report.Failures, failures...)

		if err := c.commit(ctx, sink, rows); err != nil {
			// Buffered results are dropped; committed batches stay valid and
			// the report tells the caller where to resume.
			return report, eris.Wrapf(err, "access: commit batch %d", batchIdx)
		}

		for _, row := range rows {
			report.Processed[row.OriginID] = true
		}
		report.OriginsScored += len(rows)
		report.BatchesCommitted++

		log.Debug("batch committed",
			zap.Int("batch", batchIdx),
			zap.Int("scored", len(rows)),
			zap.Int("failed", len(failures)),
		)
	}

	log.Info("accessibility run complete",
		zap.Int("batches_committed", report.BatchesCommitted),
		zap.Int("origins_scored", report.OriginsScored),
		zap.Int("origins_failed", len(report.Failures)),
	)
	return report, nil
}

// processBatch fetches the batch's cost relation and scores its origins
// concurrently. Per-origin failures are returned, not propagated.
func (c *Controller) processBatch(ctx context.Context, batch []string, measures []measure.Measure) ([]ScoreRow, []OriginFailure, error) {
	edges, err := resilience.DoVal(ctx, c.Retry, func(ctx context.Context) (*BatchEdges, error) {
		return c.Source.Edges(ctx, batch)
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetch cost edges")
	}

	workers := c.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		mu       sync.Mutex
		rows     []ScoreRow
		failures []OriginFailure
	)

	// Source-level failures are ledgered before any worker starts, so the
	// shared slices are only ever appended to under mu by the workers.
	pending := make([]string, 0, len(batch))
	for _, originID := range batch {
		if lookupErr, failed := edges.Failed[originID]; failed {
			failures = append(failures, OriginFailure{OriginID: originID, Err: lookupErr})
			continue
		}
		pending = append(pending, originID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, originID := range pending {
		originEdges := edges.Edges[originID]

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			scores, err := Compute(originID, originEdges, c.Opportunities, measures)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, OriginFailure{OriginID: originID, Err: err})
				return nil
			}
			rows = append(rows, ScoreRow{OriginID: originID, Scores: scores})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rows, failures, nil
}

// commit writes one batch's rows atomically, retrying transient failures.
func (c *Controller) commit(ctx context.Context, sink Sink, rows []ScoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	return resilience.Do(ctx, c.Retry, func(ctx context.Context) error {
		return sink.WriteScores(ctx, rows)
	})
}

// dedupe preserves first-occurrence order while dropping repeated ids, so
// batches cover the origin set exactly once.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
