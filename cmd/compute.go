package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/access-cli/internal/access"
	"github.com/sells-group/access-cli/internal/config"
	"github.com/sells-group/access-cli/internal/measure"
	"github.com/sells-group/access-cli/internal/resilience"
	"github.com/sells-group/access-cli/internal/store"
	"github.com/sells-group/access-cli/pkg/matrix"
)

var (
	computeBatchSize   int
	computeWorkers     int
	computeMeasureFile string
	computeSource      string
	computeOrigins     []string
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute accessibility scores for all origins",
	Long: `Scores every origin location against the opportunity table using the
configured measures, processing origins in memory-bounded batches. Each batch
commits atomically; an interrupted run can be re-run and lands on the same
keys. Travel costs come from the stored cost relation (--source db) or live
from the travel-time matrix service (--source matrix).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reg, err := buildRegistry(cfg.Compute)
		if err != nil {
			return err
		}

		origins := computeOrigins
		if len(origins) == 0 {
			origins, err = st.ListOriginIDs(ctx)
			if err != nil {
				return err
			}
		}
		if len(origins) == 0 {
			return eris.New("no origin locations; run import first")
		}

		opps, err := st.LoadOpportunities(ctx)
		if err != nil {
			return err
		}

		source, err := buildSource(ctx, st, computeSource)
		if err != nil {
			return err
		}

		batchSize := computeBatchSize
		if batchSize == 0 {
			batchSize = cfg.Compute.BatchSize
		}
		workers := computeWorkers
		if workers == 0 {
			workers = cfg.Compute.Workers
		}

		run, err := st.CreateRun(ctx, batchSize, reg.Names())
		if err != nil {
			return err
		}

		retry := resilience.DefaultRetryConfig()
		if cfg.Compute.MaxRetries > 0 {
			retry.MaxAttempts = cfg.Compute.MaxRetries
		}
		retry.OnRetry = resilience.RetryLogger("compute", "batch commit")

		controller := &access.Controller{
			Source:        source,
			Opportunities: opps,
			Registry:      reg,
			BatchSize:     batchSize,
			Workers:       workers,
			Retry:         retry,
		}

		start := time.Now()
		report, runErr := controller.Run(ctx, origins, store.NewSink(st, run.ID))

		status := store.RunStatusComplete
		if runErr != nil {
			status = store.RunStatusFailed
		}
		if err := st.FinishRun(context.WithoutCancel(ctx), run.ID, status); err != nil {
			zap.L().Warn("finish run", zap.Error(err))
		}

		logReport(run.ID, report, time.Since(start))
		return runErr
	},
}

// buildRegistry loads the measure catalog from file when configured, falling
// back to the built-in presets.
func buildRegistry(c config.ComputeConfig) (*measure.Registry, error) {
	path := computeMeasureFile
	if path == "" {
		path = c.MeasureFile
	}
	if path != "" {
		return measure.LoadFile(path)
	}
	return measure.FromPresets()
}

// buildSource picks between the stored cost relation and the live matrix
// service.
func buildSource(ctx context.Context, st store.Store, kind string) (access.CostSource, error) {
	switch kind {
	case "db":
		return store.NewSource(st), nil

	case "matrix":
		locs, err := st.ListLocations(ctx)
		if err != nil {
			return nil, err
		}
		points := make(map[string]matrix.Point, len(locs))
		var destIDs []string
		for _, l := range locs {
			points[l.ID] = matrix.Point{Lng: l.Lng, Lat: l.Lat}
			if l.Kind == store.KindDestination {
				destIDs = append(destIDs, l.ID)
			}
		}
		if len(destIDs) == 0 {
			return nil, eris.New("no destination locations; run import first")
		}

		opts := []matrix.Option{
			matrix.WithProfile(cfg.Matrix.Profile),
			matrix.WithRateLimit(cfg.Matrix.RatePerSecond, cfg.Matrix.RateBurst),
		}
		if cfg.Matrix.TimeoutSeconds > 0 {
			opts = append(opts, matrix.WithTimeout(time.Duration(cfg.Matrix.TimeoutSeconds)*time.Second))
		}
		client := matrix.NewClient(cfg.Matrix.BaseURL, opts...)
		return access.NewMatrixSource(client, points, destIDs), nil

	default:
		return nil, eris.Errorf("unknown cost source %q (want db or matrix)", kind)
	}
}

func logReport(runID string, report *access.Report, elapsed time.Duration) {
	if report == nil {
		return
	}
	log := zap.L().With(zap.String("run_id", runID))
	log.Info("compute finished",
		zap.Int("origins_total", report.OriginsTotal),
		zap.Int("origins_scored", report.OriginsScored),
		zap.Int("batches_committed", report.BatchesCommitted),
		zap.Int("batches_total", report.BatchesTotal),
		zap.Int("origins_failed", len(report.Failures)),
		zap.Duration("elapsed", elapsed),
	)
	for _, f := range report.Failures {
		log.Warn("origin not scored",
			zap.String("origin", f.OriginID),
			zap.Error(f.Err),
		)
	}
}

func init() {
	computeCmd.Flags().IntVar(&computeBatchSize, "batch-size", 0, "origins per batch (default from config)")
	computeCmd.Flags().IntVar(&computeWorkers, "workers", 0, "concurrent origin computations per batch (default from config)")
	computeCmd.Flags().StringVar(&computeMeasureFile, "measures", "", "measure catalog YAML (default: built-in presets)")
	computeCmd.Flags().StringVar(&computeSource, "source", "db", "cost source: db or matrix")
	computeCmd.Flags().StringSliceVar(&computeOrigins, "origins", nil, "restrict to specific origin ids")
	rootCmd.AddCommand(computeCmd)
}
