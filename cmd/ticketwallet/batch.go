package main

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/ticket-wallet/internal/app"
	"github.com/joseph-ayodele/ticket-wallet/internal/async"
	"github.com/joseph-ayodele/ticket-wallet/internal/core"
	"github.com/joseph-ayodele/ticket-wallet/internal/ingest"
)

func newBatchCmd() *cobra.Command {
	var (
		flags      passFlags
		workers    int
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Convert every PDF under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			opts, err := flags.apply(cfg)
			if err != nil {
				return err
			}
			a, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if workers <= 0 {
				workers = cfg.Server.Workers
			}
			var (
				succeeded, failed, passes atomic.Int64
				mu                        sync.Mutex
				failures                  []string
			)
			q := async.NewProcessorQueue(a.Processor, logger,
				async.WithWorkers(workers),
				async.WithQueueSize(cfg.Server.QueueSize),
				async.WithProcessTimeout(cfg.Server.ProcessTimeout),
				async.WithResultFunc(func(job async.Job, out core.Outcome, err error) {
					n := len(out.Result.Passes)
					passes.Add(int64(n))
					if n == 0 {
						failed.Add(1)
						mu.Lock()
						failures = append(failures, fmt.Sprintf("%s: %v", job.Path, err))
						mu.Unlock()
						return
					}
					succeeded.Add(1)
				}),
			)

			_, stats, err := ingest.NewService(q, logger).IngestDirectory(ctx, args[0], skipHidden, opts)
			q.Shutdown(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "scanned %d, matched %d, queued %d, enqueue failures %d\n",
				stats.Scanned, stats.Matched, stats.Queued, stats.Failed)
			_, _ = fmt.Fprintf(w, "converted %d, failed %d, passes %d\n",
				succeeded.Load(), failed.Load(), passes.Load())
			for _, f := range failures {
				_, _ = fmt.Fprintf(w, "  failed: %s\n", f)
			}
			if stats.Matched > 0 && succeeded.Load() == 0 {
				return fmt.Errorf("no passes produced from %d file(s)", stats.Matched)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel conversions (default: QUEUE_WORKERS)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot-files and dot-directories")
	return cmd
}

func init() {
	rootCmd.AddCommand(newBatchCmd())
}
