package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/httpdispatch/dispatcher"
)

func newBenchCommand(opts *rootOptions) *cobra.Command {
	req := &requestOptions{}
	var requests, concurrency int

	cmd := &cobra.Command{
		Use:   "bench METHOD URL",
		Short: "Dispatch a request repeatedly and report latency percentiles",
		Example: `  httpdispatch bench GET https://api.example.com/health -n 500 -c 20
  httpdispatch bench GET /health --base-url http://localhost:8080 -o json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if requests < 1 || concurrency < 1 {
				return usageError(errors.New("requests and concurrency must be at least 1"))
			}
			res, err := req.build(args[0], args[1], cmd.InOrStdin())
			if err != nil {
				return usageError(err)
			}

			comp, err := opts.start(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = comp.Stop(context.Background()) }()

			stats := newLatencyStats()
			stats.start()
			runBench(cmd.Context(), requests, concurrency, func(ctx context.Context) error {
				_, err := dispatcher.Dispatch(ctx, comp.Dispatcher(), res)
				return err
			}, stats)
			stats.stop()

			report := stats.report()
			if err := opts.printer(cmd).report(report); err != nil {
				return err
			}
			if report.Failed > 0 {
				return &exitError{
					code:   ExitFailure,
					err:    fmt.Errorf("%d of %d requests failed", report.Failed, report.Requests),
					silent: true,
				}
			}
			return nil
		},
	}

	req.register(cmd.Flags())
	cmd.Flags().IntVarP(&requests, "requests", "n", 100, "Total number of requests")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 10, "Requests in flight at once")
	return cmd
}

// runBench calls fn n times from c workers, recording every call. It stops
// handing out work when ctx is done.
func runBench(ctx context.Context, n, c int, fn func(context.Context) error, stats *latencyStats) {
	jobs := make(chan struct{})
	var wg sync.WaitGroup

	for range min(c, n) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				begin := time.Now()
				err := fn(ctx)
				stats.record(time.Since(begin), err)
			}
		}()
	}

feed:
	for range n {
		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}
