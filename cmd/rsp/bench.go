package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/pior/rsp"
)

type OperationType string

const (
	OpPing   OperationType = "ping"
	OpMeta   OperationType = "meta"
	OpUpload OperationType = "upload"
)

type BenchmarkResult struct {
	Operation    OperationType
	Duration     time.Duration
	TotalOps     int64
	Successes    int64
	Failures     int64
	AvgLatency   time.Duration
	OpsPerSecond float64
	ErrorMessage string
}

type benchOptions struct {
	operation   string
	duration    time.Duration
	concurrency int
	stream      string
	samples     int
}

func newBenchCommand(a *app) *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure command or upload throughput against a server",
		Example: `  rsp bench --operation ping --concurrency 8
  rsp bench --operation upload --stream bench-1 --samples 48000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := benchOperation(a.client, opts)
			if err != nil {
				return err
			}
			result := runBenchmark(cmd.Context(), OperationType(opts.operation), op, opts.duration, opts.concurrency)
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.operation, "operation", string(OpPing), "operation type: ping, meta or upload")
	f.DurationVar(&opts.duration, "duration", 5*time.Second, "duration to run the benchmark")
	f.IntVar(&opts.concurrency, "concurrency", 1, "number of concurrent workers")
	f.StringVar(&opts.stream, "stream", "bench", "stream used by meta and upload")
	f.IntVar(&opts.samples, "samples", 48000, "samples per upload")
	return cmd
}

func benchOperation(client *rsp.Client, opts benchOptions) (func(ctx context.Context) error, error) {
	switch OperationType(opts.operation) {
	case OpPing:
		return client.Ping, nil

	case OpMeta:
		return func(ctx context.Context) error {
			_, err := client.Pipeline().Meta(opts.stream, "bit_depth").Execute(ctx)
			return err
		}, nil

	case OpUpload:
		samples := make([]int32, opts.samples)
		for i := range samples {
			samples[i] = int32(i % 4096)
		}
		return func(ctx context.Context) error {
			return client.Stream(opts.stream).Execute(ctx, samples)
		}, nil

	default:
		return nil, fmt.Errorf("unknown operation: %s", opts.operation)
	}
}

func runBenchmark(ctx context.Context, operation OperationType, op func(context.Context) error, duration time.Duration, concurrency int) *BenchmarkResult {
	result := &BenchmarkResult{Operation: operation}
	var totalOps, successes, failures, totalLatency atomic.Int64
	var firstErr atomic.Value

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	startTime := time.Now()
	var wg sync.WaitGroup

	for range max(concurrency, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for ctx.Err() == nil {
				opStart := time.Now()
				err := op(ctx)
				latency := time.Since(opStart)

				// An operation interrupted by the end of the run is not counted.
				if err != nil && (ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded)) {
					return
				}

				totalOps.Add(1)
				totalLatency.Add(int64(latency))
				if err != nil {
					failures.Add(1)
					firstErr.CompareAndSwap(nil, err.Error())
				} else {
					successes.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	result.Duration = time.Since(startTime)
	result.TotalOps = totalOps.Load()
	result.Successes = successes.Load()
	result.Failures = failures.Load()
	if msg, ok := firstErr.Load().(string); ok {
		result.ErrorMessage = msg
	}
	if result.TotalOps > 0 {
		result.AvgLatency = time.Duration(totalLatency.Load() / result.TotalOps)
		result.OpsPerSecond = float64(result.TotalOps) / result.Duration.Seconds()
	}
	return result
}

func printResult(w io.Writer, result *BenchmarkResult) {
	fmt.Fprintf(w, "Operation: %s\n", result.Operation)
	fmt.Fprintf(w, "Duration: %v\n", result.Duration)
	fmt.Fprintf(w, "Total Operations: %d\n", result.TotalOps)
	fmt.Fprintf(w, "Successes: %d\n", result.Successes)
	fmt.Fprintf(w, "Failures: %d\n", result.Failures)
	if result.TotalOps > 0 {
		fmt.Fprintf(w, "Success Rate: %.2f%%\n", float64(result.Successes)/float64(result.TotalOps)*100)
		fmt.Fprintf(w, "Ops/sec: %.2f\n", result.OpsPerSecond)
		fmt.Fprintf(w, "Avg Latency: %v\n", result.AvgLatency)
	}
	if result.ErrorMessage != "" {
		fmt.Fprintf(w, "Error: %s\n", result.ErrorMessage)
	}
}
