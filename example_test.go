package rsp_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pior/rsp"
	"github.com/pior/rsp/wire"
)

func ExampleNewClient() {
	client, err := rsp.NewClient("localhost:7468", rsp.Config{
		PoolSize:       3,
		RequestTimeout: 10 * time.Second,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	v, err := client.Execute(context.Background(), "META 'mic-1' 'sample_rate'")
	if err != nil {
		panic(err)
	}
	fmt.Println(wire.Format(v))
}

// Pipelined commands run in one round trip, each command receiving the
// result of the previous one.
func ExampleClient_Pipeline() {
	client, err := rsp.NewClient("localhost:7468", rsp.Config{})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	v, err := client.Pipeline().
		Range("mic-1", 12.5, 2).
		Encode("audio/flac").
		Execute(context.Background())
	if err != nil {
		panic(err)
	}

	if audio, ok := v.(wire.ByteVector); ok {
		fmt.Printf("received %d bytes of flac\n", len(audio))
	}
}

func ExampleUpload_Execute() {
	client, err := rsp.NewClient("localhost:7468", rsp.Config{})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	samples := make([]int32, 48000)

	err = client.Stream("mic-1").
		Compression(true).
		BatchSize(20).
		Execute(context.Background(), samples)

	var uploadErr *rsp.UploadError
	if errors.As(err, &uploadErr) {
		fmt.Printf("upload failed during %s: %v\n", uploadErr.Stage, uploadErr.Err)
		return
	}
}

// Example showing a client that stops sending requests to a failing server
func ExampleNewCircuitBreakerConfig() {
	client, err := rsp.NewClient("localhost:7468", rsp.Config{
		NewCircuitBreaker: rsp.NewCircuitBreakerConfig(
			3,              // maxRequests in half-open state
			time.Minute,    // interval to reset counts
			10*time.Second, // timeout before half-open
		),
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	stats := client.ServerStats()
	fmt.Printf("Server %s: circuit %s, %d consecutive failures\n",
		stats.Addr, stats.CircuitBreakerState, stats.CircuitBreakerCounts.ConsecutiveFailures)
}

// Example demonstrating how to collect stats for CLI tools
func ExampleClient_Stats() {
	client, err := rsp.NewClient("localhost:7468", rsp.Config{})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	stats := client.Stats()
	fmt.Printf("Commands: %d\n", stats.Commands)
	fmt.Printf("Uploads: %d (%d frames in %d batches)\n", stats.Uploads, stats.FramesSent, stats.BatchesSent)
	fmt.Printf("Errors: %d (%d from the server)\n", stats.Errors, stats.ServerErrors)

	pool := client.ServerStats().PoolStats
	fmt.Printf("Connections: %d idle, %d active\n", pool.IdleConns, pool.ActiveConns)
	if pool.AcquireWaitCount > 0 {
		fmt.Printf("Average Wait Time: %v\n", time.Duration(pool.AcquireWaitTimeNs/pool.AcquireWaitCount))
	}
}
