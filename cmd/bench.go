package main

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/kass/go-openroute/pkg/api"
	"github.com/kass/go-openroute/pkg/geo"
	"github.com/kass/go-openroute/pkg/routing"
)

var (
	numRequests int
	numWorkers  int
)

var benchCmd = &cobra.Command{
	Use:   "bench <lat,lon> <lat,lon> [lat,lon...]",
	Short: "Run concurrent route requests against the service",
	Long: `Send the same route request from several worker goroutines and report
throughput, latency and failures by kind. Each request counts against the API quota.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringVarP(&profileName, "profile", "p", "car", "Travel profile: car, bicycle or walking")
	benchCmd.Flags().IntVarP(&numRequests, "requests", "r", 20, "Number of requests to send")
	benchCmd.Flags().IntVarP(&numWorkers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
}

type benchResult struct {
	completed int64
	failures  map[routing.ErrorKind]int64
	latencies []time.Duration
	elapsed   time.Duration
}

func runBench(cmd *cobra.Command, args []string) error {
	waypoints, err := parseCoordinates(args)
	if err != nil {
		return err
	}
	profile, err := routing.ParseProfile(profileName)
	if err != nil {
		return err
	}
	if numRequests < 1 || numWorkers < 1 {
		return fmt.Errorf("requests and workers must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, log, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	fmt.Printf("Running %d %s route requests using %d workers...\n", numRequests, profile, numWorkers)

	res := benchmark(cmd.Context(), client, waypoints, profile, numRequests, numWorkers)

	printTitle("Benchmark Results")
	printStat("Completed requests", res.completed)
	printStat("Total time", res.elapsed.Round(time.Millisecond))
	if res.completed > 0 {
		printStat("Requests per second", fmt.Sprintf("%.1f", float64(res.completed)/res.elapsed.Seconds()))
		printStat("Median latency", percentile(res.latencies, 0.5).Round(time.Millisecond))
		printStat("p95 latency", percentile(res.latencies, 0.95).Round(time.Millisecond))
	}
	for kind, n := range res.failures {
		printStat("Failed ("+kind.String()+")", n)
	}
	if len(res.failures) == 0 {
		printSuccess("all requests succeeded")
	}
	return nil
}

// benchmark splits the requests evenly over the workers, the last worker
// takes the remainder
func benchmark(ctx context.Context, routes api.RouteComputer, waypoints []geo.Coordinate, profile routing.Profile, requests, workers int) benchResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if workers > requests {
		workers = requests
	}

	var completed atomic.Int64
	var mu sync.Mutex
	failures := make(map[routing.ErrorKind]int64)
	latencies := make([]time.Duration, 0, requests)

	start := time.Now()

	var wg sync.WaitGroup
	perWorker := requests / workers

	for w := 0; w < workers; w++ {
		wg.Add(1)
		startIdx := w * perWorker
		endIdx := startIdx + perWorker
		if w == workers-1 {
			endIdx = requests
		}

		go func(workerID, start, end int) {
			defer wg.Done()

			for i := start; i < end; i++ {
				t := time.Now()
				route, err := routes.ComputeRoute(ctx, waypoints, profile)
				took := time.Since(t)

				mu.Lock()
				if err != nil {
					failures[routing.KindOf(err)]++
				} else {
					latencies = append(latencies, took)
				}
				mu.Unlock()

				if err != nil {
					if verbose {
						fmt.Printf("Worker %d: request %d failed: %v\n", workerID, i, err)
					}
					continue
				}
				completed.Add(1)

				if verbose {
					fmt.Printf("Worker %d: request %d returned %d steps in %v\n", workerID, i, len(route.Steps), took)
				}
			}
		}(w, startIdx, endIdx)
	}

	wg.Wait()

	return benchResult{
		completed: completed.Load(),
		failures:  failures,
		latencies: latencies,
		elapsed:   time.Since(start),
	}
}

// percentile returns the nearest-rank percentile, p in [0, 1]
func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(p*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
