package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/versedb/cmd/util"
	"github.com/ValentinKolb/versedb/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for versedb servers",
		Long:    "Runs parallel benchmarks (add, add-large, select, select-range, remove-range, mixed) against a running server. All test keys start with __test and are removed afterwards.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)

	// perfTimers records the latency of every single request per test
	perfTimers = metrics.NewRegistry()
)

// perfPercentiles are reported for every test
var perfPercentiles = []float64{0.5, 0.95, 0.99}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. add,select)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the add-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfTest is a single benchmark. If prefill is set, all keys of the test are added before the timer starts.
// op is called with the key for the current iteration and the per goroutine counter.
type perfTest struct {
	name    string
	prefill bool
	op      func(key []byte, counter int) error
}

// perfResult is the outcome of a perfTest
type perfResult struct {
	bench testing.BenchmarkResult
	timer metrics.Timer
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for versedb servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	if _, err := rpcStore.Echo("perf"); err != nil {
		return fmt.Errorf("server is not reachable: %w", err)
	}

	fmt.Println("starting tests...")

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	smallValue := []byte("test")

	tests := []perfTest{
		{
			name: "add",
			op: func(key []byte, _ int) error {
				return rpcStore.Add(key, smallValue)
			},
		},
		{
			name: "add-large",
			op: func(key []byte, _ int) error {
				return rpcStore.Add(key, largeValue)
			},
		},
		{
			name:    "select",
			prefill: true,
			op: func(key []byte, _ int) error {
				_, _, err := rpcStore.Select(key)
				return err
			},
		},
		{
			name:    "select-range",
			prefill: true,
			op: func(_ []byte, _ int) error {
				start, end := testRange("select-range")
				_, err := rpcStore.SelectRange(start, end)
				return err
			},
		},
		{
			name:    "remove-range",
			prefill: true,
			op: func(key []byte, _ int) error {
				// removes a single key range and puts the key back
				if _, err := rpcStore.RemoveRange(key, successor(key)); err != nil {
					return err
				}
				return rpcStore.Add(key, smallValue)
			},
		},
		{
			name:    "mixed",
			prefill: true,
			op: func(key []byte, counter int) error {
				var err error
				switch counter % 4 {
				case 0: // add
					err = rpcStore.Add(key, smallValue)
				case 1: // select
					_, _, err = rpcStore.Select(key)
				case 2: // remove
					err = rpcStore.Remove(key)
				case 3: // select range
					_, err = rpcStore.SelectRange(key, successor(key))
				}
				return err
			},
		},
	}

	// Create results map
	results := make(map[string]perfResult)
	order := make([]string, 0, len(tests))

	for _, test := range tests {
		result := runPerfTest(test)
		results[test.name] = result
		order = append(order, test.name)
		printResult(test.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, order, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runPerfTest runs a single test with testing.Benchmark and records the latency of every call
func runPerfTest(test perfTest) perfResult {
	timer := metrics.GetOrRegisterTimer(test.name, perfTimers)

	bench := testing.Benchmark(func(b *testing.B) {
		if shouldSkip(test.name) {
			return
		}

		// prepare keys
		getKey, iter := getKeys(test.name)

		if test.prefill {
			iter(func(k []byte) {
				if err := rpcStore.Add(k, []byte("test")); err != nil {
					log.Printf("(%s) - error adding key: %v\n", test.name, err)
				}
			})
		}

		// cleanup
		b.Cleanup(func() {
			start, end := testRange(test.name)
			if _, err := rpcStore.RemoveRange(start, end); err != nil {
				log.Printf("(%s) - error removing keys: %v\n", test.name, err)
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := test.op(getKey(counter), counter); err != nil {
					log.Printf("(%s) - error performing operation: %v\n", test.name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})

	return perfResult{bench: bench, timer: timer}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// testRange returns the half-open range that contains all keys of a test
func testRange(test string) ([]byte, []byte) {
	prefix := fmt.Sprintf("%s-%s-", perfKeyPrefix, test)
	end := []byte(prefix)
	end[len(end)-1]++ // '-' + 1
	return []byte(prefix), end
}

// successor returns the smallest key greater than key, so [key, successor(key)) contains only key
func successor(key []byte) []byte {
	next := make([]byte, len(key)+1)
	copy(next, key)
	return next
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) []byte, func(func([]byte))) {
	keys := make([][]byte, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = []byte(fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i))
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) []byte {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func([]byte)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// opsPerSec returns ns/op and ops/sec of a result, or zeros if the test was skipped
func opsPerSec(result testing.BenchmarkResult) (float64, float64) {
	if result.NsPerOp() == 0 {
		return 0, 0
	}
	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	return nsPerOp, 1.0 / (nsPerOp / 1e9)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	nsPerOp, ops := opsPerSec(result.bench)
	if nsPerOp == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	ps := result.timer.Percentiles(perfPercentiles)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), ops,
		time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, order []string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P95", "P99", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, test := range order {
		result := results[test]
		nsPerOp, ops := opsPerSec(result.bench)
		ps := result.timer.Percentiles(perfPercentiles)

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", ops),
			time.Duration(ps[0]).String(),
			time.Duration(ps[1]).String(),
			time.Duration(ps[2]).String(),
			strconv.FormatBool(nsPerOp == 0),
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.Retries()),
			strconv.Itoa(config.Transport.ConnectionsPerEP()),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
