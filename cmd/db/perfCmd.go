package db

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

	"github.com/ValentinKolb/propdb/cmd/util"
	"github.com/ValentinKolb/propdb/lib/value"
	"github.com/ValentinKolb/propdb/rpc/client"
	"github.com/ValentinKolb/propdb/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for propdb servers",
		Long:    "Runs a set of benchmarks against one database (--db, default " + perfDefaultDatabase + "). The database is cleared afterwards.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfDefaultDatabase = "__perf"
	perfKeyPrefix       = "__test"
	perfLargeValueSize  = 16 * 1024
	perfNumThreads      = 10
	perfKeySpread       = 100
	perfSkip            = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 16*1024, util.WrapString("How large the string for the set-large test should be (in bytes)"))
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
	perfLargeValueSize = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfCase is one benchmark: prepare runs once before the timer starts, op runs for every iteration
type perfCase struct {
	name    string
	prepare func(d *client.RPCDatabase, keys []string)
	op      func(d *client.RPCDatabase, key string, i int) error
}

// perfResult combines the throughput of testing.Benchmark with the latency distribution of a timer
type perfResult struct {
	bench   testing.BenchmarkResult
	latency metrics.Timer
	errors  metrics.Counter
}

func fill(d *client.RPCDatabase, keys []string) {
	for _, k := range keys {
		if err := d.Set(k, value.String("test")); err != nil {
			log.Printf("error setting key: %v\n", err)
		}
	}
}

func perfCases() []perfCase {
	largeValue := value.String(strings.Repeat("x", perfLargeValueSize))
	pos := value.Vector(1.5, 64, -3)

	return []perfCase{
		{name: "set", op: func(d *client.RPCDatabase, key string, _ int) error {
			return d.Set(key, value.String("test"))
		}},
		{name: "set-vector", op: func(d *client.RPCDatabase, key string, _ int) error {
			return d.Set(key, pos)
		}},
		{name: "set-large", op: func(d *client.RPCDatabase, key string, _ int) error {
			return d.Set(key, largeValue)
		}},
		{name: "get", prepare: fill, op: func(d *client.RPCDatabase, key string, _ int) error {
			_, _, err := d.Get(key)
			return err
		}},
		{name: "get-missing", op: func(d *client.RPCDatabase, key string, _ int) error {
			_, _, err := d.Get(key + "-missing")
			return err
		}},
		{name: "delete", prepare: fill, op: func(d *client.RPCDatabase, key string, _ int) error {
			_, err := d.Delete(key)
			return err
		}},
		{name: "all", prepare: fill, op: func(d *client.RPCDatabase, _ string, _ int) error {
			_, err := d.Entries()
			return err
		}},
		{name: "flush", prepare: fill, op: func(d *client.RPCDatabase, _ string, _ int) error {
			return d.Flush()
		}},
		{name: "mixed", prepare: fill, op: func(d *client.RPCDatabase, key string, i int) error {
			var err error
			switch i % 4 {
			case 0:
				err = d.Set(key, value.Number(float64(i)))
			case 1:
				_, _, err = d.Get(key)
			case 2:
				_, err = d.Delete(key)
			case 3:
				_, err = d.Has(key)
			}
			return err
		}},
	}
}

func runPerf(_ *cobra.Command, _ []string) error {
	name := viper.GetString("db")
	if name == "" {
		name = perfDefaultDatabase
	}
	d := registry.Database(name)

	fmt.Println("Performance testing tool for propdb servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Database: %s\n", name)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]perfResult)
	for _, pc := range perfCases() {
		if shouldSkip(pc.name) {
			printResult(pc.name, nil)
			continue
		}
		result := runCase(d, pc)
		results[pc.name] = result
		printResult(pc.name, &result)
	}

	// Remove the test data
	if _, err := d.Clear(); err != nil {
		log.Printf("error clearing database %s: %v\n", name, err)
	} else if err := d.Flush(); err != nil {
		log.Printf("error flushing database %s: %v\n", name, err)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func runCase(d *client.RPCDatabase, pc perfCase) perfResult {
	result := perfResult{
		latency: metrics.NewTimer(),
		errors:  metrics.NewCounter(),
	}
	keys := getKeys(pc.name)

	result.bench = testing.Benchmark(func(b *testing.B) {
		if pc.prepare != nil {
			pc.prepare(d, keys)
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := keys[counter%len(keys)]
				start := time.Now()
				if err := pc.op(d, key, counter); err != nil {
					result.errors.Inc(1)
					log.Printf("(%s) - error: %v\n", pc.name, err)
				}
				result.latency.UpdateSince(start)
				counter++
			}
		})
	})

	return result
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// getKeys creates the test keys of a benchmark
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

// printResult prints the result of a benchmark test in a formatted way, nil means skipped
func printResult(test string, result *perfResult) {
	if result == nil || result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	snapshot := result.latency.Snapshot()

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s errors=%d\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		time.Duration(snapshot.Percentile(0.5)), time.Duration(snapshot.Percentile(0.99)),
		result.errors.Count())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "MaxNs", "Errors",
		"Endpoints", "TimeoutSec", "RetryCount", "Serializer",
		"Threads", "LargeValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1)
		opsPerSec := 1.0 / (nsPerOp / 1e9)
		snapshot := result.latency.Snapshot()

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", snapshot.Percentile(0.5)),
			fmt.Sprintf("%.0f", snapshot.Percentile(0.99)),
			strconv.FormatInt(snapshot.Max(), 10),
			strconv.FormatInt(result.errors.Count(), 10),
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			viper.GetString("serializer"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
