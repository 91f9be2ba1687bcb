package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/store"
	"github.com/ValentinKolb/eKV/rpc/common"
	grpctransport "github.com/ValentinKolb/eKV/rpc/transport/grpc"
	"github.com/google/uuid"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for etcd through the eKV client",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__perf"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

// perfResult is the outcome of one benchmark
type perfResult struct {
	bench   testing.BenchmarkResult
	latency gometrics.Histogram // per operation latency in ns
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the client request metrics in Prometheus format after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	// keys of concurrent runs must not collide
	perfKeyPrefix = fmt.Sprintf("__perf/%s", uuid.NewString())

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for etcd")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Key prefix: %s\n", perfKeyPrefix)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]perfResult)
	largeValue := make([]byte, perfLargeValueSizeKB*1024)

	benchmarks := []struct {
		name    string
		prepare bool // put all keys before the run
		op      func(key []byte) error
	}{
		{"put", false, func(key []byte) error {
			return rpcStore.Put(key, []byte("test"))
		}},
		{"put-large", false, func(key []byte) error {
			return rpcStore.Put(key, largeValue)
		}},
		{"get", true, func(key []byte) error {
			_, _, err := rpcStore.Get(key)
			return err
		}},
		{"get-missing", false, func(key []byte) error {
			_, _, err := rpcStore.Get(key)
			return err
		}},
		{"get-prefix", true, func(key []byte) error {
			_, err := rpcStore.GetPrefix([]byte(perfKeyPrefix + "/get-prefix/"))
			return err
		}},
		{"delete", true, func(key []byte) error {
			return rpcStore.Delete([][]byte{key})
		}},
		{"swap", true, func(key []byte) error {
			// the value never changes, every swap succeeds
			return rpcStore.Swap(key, []byte("test"), []byte("test"))
		}},
		{"bulk-put", false, func(key []byte) error {
			return rpcStore.BulkPut([][]byte{key})
		}},
	}

	for _, bm := range benchmarks {
		result := runBenchmark(bm.name, bm.prepare, bm.op)
		results[bm.name] = result
		printResult(bm.name, result)
	}

	result := runBenchmark("mixed", true, mixedOp())
	results["mixed"] = result
	printResult("mixed", result)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	// Print client metrics if requested
	if viper.GetBool("metrics") {
		fmt.Println()
		grpctransport.WriteMetrics(os.Stdout)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs op in parallel on the test keys and records the latency of every call
func runBenchmark(name string, prepare bool, op func(key []byte) error) perfResult {
	latency := gometrics.NewHistogram(gometrics.NewUniformSample(4096))

	bench := testing.Benchmark(func(b *testing.B) {
		if shouldSkip(name) {
			return
		}

		getKey, iter := getKeys(name)

		// set keys
		if prepare {
			iter(func(k []byte) {
				if err := rpcStore.Put(k, []byte("test")); err != nil {
					log.Printf("(%s) - error setting key: %v\n", name, err)
				}
			})
		}

		// cleanup
		b.Cleanup(func() {
			if err := rpcStore.DeletePrefix([]byte(fmt.Sprintf("%s/%s/", perfKeyPrefix, name))); err != nil {
				log.Printf("(%s) - error deleting keys: %v\n", name, err)
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := op(getKey(counter)); err != nil {
					log.Printf("(%s) - error performing operation: %v\n", name, err)
				}
				latency.Update(time.Since(start).Nanoseconds())
				counter++
			}
		})
	})

	return perfResult{bench: bench, latency: latency}
}

// mixedOp cycles through put, get, swap and delete
func mixedOp() func(key []byte) error {
	var counter atomic.Uint64
	return func(key []byte) error {
		switch counter.Add(1) % 4 {
		case 0:
			return rpcStore.Put(key, []byte("test"))
		case 1:
			_, _, err := rpcStore.Get(key)
			return err
		case 2:
			// the key may have been deleted before
			if err := rpcStore.Swap(key, []byte("test"), []byte("test")); !store.IsSwapFailed(err) {
				return err
			}
			return nil
		default:
			return rpcStore.Delete([][]byte{key})
		}
	}
}

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) []byte, func(func([]byte))) {
	keys := make([][]byte, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = []byte(fmt.Sprintf("%s/%s/%d", perfKeyPrefix, prefix, i))
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

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p := result.latency.Percentiles([]float64{0.5, 0.99})

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(p[0]), time.Duration(p[1]))
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
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Skipped",
		"Endpoints", "TimeoutSec", "BatchSize",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"

		if result.bench.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p := result.latency.Percentiles([]float64{0.5, 0.99})

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			skipped,
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.GetBatchSize()),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
