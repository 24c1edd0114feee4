package connect

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dSock/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Round trip benchmark against a server in echo mode",
		Long: `Measures round trips against a server started with "dsock serve --echo". Every operation sends a message and waits until the server has sent all of it back.`,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfSmallMessage     = []byte("ping")
	perfLargeValueSizeKB = 64
	perfSkip             = make([]string, 0)
)

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. small,large)"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("How large the message of the large round trip test should be (in KB)"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	if perfLargeValueSizeKB < 1 {
		return fmt.Errorf("invalid large value size %d: must be at least 1", perfLargeValueSizeKB)
	}
	if skip := viper.GetString("skip"); skip != "" {
		perfSkip = strings.Split(skip, ",")
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Round trip benchmark for dSock servers")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	var failure error

	benchmark := func(name string, message []byte) {
		results[name] = testing.Benchmark(func(b *testing.B) {
			if shouldSkip(name) || failure != nil {
				return
			}
			b.SetBytes(int64(len(message)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := roundTrip(message); err != nil {
					failure = fmt.Errorf("(%s) - %w", name, err)
					return
				}
			}
		})
		printResult(name, results[name])
	}

	benchmark("small", perfSmallMessage)
	benchmark("large", bytes.Repeat([]byte{'x'}, perfLargeValueSizeKB*1024))

	if failure != nil {
		return failure
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", csvPath)
	}

	fmt.Printf("\nStatistics:\n%s", clientEndpoint.Stats())
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// roundTrip sends message and receives until the same number of bytes came back
func roundTrip(message []byte) error {
	if _, err := clientEndpoint.Send(message, true); err != nil {
		return err
	}
	received := 0
	for received < len(message) {
		reply, closed, err := clientEndpoint.Receive()
		if err != nil {
			return err
		}
		if closed {
			return fmt.Errorf("server closed the connection after %d of %d bytes", received, len(message))
		}
		received += len(reply)
	}
	if received != len(message) {
		return fmt.Errorf("expected %d bytes back, got %d", len(message), received)
	}
	return nil
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\t%.2f MB/s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, mbPerSec(result))
}

func mbPerSec(result testing.BenchmarkResult) float64 {
	if result.Bytes <= 0 || result.T <= 0 {
		return 0
	}
	return float64(result.Bytes) * float64(result.N) / 1e6 / result.T.Seconds()
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "MBPerSec", "Skipped",
		"Host", "Port", "TimeoutSec", "CoalesceWindow", "TCPNoDelay", "LargeValueSizeKB",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.2f", mbPerSec(result)),
			skipped,
			clientConfig.Host,
			strconv.Itoa(clientConfig.Port),
			strconv.Itoa(clientConfig.TimeoutSecond),
			clientConfig.CoalesceWindow.String(),
			strconv.FormatBool(clientConfig.TCP.TCPNoDelay),
			strconv.Itoa(perfLargeValueSizeKB),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
