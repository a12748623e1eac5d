package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for a whole run
type TimingStats struct {
	WallTime  time.Duration
	CPUTime   time.Duration
	BuildTime time.Duration
	Jobs      []JobTiming
}

// JobTiming is the training time of one network
type JobTiming struct {
	Name       string
	Iterations int
	Time       time.Duration
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Wall time: %.6f s\n", stats.WallTime.Seconds())
	fmt.Fprintf(Output, "CPU time:  %.6f s\n", stats.CPUTime.Seconds())
	if stats.WallTime > 0 {
		fmt.Fprintf(Output, "CPU utilisation: %.2fx\n", float64(stats.CPUTime)/float64(stats.WallTime))
	}
	fmt.Fprintf(Output, "Build: %v (%.1f%%)\n", stats.BuildTime, percent(stats.BuildTime, stats.WallTime))
	if len(stats.Jobs) == 0 {
		return
	}
	fmt.Fprintln(Output, "\nBreakdown by network:")
	for _, j := range stats.Jobs {
		per := 0.0
		if j.Iterations > 0 {
			per = DurationUS(j.Time) / float64(j.Iterations)
		}
		fmt.Fprintf(Output, "  %s: %v (%.1f%%), %.1f µs per iteration\n", j.Name, j.Time, percent(j.Time, stats.WallTime), per)
	}
}

func percent(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
