// mlp-train: trains every network of a hyperparameter table and reports timings
//
// Usage:
//
//	mlp-train -config=table.json -threads=4 -seed=42 -hidden=20,25
//
// Build with -tags sequential to train the networks one after another.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mlptrain/rnd"
	"mlptrain/train"
	"mlptrain/utils"
)

var (
	configFile = flag.String("config", "", "Hyperparameter table (JSON); the built-in table when empty")
	threads    = flag.Int("threads", 0, "Worker count; the table's when 0")
	seed       = flag.Uint64("seed", 0, "Random seed; seeded from the clock when 0")
	hidden     = flag.String("hidden", "", "Hidden layer sizes for every network, e.g. \"20,25\"; the table's when empty")
	verbose    = flag.Bool("verbose", true, "Verbose output")
	writeTable = flag.String("write-table", "", "Write the table to this file and exit")
)

func main() {
	flag.Parse()
	cfg := &utils.Config{
		Threads:   *threads,
		Hidden:    *hidden,
		Seed:      *seed,
		Verbose:   *verbose,
		TablePath: *configFile,
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *utils.Config) error {
	if err := utils.ValidateConfig(cfg); err != nil {
		return err
	}
	utils.Verbose = cfg.Verbose

	table := train.DefaultTable()
	if cfg.TablePath != "" {
		t, err := utils.LoadTable(cfg.TablePath)
		if err != nil {
			return err
		}
		table = t
	}
	if cfg.Threads > 0 {
		table.Threads = cfg.Threads
	}
	if err := utils.OverrideHidden(&table, cfg.Hidden); err != nil {
		return err
	}
	if *writeTable != "" {
		return utils.SaveTable(*writeTable, table)
	}

	src := rnd.NewLazy()
	if cfg.Seed != 0 {
		src = rnd.New(cfg.Seed)
	}
	r := train.NewRunner(table.Threads, src, train.Random{Src: src})
	if cfg.Verbose {
		r.Log = log.New(utils.Output, "", log.Ltime)
	}

	if utils.Verbose {
		fmt.Fprintf(utils.Output, "Training %d networks, %s, %d threads\n", len(table.Networks), r.Mode, table.Threads)
	}

	stats := &utils.TimingStats{}
	cpuStart := utils.CPUTime()
	start := time.Now()

	jobs, err := r.Build(table)
	if err != nil {
		return err
	}
	stats.BuildTime = time.Since(start)

	sum, err := r.RunAll(jobs)
	if err != nil {
		return err
	}
	stats.WallTime = time.Since(start)
	stats.CPUTime = utils.CPUTime() - cpuStart

	for _, j := range sum.Jobs {
		stats.Jobs = append(stats.Jobs, utils.JobTiming{Name: j.Name, Iterations: j.Iterations, Time: j.Duration})
		if utils.Verbose && j.Err == nil {
			fmt.Fprintf(utils.Output, "[%d] %s: final cost %g after %d iterations\n", j.ID, j.Name, j.FinalCost, j.Iterations)
		}
	}
	utils.PrintTimingStats(stats)
	return sum.Err()
}
