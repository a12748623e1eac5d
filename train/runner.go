package train

import (
	"fmt"
	"log"
	"time"

	"github.com/pkg/errors"

	"mlptrain/dataset"
	"mlptrain/nn"
	"mlptrain/tensor"
)

// Mode selects how RunAll executes jobs.
type Mode int

const (
	Sequential Mode = iota
	Concurrent
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// BuildPolicy decides what Build does when a job cannot be built.
type BuildPolicy int

const (
	// Abort frees the jobs built so far and returns the error.
	Abort BuildPolicy = iota
	// Skip logs the failure and leaves the job out.
	Skip
)

// Runner turns a Table into jobs and executes them.
type Runner struct {
	Mode         Mode
	Threads      int
	OnBuildError BuildPolicy

	Alloc   tensor.Allocator
	Weights nn.WeightSource
	// Data fills the jobs whose Spec names no data file.
	Data DataSource

	// Log receives progress lines; nil keeps the runner quiet.
	Log *log.Logger
	// Observer, when set, is told every iteration of every job in addition to Log.
	Observer func(job *Job, iter int, c nn.CostResult)
}

// NewRunner returns a runner in DefaultMode with a heap allocator.
func NewRunner(threads int, weights nn.WeightSource, data DataSource) *Runner {
	return &Runner{
		Mode:    DefaultMode,
		Threads: threads,
		Alloc:   tensor.NewHeap(),
		Weights: weights,
		Data:    data,
	}
}

func (r *Runner) logf(format string, args ...interface{}) {
	if r.Log != nil {
		r.Log.Printf(format, args...)
	}
}

type dataKey struct {
	path      string
	format    dataset.Format
	normalize bool
	features  int
	labels    int
}

// source returns the data source for s, loading each data file once.
func (r *Runner) source(s Spec, loaded map[dataKey]*dataset.Set) (DataSource, error) {
	if s.Data == "" {
		return r.Data, nil
	}
	k := dataKey{s.Data, s.Format, s.Normalize, s.Features, s.Labels}
	if set, ok := loaded[k]; ok {
		return set, nil
	}
	set, err := dataset.Load(s.Data, s.Features, s.Labels, s.Format)
	if err != nil {
		return nil, err
	}
	if s.Normalize {
		set.Normalize()
	}
	loaded[k] = set
	return set, nil
}

// Build creates one job per table row, ids in table order.
func (r *Runner) Build(t Table) ([]*Job, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	jobs := make([]*Job, 0, len(t.Networks))
	loaded := make(map[dataKey]*dataset.Set)
	for id, s := range t.Networks {
		data, err := r.source(s, loaded)
		var j *Job
		if err == nil {
			j, err = BuildJob(id, s, r.Alloc, r.Weights, data)
		}
		if err == nil {
			r.logf("[%d]: built %s %v", id, s.Name, j.Net.Shape())
			jobs = append(jobs, j)
			continue
		}
		if r.OnBuildError == Skip {
			r.logf("[%d]: skipping %s: %v", id, s.Name, err)
			continue
		}
		for _, j := range jobs {
			j.Free()
		}
		return nil, err
	}
	return jobs, nil
}

func (r *Runner) observer(j *Job) nn.Observer {
	if r.Log == nil && r.Observer == nil {
		return nil
	}
	return nn.ObserverFunc(func(iter int, c nn.CostResult) {
		if r.Log != nil {
			if c.Skipped > 0 {
				r.Log.Printf("[job %d] Iteration %4d | cost = %g (%d skipped)", j.ID, iter, c.Value, c.Skipped)
			} else {
				r.Log.Printf("[job %d] Iteration %4d | cost = %g", j.ID, iter, c.Value)
			}
		}
		if r.Observer != nil {
			r.Observer(j, iter, c)
		}
	})
}

// JobReport is the outcome of one job.
type JobReport struct {
	ID         int
	Name       string
	Iterations int
	FinalCost  float64
	Skipped    int
	Duration   time.Duration
	Err        error
}

// Summary collects the reports of a RunAll call in job order.
type Summary struct {
	Jobs []JobReport
	Wall time.Duration
}

// Failed returns the number of jobs that ended with an error.
func (s Summary) Failed() int {
	n := 0
	for _, j := range s.Jobs {
		if j.Err != nil {
			n++
		}
	}
	return n
}

// Err returns the first job error, if any.
func (s Summary) Err() error {
	for _, j := range s.Jobs {
		if j.Err != nil {
			return errors.WithMessagef(j.Err, "%d of %d jobs failed", s.Failed(), len(s.Jobs))
		}
	}
	return nil
}

func report(j *Job) JobReport {
	rep := JobReport{
		ID:         j.ID,
		Name:       j.Spec.Name,
		Iterations: len(j.Result.Costs),
		Skipped:    j.Result.Skipped,
		Duration:   j.Duration,
		Err:        j.Err,
	}
	if n := len(j.Result.Costs); n > 0 {
		rep.FinalCost = j.Result.Costs[n-1]
	}
	return rep
}

// RunAll executes every job once and frees all of them, whatever the
// outcome. Job failures are reported in the summary; the error is only set
// when a job could not be executed at all: a nil, freed or already run job,
// or one listed twice. Nothing runs in that case.
func (r *Runner) RunAll(jobs []*Job) (Summary, error) {
	var sum Summary
	seen := make(map[*Job]bool, len(jobs))
	for i, j := range jobs {
		var err error
		switch {
		case j == nil:
			err = errors.Errorf("train: job %d is nil", i)
		case seen[j]:
			err = errors.Wrapf(ErrAlreadyRun, "job %d listed twice", j.ID)
		case j.Freed():
			err = errors.Wrapf(ErrFreed, "job %d", j.ID)
		case j.Ran():
			err = errors.Wrapf(ErrAlreadyRun, "job %d", j.ID)
		}
		if err != nil {
			freeAll(jobs)
			return sum, err
		}
		seen[j] = true
	}

	start := time.Now()
	switch r.Mode {
	case Sequential:
		for _, j := range jobs {
			r.logf("[%d]: running %s", j.ID, j.Spec.Name)
			if err := j.Run(r.observer(j)); err != nil {
				r.logf("[%d]: %v", j.ID, err)
			}
			j.Free()
		}
	case Concurrent:
		pool := NewPool(r.Threads, func(j *Job) {
			if err := j.Run(r.observer(j)); err != nil {
				r.logf("[%d]: %v", j.ID, err)
			}
		})
		for _, j := range jobs {
			if err := pool.Submit(j); err != nil {
				pool.Close()
				freeAll(jobs)
				return sum, err
			}
			r.logf("[%d]: added %s to the pool", j.ID, j.Spec.Name)
		}
		pool.Wait()
		pool.Close()
		freeAll(jobs)
	default:
		freeAll(jobs)
		return sum, errors.Errorf("train: unknown mode %v", r.Mode)
	}
	sum.Wall = time.Since(start)

	sum.Jobs = make([]JobReport, len(jobs))
	for i, j := range jobs {
		sum.Jobs[i] = report(j)
	}
	return sum, nil
}

// Run builds the table and runs it.
func (r *Runner) Run(t Table) (Summary, error) {
	jobs, err := r.Build(t)
	if err != nil {
		return Summary{}, err
	}
	return r.RunAll(jobs)
}

func freeAll(jobs []*Job) {
	for _, j := range jobs {
		if j != nil {
			j.Free()
		}
	}
}
