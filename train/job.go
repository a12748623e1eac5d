// Package train builds training jobs from a hyperparameter table and runs
// them one after another or on a bounded worker pool.
package train

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"mlptrain/nn"
	"mlptrain/tensor"
)

var (
	// ErrAlreadyRun is returned by Run on a job that has already run.
	ErrAlreadyRun = errors.New("train: job already run")
	// ErrFreed is returned by Run on a job whose buffers were released.
	ErrFreed = errors.New("train: job already freed")
)

// DataSource fills the example matrices of a job.
type DataSource interface {
	FillExamples(inputs, outputs *mat.Dense) error
}

// Filler writes values into a whole matrix.
type Filler interface {
	FillMatrix(m *mat.Dense)
}

// Random is a DataSource drawing every value from Src.
type Random struct {
	Src Filler
}

// FillExamples fills inputs, then outputs, from Src.
func (r Random) FillExamples(inputs, outputs *mat.Dense) error {
	r.Src.FillMatrix(inputs)
	r.Src.FillMatrix(outputs)
	return nil
}

// Job owns one network and its training set.
type Job struct {
	ID   int
	Spec Spec

	Net     *nn.Network
	Inputs  *mat.Dense // Examples x Features, nil when Examples is 0
	Outputs *mat.Dense // Examples x Labels, nil when Examples is 0

	Result   nn.TrainResult
	Err      error
	Duration time.Duration

	alloc tensor.Allocator
	ran   atomic.Bool
	freed atomic.Bool
}

// BuildJob allocates the network described by s with weights drawn from
// weights, and a training set filled by data. A nil data leaves the examples
// at zero. Nothing stays allocated when it fails.
func BuildJob(id int, s Spec, alloc tensor.Allocator, weights nn.WeightSource, data DataSource) (*Job, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	net, err := nn.New(alloc, weights, s.Features, s.Labels, s.Hidden)
	if err != nil {
		return nil, errors.Wrapf(err, "job %d", id)
	}
	j := &Job{ID: id, Spec: s, Net: net, alloc: alloc}
	if s.Examples == 0 {
		return j, nil
	}

	if j.Inputs, err = alloc.Alloc(s.Examples, s.Features, data == nil); err != nil {
		j.Free()
		return nil, errors.Wrapf(err, "job %d: allocating inputs", id)
	}
	if j.Outputs, err = alloc.Alloc(s.Examples, s.Labels, data == nil); err != nil {
		j.Free()
		return nil, errors.Wrapf(err, "job %d: allocating outputs", id)
	}
	if data != nil {
		if err := data.FillExamples(j.Inputs, j.Outputs); err != nil {
			j.Free()
			return nil, errors.Wrapf(err, "job %d: filling examples", id)
		}
	}
	return j, nil
}

// Run trains the network. A job runs at most once.
func (j *Job) Run(obs nn.Observer) error {
	if j.freed.Load() {
		return ErrFreed
	}
	if !j.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	start := time.Now()
	j.Result, j.Err = nn.Train(j.Net, rows(j.Inputs), rows(j.Outputs), j.Spec.Params(), obs)
	j.Duration = time.Since(start)
	if j.Err != nil {
		j.Err = errors.Wrapf(j.Err, "job %d", j.ID)
	}
	return j.Err
}

// Ran reports whether Run has been called.
func (j *Job) Ran() bool { return j.ran.Load() }

// Freed reports whether Free has been called.
func (j *Job) Freed() bool { return j.freed.Load() }

// Free releases the network and the training set. Later calls do nothing.
func (j *Job) Free() {
	if !j.freed.CompareAndSwap(false, true) {
		return
	}
	if j.Net != nil {
		j.Net.Destroy()
	}
	if j.Inputs != nil {
		j.alloc.Release(j.Inputs)
	}
	if j.Outputs != nil {
		j.alloc.Release(j.Outputs)
	}
	j.Net, j.Inputs, j.Outputs = nil, nil, nil
}

func rows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	return tensor.Rows(m)
}
