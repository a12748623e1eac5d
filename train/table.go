package train

import (
	"github.com/pkg/errors"

	"mlptrain/dataset"
	"mlptrain/nn"
)

// Spec is one row of the hyperparameter table.
type Spec struct {
	Name           string      `json:"name"`
	Examples       int         `json:"examples"`
	Features       int         `json:"features"`
	Labels         int         `json:"labels"`
	Hidden         []int       `json:"hidden"`
	Iterations     int         `json:"iterations"`
	LearningRate   float64     `json:"learning_rate"`
	Regularization float64     `json:"regularization"`
	Distance       nn.Distance `json:"distance"`

	// Data names a CSV training set; random examples are used when empty.
	Data      string         `json:"data,omitempty"`
	Format    dataset.Format `json:"format,omitempty"`
	Normalize bool           `json:"normalize,omitempty"`
}

// Params returns the training parameters described by s.
func (s Spec) Params() nn.Params {
	return nn.Params{
		Examples:       s.Examples,
		Iterations:     s.Iterations,
		LearningRate:   s.LearningRate,
		Regularization: s.Regularization,
		Distance:       s.Distance,
	}
}

// Validate reports the first unusable field of s.
func (s Spec) Validate() error {
	if s.Features <= 0 {
		return errors.Errorf("train: %s: features must be positive, got %d", s.Name, s.Features)
	}
	if s.Labels <= 0 {
		return errors.Errorf("train: %s: labels must be positive, got %d", s.Name, s.Labels)
	}
	for i, h := range s.Hidden {
		if h <= 0 {
			return errors.Errorf("train: %s: hidden layer %d has %d units", s.Name, i, h)
		}
	}
	return errors.WithMessage(s.Params().Validate(), s.Name)
}

// Table lists every network to train and the worker count to train them with.
type Table struct {
	Threads  int    `json:"threads"`
	Networks []Spec `json:"networks"`
}

// Validate checks the thread count and every row.
func (t Table) Validate() error {
	if t.Threads <= 0 {
		return errors.Errorf("train: thread count must be positive, got %d", t.Threads)
	}
	if len(t.Networks) == 0 {
		return errors.New("train: no networks to train")
	}
	for _, s := range t.Networks {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// DefaultTable is four 400-feature, 10-label networks trained on four workers.
func DefaultTable() Table {
	row := func(name string, lr, reg float64, hidden int, d nn.Distance) Spec {
		return Spec{
			Name:           name,
			Examples:       10000,
			Features:       20 * 20,
			Labels:         10,
			Hidden:         []int{hidden},
			Iterations:     50,
			LearningRate:   lr,
			Regularization: reg,
			Distance:       d,
		}
	}
	return Table{
		Threads: 4,
		Networks: []Spec{
			row("n1", 0.003, 0, 20, nn.Log),
			row("n2", 0.1, 1, 25, nn.Squared),
			row("n3", 0.1, 2, 30, nn.Squared),
			row("n4", 0.1, 3, 35, nn.Log),
		},
	}
}
