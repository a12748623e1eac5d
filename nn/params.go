package nn

import "github.com/pkg/errors"

// Params are the hyperparameters of one training run.
type Params struct {
	Examples       int      // number of training examples
	Iterations     int      // number of full-batch iterations
	LearningRate   float64  // gradient descent step size
	Regularization float64  // L2 coefficient, 0 disables regularization
	Distance       Distance // cost/gradient variant
}

// Validate reports the first unusable field.
func (p Params) Validate() error {
	switch {
	case p.Examples < 0:
		return errors.Errorf("nn: negative example count %d", p.Examples)
	case p.Iterations < 0:
		return errors.Errorf("nn: negative iteration count %d", p.Iterations)
	case p.LearningRate < 0:
		return errors.Errorf("nn: negative learning rate %g", p.LearningRate)
	case p.Regularization < 0:
		return errors.Errorf("nn: negative regularization %g", p.Regularization)
	case p.Distance != Log && p.Distance != Squared:
		return errors.Errorf("nn: unknown distance %d", int(p.Distance))
	}
	return nil
}

func (p Params) regularized() bool {
	return p.Regularization > 0
}
