package nn

import "github.com/pkg/errors"

var (
	// ErrInvalidExample marks a training example that cannot be bound to the network.
	ErrInvalidExample = errors.New("nn: invalid example")
	// ErrNoExamples is returned when nothing is left to average over.
	ErrNoExamples = errors.Wrap(ErrInvalidExample, "no usable examples")
	// ErrShape reports a weight matrix or layer size that does not fit the network.
	ErrShape = errors.New("nn: shape mismatch")
)
