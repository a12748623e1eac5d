package nn

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Distance selects how a hypothesis is compared with the expected output.
// Each variant carries both its cost and the matching output-layer delta.
type Distance int

const (
	// Log is the cross-entropy distance y·ln(h) + (1-y)·ln(1-h).
	Log Distance = iota
	// Squared is the squared distance (y-h)².
	Squared
)

// logClamp keeps ln away from 0 and 1.
const logClamp = 1e-12

// Cost returns the cost contribution of one output unit with expected value y
// and hypothesis h.
func (d Distance) Cost(y, h float64) float64 {
	switch d {
	case Squared:
		return (y - h) * (y - h)
	default:
		p := math.Min(math.Max(h, logClamp), 1-logClamp)
		return -(y*math.Log(p) + (1-y)*math.Log(1-p))
	}
}

// Delta returns ∂cost/∂z for an output unit whose activation is h = σ(z).
func (d Distance) Delta(y, h float64) float64 {
	switch d {
	case Squared:
		return 2 * (h - y) * sigmoidGrad(h)
	default:
		return h - y
	}
}

func (d Distance) String() string {
	switch d {
	case Log:
		return "log"
	case Squared:
		return "squared"
	}
	return "unknown"
}

// ParseDistance accepts the names returned by String.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "log", "logdist", "cross-entropy":
		return Log, nil
	case "squared", "sqdist", "sq":
		return Squared, nil
	}
	return 0, errors.Errorf("nn: unknown distance %q", s)
}

// MarshalText encodes d by name, so tables read "log" or "squared".
func (d Distance) MarshalText() ([]byte, error) {
	if d != Log && d != Squared {
		return nil, errors.Errorf("nn: unknown distance %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts any name ParseDistance does.
func (d *Distance) UnmarshalText(b []byte) error {
	v, err := ParseDistance(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
