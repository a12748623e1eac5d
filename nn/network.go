// Package nn implements a sigmoid multilayer perceptron trained with
// full-batch gradient descent.
//
// Layer k of a network with H hidden layers is the input layer for k = 0,
// a hidden layer for 1 <= k <= H and the output layer for k = H+1. Every layer
// but the output owns the weights to the next one, shaped
// [next.Units][1+Units]; column 0 holds the bias weights.
package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"mlptrain/tensor"
)

// WeightSource fills a freshly allocated weight matrix.
type WeightSource interface {
	FillMatrix(m *mat.Dense)
}

// Layer is one row of units.
type Layer struct {
	Units int

	act      *mat.Dense // owned activation buffer, nil on the input layer
	units    []float64  // activations, borrowed from the caller on the input layer
	w        *mat.Dense // outgoing weights, nil on the output layer
	external bool       // w was supplied through InitWeights
}

// Activations returns the layer's current activations.
func (l *Layer) Activations() []float64 { return l.units }

// Weights returns the outgoing weight matrix, nil on the output layer.
func (l *Layer) Weights() *mat.Dense { return l.w }

// Network is a chain of layers from input to output.
type Network struct {
	alloc    tensor.Allocator
	layers   []Layer
	hidden   int
	expected []float64
}

// New builds a network with the given unit counts. Weight matrices are filled
// by src; a nil src leaves them at zero. On failure everything allocated so
// far is released.
func New(alloc tensor.Allocator, src WeightSource, inputs, outputs int, hidden []int) (*Network, error) {
	sizes := make([]int, 0, len(hidden)+2)
	sizes = append(sizes, inputs)
	sizes = append(sizes, hidden...)
	sizes = append(sizes, outputs)
	for k, s := range sizes {
		if s <= 0 {
			return nil, errors.Wrapf(ErrShape, "layer %d has %d units", k, s)
		}
	}

	n := &Network{
		alloc:  alloc,
		layers: make([]Layer, len(sizes)),
		hidden: len(hidden),
	}
	for k, s := range sizes {
		n.layers[k].Units = s
	}

	for k := 1; k < len(n.layers); k++ {
		l := &n.layers[k]
		d, row, err := tensor.Vector(alloc, l.Units, true)
		if err != nil {
			n.Destroy()
			return nil, errors.Wrapf(err, "allocating units of layer %d", k)
		}
		l.act, l.units = d, row
	}

	for k := 0; k+1 < len(n.layers); k++ {
		l := &n.layers[k]
		w, err := alloc.Alloc(n.layers[k+1].Units, 1+l.Units, src == nil)
		if err != nil {
			n.Destroy()
			return nil, errors.Wrapf(err, "allocating weights of layer %d", k)
		}
		l.w = w
		if src != nil {
			src.FillMatrix(w)
		}
	}
	return n, nil
}

// InitWeights replaces the weights of every non-output layer with ws, which
// the network takes ownership of. Nothing is replaced if any shape is wrong.
func (n *Network) InitWeights(ws []*mat.Dense) error {
	if len(ws) != len(n.layers)-1 {
		return errors.Wrapf(ErrShape, "got %d weight matrices, want %d", len(ws), len(n.layers)-1)
	}
	for k, w := range ws {
		if w == nil {
			return errors.Wrapf(ErrShape, "weight matrix %d is nil", k)
		}
		r, c := w.Dims()
		wr, wc := n.layers[k+1].Units, 1+n.layers[k].Units
		if r != wr || c != wc {
			return errors.Wrapf(ErrShape, "weight matrix %d is %dx%d, want %dx%d", k, r, c, wr, wc)
		}
	}
	for k, w := range ws {
		l := &n.layers[k]
		n.releaseWeights(l)
		l.w, l.external = w, true
	}
	return nil
}

// Bind points the input layer at input and records expected as the target
// output. Both slices stay owned by the caller.
func (n *Network) Bind(input, expected []float64) error {
	if input == nil || expected == nil {
		return errors.Wrap(ErrInvalidExample, "missing input or expected output")
	}
	if len(input) != n.layers[0].Units {
		return errors.Wrapf(ErrInvalidExample, "input has %d values, want %d", len(input), n.layers[0].Units)
	}
	if len(expected) != n.Output().Units {
		return errors.Wrapf(ErrInvalidExample, "expected output has %d values, want %d", len(expected), n.Output().Units)
	}
	n.layers[0].units = input
	n.expected = expected
	return nil
}

// Destroy returns every owned buffer to the allocator. Bound input and
// expected slices are dropped without being touched.
func (n *Network) Destroy() {
	for k := range n.layers {
		l := &n.layers[k]
		if l.act != nil {
			n.alloc.Release(l.act)
			l.act = nil
		}
		l.units = nil
		n.releaseWeights(l)
	}
	n.layers = nil
	n.expected = nil
}

func (n *Network) releaseWeights(l *Layer) {
	if l.w != nil && !l.external {
		n.alloc.Release(l.w)
	}
	l.w, l.external = nil, false
}

// Layers returns the layer chain, input first.
func (n *Network) Layers() []Layer { return n.layers }

// Hidden returns the number of hidden layers.
func (n *Network) Hidden() int { return n.hidden }

// Input returns the input layer.
func (n *Network) Input() *Layer { return &n.layers[0] }

// Output returns the output layer.
func (n *Network) Output() *Layer { return &n.layers[len(n.layers)-1] }

// Weights returns the weights from layer k to layer k+1.
func (n *Network) Weights(k int) *mat.Dense { return n.layers[k].w }

// Shape returns the unit count of every layer.
func (n *Network) Shape() []int {
	s := make([]int, len(n.layers))
	for k, l := range n.layers {
		s[k] = l.Units
	}
	return s
}
