package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"mlptrain/tensor"
)

// Observer is told the cost at the start of every training iteration.
type Observer interface {
	Iteration(iter int, c CostResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(iter int, c CostResult)

func (f ObserverFunc) Iteration(iter int, c CostResult) { f(iter, c) }

// TrainResult summarizes a training run.
type TrainResult struct {
	Costs   []float64 // cost before each iteration's update
	Skipped int       // examples skipped per pass
}

// run holds the per-run buffers: one delta vector per non-input layer and one
// gradient accumulator per non-output layer.
type run struct {
	net    *Network
	p      Params
	dbufs  []*mat.Dense
	deltas [][]float64
	grads  []*mat.Dense
}

func newRun(n *Network, p Params) (*run, error) {
	t := &run{
		net:    n,
		p:      p,
		dbufs:  make([]*mat.Dense, 0, len(n.layers)-1),
		deltas: make([][]float64, 0, len(n.layers)-1),
		grads:  make([]*mat.Dense, 0, len(n.layers)-1),
	}
	for k := 1; k < len(n.layers); k++ {
		d, row, err := tensor.Vector(n.alloc, n.layers[k].Units, false)
		if err != nil {
			t.release()
			return nil, errors.Wrapf(err, "allocating deltas of layer %d", k)
		}
		t.dbufs = append(t.dbufs, d)
		t.deltas = append(t.deltas, row)
	}
	for k := 0; k+1 < len(n.layers); k++ {
		r, c := n.layers[k].w.Dims()
		g, err := n.alloc.Alloc(r, c, true)
		if err != nil {
			t.release()
			return nil, errors.Wrapf(err, "allocating gradient of layer %d", k)
		}
		t.grads = append(t.grads, g)
	}
	return t, nil
}

func (t *run) release() {
	for _, d := range t.dbufs {
		t.net.alloc.Release(d)
	}
	for _, g := range t.grads {
		t.net.alloc.Release(g)
	}
	t.dbufs, t.deltas, t.grads = nil, nil, nil
}

// backpropagate fills the accumulators with the learning-rate scaled gradient
// of the cost over every usable example.
func (t *run) backpropagate(inputs, outputs [][]float64) (CostResult, error) {
	var res CostResult
	n := t.net
	last := len(n.layers) - 1

	for _, g := range t.grads {
		g.Zero()
	}

	for m := 0; m < t.p.Examples; m++ {
		if err := n.Bind(example(inputs, m), example(outputs, m)); err != nil {
			res.Skipped++
			continue
		}
		n.Feedforward()
		res.Used++

		out := t.deltas[last-1]
		for i, h := range n.layers[last].units {
			out[i] = t.p.Distance.Delta(n.expected[i], h)
		}

		// deltas[k-1] belongs to layer k
		for k := last - 1; k > 0; k-- {
			cur := &n.layers[k]
			r, c := cur.w.Dims()
			back := mat.NewVecDense(cur.Units, t.deltas[k-1])
			back.MulVec(cur.w.Slice(0, r, 1, c).T(), mat.NewVecDense(r, t.deltas[k]))
			for i, s := range cur.units {
				t.deltas[k-1][i] *= sigmoidGrad(s)
			}
		}

		for k := 0; k < last; k++ {
			prev := n.layers[k].units
			g := t.grads[k]
			for i, d := range t.deltas[k] {
				row := g.RawRowView(i)
				row[0] += d
				floats.AddScaled(row[1:], d, prev)
			}
		}
	}
	if res.Used == 0 {
		return res, errors.Wrapf(ErrNoExamples, "all %d examples skipped", res.Skipped)
	}

	scale := t.p.LearningRate / float64(res.Used)
	for k, g := range t.grads {
		g.Scale(scale, g)
		if !t.p.regularized() {
			continue
		}
		w := n.layers[k].w
		r, _ := w.Dims()
		for i := 0; i < r; i++ {
			floats.AddScaled(g.RawRowView(i)[1:], t.p.LearningRate*t.p.Regularization, w.RawRowView(i)[1:])
		}
	}
	return res, nil
}

// update applies w -= accumulated gradient.
func (t *run) update() {
	for k, g := range t.grads {
		w := t.net.layers[k].w
		w.Sub(w, g)
	}
}

// Train runs p.Iterations iterations of full-batch gradient descent. The cost
// is evaluated before every iteration and reported to obs, which may be nil.
func Train(n *Network, inputs, outputs [][]float64, p Params, obs Observer) (TrainResult, error) {
	var res TrainResult
	if err := p.Validate(); err != nil {
		return res, err
	}
	if p.Examples == 0 {
		return res, errors.Wrap(ErrNoExamples, "training on an empty set")
	}

	t, err := newRun(n, p)
	if err != nil {
		return res, err
	}
	defer t.release()

	res.Costs = make([]float64, 0, p.Iterations)
	for iter := 1; iter <= p.Iterations; iter++ {
		c, err := Cost(n, inputs, outputs, p)
		if err != nil {
			return res, errors.Wrapf(err, "iteration %d", iter)
		}
		if obs != nil {
			obs.Iteration(iter, c)
		}
		res.Costs = append(res.Costs, c.Value)
		res.Skipped = c.Skipped

		if _, err := t.backpropagate(inputs, outputs); err != nil {
			return res, errors.Wrapf(err, "iteration %d", iter)
		}
		t.update()
	}
	return res, nil
}

// Gradient returns the accumulated, learning-rate scaled gradient of one pass
// without touching the weights. The returned matrices belong to the caller.
func Gradient(n *Network, inputs, outputs [][]float64, p Params) ([]*mat.Dense, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	t, err := newRun(n, p)
	if err != nil {
		return nil, err
	}
	defer t.release()

	if _, err := t.backpropagate(inputs, outputs); err != nil {
		return nil, err
	}
	gs := make([]*mat.Dense, len(t.grads))
	for k, g := range t.grads {
		gs[k] = mat.DenseCopyOf(g)
	}
	return gs, nil
}
