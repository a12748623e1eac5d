package nn

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Feedforward computes the activations of every layer from the bound input.
func (n *Network) Feedforward() {
	if n.layers[0].units == nil {
		panic("nn: feedforward without a bound example")
	}
	for k := 0; k+1 < len(n.layers); k++ {
		cur, next := &n.layers[k], &n.layers[k+1]
		r, c := cur.w.Dims()
		z := mat.NewVecDense(next.Units, next.units)
		z.MulVec(cur.w.Slice(0, r, 1, c), mat.NewVecDense(cur.Units, cur.units))
		for i := range next.units {
			next.units[i] = sigmoid(cur.w.At(i, 0) + next.units[i])
		}
	}
}

// exampleCost is the cost of the bound example after Feedforward.
func (n *Network) exampleCost(d Distance) float64 {
	var cost float64
	for k, h := range n.Output().units {
		cost += d.Cost(n.expected[k], h)
	}
	return cost
}

// penalty is ½ Σ w² over every non-bias weight.
func (n *Network) penalty() float64 {
	var sum float64
	for k := 0; k+1 < len(n.layers); k++ {
		w := n.layers[k].w
		r, _ := w.Dims()
		for i := 0; i < r; i++ {
			row := w.RawRowView(i)[1:]
			sum += floats.Dot(row, row)
		}
	}
	return sum / 2
}

// CostResult is the outcome of one pass over the training set.
type CostResult struct {
	Value   float64 // averaged, possibly regularized cost
	Used    int     // examples that contributed
	Skipped int     // examples that could not be bound
}

// example returns row m or nil when there is none.
func example(rows [][]float64, m int) []float64 {
	if m < len(rows) {
		return rows[m]
	}
	return nil
}

// Cost evaluates the network on the first p.Examples examples. Examples that
// fail to bind are skipped and counted; the average is taken over the examples
// that were used.
func Cost(n *Network, inputs, outputs [][]float64, p Params) (CostResult, error) {
	var res CostResult
	if err := p.Validate(); err != nil {
		return res, err
	}
	if p.Examples == 0 {
		return res, errors.Wrap(ErrNoExamples, "cost over an empty training set")
	}

	var sum float64
	for m := 0; m < p.Examples; m++ {
		if err := n.Bind(example(inputs, m), example(outputs, m)); err != nil {
			res.Skipped++
			continue
		}
		n.Feedforward()
		sum += n.exampleCost(p.Distance)
		res.Used++
	}
	if res.Used == 0 {
		return res, errors.Wrapf(ErrNoExamples, "all %d examples skipped", res.Skipped)
	}

	res.Value = sum / float64(res.Used)
	if p.regularized() {
		res.Value += p.Regularization * n.penalty()
	}
	return res, nil
}
