package nn

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"mlptrain/rnd"
	"mlptrain/tensor"
)

// constWeights returns weight matrices for the given layer sizes, every entry set to v.
func constWeights(sizes []int, v float64) []*mat.Dense {
	ws := make([]*mat.Dense, len(sizes)-1)
	for k := range ws {
		r, c := sizes[k+1], 1+sizes[k]
		data := make([]float64, r*c)
		for i := range data {
			data[i] = v
		}
		ws[k] = mat.NewDense(r, c, data)
	}
	return ws
}

func TestNetworkShape(t *testing.T) {
	cases := []struct {
		in, out int
		hidden  []int
	}{
		{2, 1, nil},
		{2, 1, []int{2}},
		{400, 10, []int{20}},
		{3, 4, []int{5, 5}},
		{7, 2, []int{1, 9, 3}},
	}
	for _, c := range cases {
		n, err := New(tensor.NewHeap(), rnd.New(1), c.in, c.out, c.hidden)
		require.NoError(t, err)

		layers := n.Layers()
		require.Len(t, layers, 1+len(c.hidden)+1)
		assert.Equal(t, len(c.hidden), n.Hidden())
		assert.Equal(t, c.in, n.Input().Units)
		assert.Equal(t, c.out, n.Output().Units)
		for k := 0; k+1 < len(layers); k++ {
			r, cols := layers[k].Weights().Dims()
			assert.Equal(t, layers[k+1].Units, r, "rows of layer %d", k)
			assert.Equal(t, 1+layers[k].Units, cols, "cols of layer %d", k)
		}
		assert.Nil(t, n.Output().Weights())
		for k := 1; k < len(layers); k++ {
			assert.Len(t, layers[k].Activations(), layers[k].Units)
		}
		n.Destroy()
	}
}

func TestNewRejectsEmptyLayer(t *testing.T) {
	_, err := New(tensor.NewHeap(), nil, 2, 1, []int{0})
	assert.True(t, errors.Is(err, ErrShape))
	_, err = New(tensor.NewHeap(), nil, 0, 1, nil)
	assert.True(t, errors.Is(err, ErrShape))
}

func TestRandomWeightsInRange(t *testing.T) {
	n, err := New(tensor.NewHeap(), rnd.New(3), 5, 3, []int{4})
	require.NoError(t, err)
	defer n.Destroy()
	for k := 0; k < 2; k++ {
		w := n.Weights(k)
		r, c := w.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := w.At(i, j); v < 0 || v >= 1 {
					t.Errorf("weight %d[%d][%d] = %g, outside [0,1)", k, i, j, v)
				}
			}
		}
	}
}

func TestLifecycleReleasesEverything(t *testing.T) {
	ledger := tensor.NewLedger(nil)
	n, err := New(ledger, rnd.New(1), 3, 2, []int{4, 5})
	require.NoError(t, err)
	// three activation buffers and three weight matrices
	assert.Equal(t, 6, ledger.Live())

	input := []float64{0.1, 0.2, 0.3}
	expected := []float64{1, 0}
	require.NoError(t, n.Bind(input, expected))
	n.Feedforward()

	n.Destroy()
	assert.Equal(t, 0, ledger.Live())
	allocs, releases := ledger.Counts()
	assert.Equal(t, allocs, releases)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, input)
	assert.Equal(t, []float64{1, 0}, expected)

	// a second Destroy is a no-op
	n.Destroy()
	assert.Equal(t, 0, ledger.Live())
}

func TestAllocationFailureReleasesPartialNetwork(t *testing.T) {
	// a 3-[4,5]-2 network needs six buffers
	for budget := 0; budget < 6; budget++ {
		ledger := tensor.NewLedger(nil)
		_, err := New(&tensor.Budget{Base: ledger, N: budget}, rnd.New(1), 3, 2, []int{4, 5})
		if !errors.Is(err, tensor.ErrAllocation) {
			t.Fatalf("budget %d: got %v, want ErrAllocation", budget, err)
		}
		assert.Equal(t, 0, ledger.Live(), "budget %d", budget)
	}
}

func TestInitWeights(t *testing.T) {
	ledger := tensor.NewLedger(nil)
	n, err := New(ledger, rnd.New(1), 2, 1, []int{2})
	require.NoError(t, err)
	require.Equal(t, 4, ledger.Live())

	ws := constWeights(n.Shape(), 0.5)
	require.NoError(t, n.InitWeights(ws))
	// the random matrices went back to the allocator
	assert.Equal(t, 2, ledger.Live())
	assert.Same(t, ws[0], n.Weights(0))
	assert.Same(t, ws[1], n.Weights(1))

	n.Destroy()
	assert.Equal(t, 0, ledger.Live())
}

func TestInitWeightsRejectsBadShapes(t *testing.T) {
	n, err := New(tensor.NewHeap(), rnd.New(1), 2, 1, []int{2})
	require.NoError(t, err)
	defer n.Destroy()
	before := mat.DenseCopyOf(n.Weights(0))

	err = n.InitWeights(constWeights([]int{2, 2}, 1))
	assert.True(t, errors.Is(err, ErrShape))

	err = n.InitWeights(constWeights([]int{2, 3, 1}, 1))
	assert.True(t, errors.Is(err, ErrShape))
	assert.True(t, mat.Equal(before, n.Weights(0)))

	err = n.InitWeights([]*mat.Dense{nil, nil})
	assert.True(t, errors.Is(err, ErrShape))
}

func TestBindRejectsMissingExample(t *testing.T) {
	n, err := New(tensor.NewHeap(), rnd.New(1), 2, 1, nil)
	require.NoError(t, err)
	defer n.Destroy()

	assert.True(t, errors.Is(n.Bind(nil, []float64{1}), ErrInvalidExample))
	assert.True(t, errors.Is(n.Bind([]float64{1, 0}, nil), ErrInvalidExample))
	assert.True(t, errors.Is(n.Bind([]float64{1}, []float64{1}), ErrInvalidExample))
	assert.True(t, errors.Is(n.Bind([]float64{1, 0}, []float64{1, 0}), ErrInvalidExample))
	assert.NoError(t, n.Bind([]float64{1, 0}, []float64{1}))
}

func TestFeedforwardWithoutBindPanics(t *testing.T) {
	n, err := New(tensor.NewHeap(), rnd.New(1), 2, 1, nil)
	require.NoError(t, err)
	defer n.Destroy()
	assert.Panics(t, n.Feedforward)
}
