// Package tensor hands out the dense buffers used by networks and training runs.
package tensor

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrAllocation is returned when a buffer cannot be provided.
var ErrAllocation = errors.New("tensor: allocation failure")

// Allocator provides rows×cols buffers and takes them back.
// A buffer requested with zero=false may hold stale values.
type Allocator interface {
	Alloc(rows, cols int, zero bool) (*mat.Dense, error)
	Release(d *mat.Dense)
}

// Heap allocates from the Go heap and recycles released buffers per shape.
type Heap struct {
	mu    sync.Mutex
	pools map[shape]*sync.Pool
}

type shape struct{ r, c int }

// NewHeap returns an empty Heap allocator.
func NewHeap() *Heap {
	return &Heap{pools: make(map[shape]*sync.Pool)}
}

func (h *Heap) pool(r, c int) *sync.Pool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pools == nil {
		h.pools = make(map[shape]*sync.Pool)
	}
	k := shape{r, c}
	p, ok := h.pools[k]
	if !ok {
		p = &sync.Pool{
			New: func() interface{} {
				return mat.NewDense(r, c, nil)
			},
		}
		h.pools[k] = p
	}
	return p
}

// Alloc returns a rows×cols buffer.
func (h *Heap) Alloc(rows, cols int, zero bool) (*mat.Dense, error) {
	if err := checkShape(rows, cols); err != nil {
		return nil, err
	}
	d := h.pool(rows, cols).Get().(*mat.Dense)
	if zero {
		d.Zero()
	}
	return d, nil
}

// Release hands d back for reuse. d must not be used afterwards.
func (h *Heap) Release(d *mat.Dense) {
	if d == nil || d.IsEmpty() {
		return
	}
	r, c := d.Dims()
	h.pool(r, c).Put(d)
}

func checkShape(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return errors.Wrapf(ErrAllocation, "invalid shape %dx%d", rows, cols)
	}
	return nil
}

// Ledger wraps an Allocator and keeps count of what is outstanding.
type Ledger struct {
	Base Allocator

	mu       sync.Mutex
	live     map[*mat.Dense]struct{}
	allocs   int
	releases int
}

// NewLedger wraps base. A nil base means a fresh Heap.
func NewLedger(base Allocator) *Ledger {
	if base == nil {
		base = NewHeap()
	}
	return &Ledger{Base: base, live: make(map[*mat.Dense]struct{})}
}

// Alloc allocates from Base and records the buffer as live.
func (l *Ledger) Alloc(rows, cols int, zero bool) (*mat.Dense, error) {
	d, err := l.Base.Alloc(rows, cols, zero)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.live[d] = struct{}{}
	l.allocs++
	l.mu.Unlock()
	return d, nil
}

// Release panics if d was not handed out by this ledger or was already released.
func (l *Ledger) Release(d *mat.Dense) {
	if d == nil {
		return
	}
	l.mu.Lock()
	if _, ok := l.live[d]; !ok {
		l.mu.Unlock()
		panic(fmt.Sprintf("tensor: release of unknown buffer %p", d))
	}
	delete(l.live, d)
	l.releases++
	l.mu.Unlock()
	l.Base.Release(d)
}

// Live returns the number of buffers allocated and not yet released.
func (l *Ledger) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live)
}

// Counts returns the total number of allocations and releases seen.
func (l *Ledger) Counts() (allocs, releases int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allocs, l.releases
}

// Owns reports whether d is currently outstanding from this ledger.
func (l *Ledger) Owns(d *mat.Dense) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.live[d]
	return ok
}

// Budget fails every allocation after the first N.
type Budget struct {
	Base Allocator
	N    int

	mu   sync.Mutex
	used int
}

// Alloc fails with ErrAllocation once N buffers have been handed out.
func (b *Budget) Alloc(rows, cols int, zero bool) (*mat.Dense, error) {
	b.mu.Lock()
	if b.used >= b.N {
		b.mu.Unlock()
		return nil, errors.Wrapf(ErrAllocation, "budget of %d buffers exhausted", b.N)
	}
	b.used++
	b.mu.Unlock()
	return b.Base.Alloc(rows, cols, zero)
}

// Release returns d to Base. It does not restore the budget.
func (b *Budget) Release(d *mat.Dense) {
	b.Base.Release(d)
}

// Vector allocates a 1×n buffer and returns it with its backing row.
func Vector(a Allocator, n int, zero bool) (*mat.Dense, []float64, error) {
	d, err := a.Alloc(1, n, zero)
	if err != nil {
		return nil, nil, err
	}
	return d, d.RawRowView(0), nil
}

// Rows returns row views of d. Writes through the views change d.
func Rows(d *mat.Dense) [][]float64 {
	r, _ := d.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = d.RawRowView(i)
	}
	return rows
}
