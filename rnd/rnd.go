// Package rnd fills vectors and matrices with uniform [0,1) samples from one
// shared, explicitly seeded generator.
package rnd

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Source is safe for concurrent use. The generator is seeded exactly once,
// on first use, whichever goroutine gets there first.
type Source struct {
	once sync.Once
	seed func() uint64

	mu   sync.Mutex
	dist distuv.Uniform
}

// New returns a Source seeded with seed.
func New(seed uint64) *Source {
	return &Source{seed: func() uint64 { return seed }}
}

// NewLazy returns a Source seeded from the clock when it is first used.
func NewLazy() *Source {
	return &Source{seed: func() uint64 { return uint64(time.Now().UnixNano()) }}
}

func (s *Source) init() {
	s.once.Do(func() {
		s.dist = distuv.Uniform{
			Min: 0,
			Max: 1,
			Src: rand.NewSource(s.seed()),
		}
	})
}

// Float64 returns a single sample.
func (s *Source) Float64() float64 {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample()
}

// sample keeps the result inside [0,1); callers hold mu.
func (s *Source) sample() float64 {
	for {
		v := s.dist.Rand()
		if v < 1 {
			return v
		}
	}
}

// FillVector overwrites every element of vec.
func (s *Source) FillVector(vec []float64) {
	s.init()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range vec {
		vec[i] = s.sample()
	}
}

// FillMatrix overwrites every element of m.
func (s *Source) FillMatrix(m *mat.Dense) {
	s.init()
	r, c := m.Dims()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = s.sample()
		}
	}
}
