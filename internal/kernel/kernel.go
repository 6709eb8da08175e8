// Package kernel implements the elementwise transforms the trainers are built
// from. Every transform is a pure function of its scalar parameters and the
// elements at one index, so any contiguous split of the slices yields the same
// result as a single pass.
//
// Slices passed to one call must have equal length; mismatches panic, as in
// gonum/floats.
package kernel

import (
	"gonum.org/v1/gonum/floats"

	"github.com/annet-ml/annet/internal/parallel"
)

// Exec runs kernels with a fixed fan-out configuration.
type Exec struct {
	cfg parallel.Config
}

// New returns an Exec using cfg.
func New(cfg parallel.Config) Exec {
	return Exec{cfg: cfg}
}

// Config returns the fan-out configuration.
func (e Exec) Config() parallel.Config {
	return e.cfg
}

func sameLen(a, b []float64) {
	if len(a) != len(b) {
		panic("kernel: length mismatch")
	}
}

// Axpy computes y ← a·x + y.
func (e Exec) Axpy(a float64, x, y []float64) {
	sameLen(x, y)
	parallel.ForRange(len(y), func(lo, hi int) {
		floats.AddScaled(y[lo:hi], a, x[lo:hi])
	}, e.cfg)
}

// Scale computes y ← a·y.
func (e Exec) Scale(a float64, y []float64) {
	parallel.ForRange(len(y), func(lo, hi int) {
		floats.Scale(a, y[lo:hi])
	}, e.cfg)
}

// AddConst computes y ← y + a.
func (e Exec) AddConst(a float64, y []float64) {
	parallel.ForRange(len(y), func(lo, hi int) {
		floats.AddConst(a, y[lo:hi])
	}, e.cfg)
}

// AXmY computes y ← a·(x − y).
func (e Exec) AXmY(a float64, x, y []float64) {
	sameLen(x, y)
	parallel.ForRange(len(y), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			y[i] = a * (x[i] - y[i])
		}
	}, e.cfg)
}

// SqDiffAcc computes y ← (a − x)² + y. Called once per coordinate it
// accumulates squared Euclidean distances from the point a into y.
func (e Exec) SqDiffAcc(a float64, x, y []float64) {
	sameLen(x, y)
	parallel.ForRange(len(y), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			d := a - x[i]
			y[i] += d * d
		}
	}, e.cfg)
}

// Hebbian computes w ← w + h·(x − w) for a scalar input coordinate x and
// per-element rates h (influence times learning rate).
func (e Exec) Hebbian(x float64, h, w []float64) {
	sameLen(h, w)
	parallel.ForRange(len(w), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			w[i] += h[i] * (x - w[i])
		}
	}, e.cfg)
}

// ApplyNeighborhood replaces every squared grid distance in y by the
// neighborhood influence fn(√y, sigma).
func (e Exec) ApplyNeighborhood(fn NeighborhoodFunc, sigma float64, y []float64) {
	parallel.ForRange(len(y), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			y[i] = fn(sqrt(y[i]), sigma)
		}
	}, e.cfg)
}

// DeltaRule applies the momentum/decay weight update to one row of edges:
//
//	Δw = step·a + momentum·prev − decay·w;  w += Δw;  prev = Δw
//
// where step is learning rate times the target neuron's delta and a holds the
// source activations.
func (e Exec) DeltaRule(step, momentum, decay float64, a, w, prev []float64) {
	sameLen(a, w)
	sameLen(w, prev)
	parallel.ForRange(len(w), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dw := step*a[i] + momentum*prev[i] - decay*w[i]
			w[i] += dw
			prev[i] = dw
		}
	}, e.cfg)
}
