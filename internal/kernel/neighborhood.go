package kernel

import (
	"fmt"
	"math"

	"github.com/annet-ml/annet/internal/errs"
)

// NeighborhoodFunc maps a grid distance d and spread sigma to an influence.
type NeighborhoodFunc func(d, sigma float64) float64

// Neighborhood selects a SOM neighborhood kernel.
type Neighborhood int

// Neighborhood kernels. The numeric values are shared with the GPU shaders.
const (
	Gaussian Neighborhood = iota
	Bubble
	CutGaussian
	MexicanHat
	Epanechnikov
)

var neighborhoods = [...]struct {
	name string
	fn   NeighborhoodFunc
}{
	Gaussian:     {"gaussian", gaussian},
	Bubble:       {"bubble", bubble},
	CutGaussian:  {"cutgaussian", cutGaussian},
	MexicanHat:   {"mexicanhat", mexicanHat},
	Epanechnikov: {"epanechnikov", epanechnikov},
}

// Neighborhoods returns every supported kernel.
func Neighborhoods() []Neighborhood {
	out := make([]Neighborhood, len(neighborhoods))
	for i := range out {
		out[i] = Neighborhood(i)
	}
	return out
}

// ParseNeighborhood resolves a canonical name such as "gaussian".
// Matching is exact; unknown names are rejected.
func ParseNeighborhood(name string) (Neighborhood, error) {
	for i, n := range neighborhoods {
		if n.name == name {
			return Neighborhood(i), nil
		}
	}
	return 0, errs.Configuration("kernel.ParseNeighborhood", "unknown neighborhood function %q", name)
}

// Valid reports whether n is a known kernel.
func (n Neighborhood) Valid() bool {
	return n >= 0 && int(n) < len(neighborhoods)
}

// String returns the canonical name.
func (n Neighborhood) String() string {
	if !n.Valid() {
		return fmt.Sprintf("Neighborhood(%d)", int(n))
	}
	return neighborhoods[n].name
}

// Func returns the kernel function.
func (n Neighborhood) Func() NeighborhoodFunc {
	return neighborhoods[n].fn
}

func sqrt(x float64) float64 {
	return math.Sqrt(x)
}

// bubble is 1 inside radius sigma and 0 outside.
func bubble(d, sigma float64) float64 {
	if d <= sigma {
		return 1
	}
	return 0
}

// gaussian is exp(−d²/2σ²).
func gaussian(d, sigma float64) float64 {
	return math.Exp(-(d * d) / (2 * sigma * sigma))
}

// cutGaussian is gaussian truncated to zero beyond sigma.
func cutGaussian(d, sigma float64) float64 {
	if d > sigma {
		return 0
	}
	return gaussian(d, sigma)
}

// mexicanHat is the Ricker wavelet (1 − d²/σ²)·exp(−d²/2σ²), normalized to
// 1 at the center. It turns negative past sigma.
func mexicanHat(d, sigma float64) float64 {
	r := (d * d) / (sigma * sigma)
	return (1 - r) * math.Exp(-r/2)
}

// epanechnikov is max(0, 1 − d²/σ²).
func epanechnikov(d, sigma float64) float64 {
	return math.Max(0, 1-(d*d)/(sigma*sigma))
}
