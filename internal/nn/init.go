package nn

import "math/rand"

// Uniform fills dst with values drawn from U(-bound, bound).
func Uniform(rng *rand.Rand, bound float64, dst []float64) {
	for i := range dst {
		dst[i] = (rng.Float64()*2.0 - 1.0) * bound
	}
}

// newRand returns the seeded source used for weight initialization.
func newRand(seed int64) *rand.Rand {
	//nolint:gosec // Using math/rand for weight initialization (not security-critical)
	return rand.New(rand.NewSource(seed))
}
