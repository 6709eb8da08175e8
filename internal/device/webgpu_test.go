package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/annet-ml/annet/internal/kernel"
	"github.com/annet-ml/annet/internal/parallel"
)

func TestWebGPU_MatchesCPU(t *testing.T) {
	gpu, err := OpenWebGPU(0)
	if err != nil {
		t.Skipf("webgpu unavailable: %v", err)
	}

	sp := SearchParams{ConscienceBias: 0.2}
	up := UpdateParams{LearningRate: 0.2, Sigma: 2, Neighborhood: kernel.MexicanHat, ConscienceRate: 0.05}
	inputs := [][]float64{{0.1, 0.9, 0.3}, {0.7, 0.2, 0.5}, {0.4, 0.4, 0.4}}

	run := func(dev Device) (*mat.Dense, []float64) {
		weights, positions, conscience := grid(4, 4, 3, 11)
		c, err := NewCluster([]Device{dev}, weights, positions, conscience)
		require.NoError(t, err)
		defer c.Close()
		for _, in := range inputs {
			_, err := c.Step(in, sp, up)
			require.NoError(t, err)
		}
		require.NoError(t, c.Gather(weights, conscience))
		return weights, conscience
	}

	wg, cg := run(gpu)
	wc, cc := run(NewCPU(0, parallel.Sequential()))
	assert.InDeltaSlice(t, wc.RawMatrix().Data, wg.RawMatrix().Data, 1e-4, "float32 device state")
	assert.InDeltaSlice(t, cc, cg, 1e-4)
}
