package plot

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lossmodel/internal/risk"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestHistograms(t *testing.T) {
	losses, err := risk.Simulate(risk.SimulationParams{NSims: 2000, LambdaF: 12, SevMu: 9, SevSigma: 1, Seed: 42})
	require.NoError(t, err)

	outdir := filepath.Join(t.TempDir(), "plots")
	paths, err := Histograms(losses, outdir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outdir, HistFile), paths.Histogram)
	assert.Equal(t, filepath.Join(outdir, TailFile), paths.Tail)

	for _, p := range []string{paths.Histogram, paths.Tail} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", p)
	}
}

func TestHistograms_ConstantSample(t *testing.T) {
	// λ=0 → 전부 0
	paths, err := Histograms(make([]float64, 100), t.TempDir())
	require.NoError(t, err)

	_, err = os.Stat(paths.Tail)
	assert.NoError(t, err)
}

func TestHistograms_Empty(t *testing.T) {
	_, err := Histograms(nil, t.TempDir())
	assert.True(t, errors.Is(err, risk.ErrInvalidInput))
}
