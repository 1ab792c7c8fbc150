package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lossmodel/internal/risk"
)

const baseYAML = `
meta:
  id: base
simulation:
  n_sims: 20000
  lambda_f: 12.0
  sev_mu: 9.0
  sev_sigma: 1.0
  seed: 42
metrics:
  confidence_levels: [0.95, 0.99]
output:
  data_dir: out
  plots: true
schedule: "0 0 2 * * *"
`

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	s, data, err := Load(writeScenario(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "base", s.Meta.ID)
	assert.Equal(t, risk.DefaultSimulationParams(), s.Params())
	assert.Equal(t, []float64{0.95, 0.99}, s.Levels())
	assert.Equal(t, "out", s.Output.DataDir)
	assert.Equal(t, defaultPlotDir, s.Output.PlotDir) // 기본값
	assert.True(t, s.Output.Plots)
	assert.True(t, s.Scheduled())
	assert.NotEmpty(t, data)
}

func TestLoad_RepoScenarios(t *testing.T) {
	files, _ := filepath.Glob("../../scenarios/*.yaml")
	if len(files) == 0 {
		t.Skip("scenario files not found")
	}

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			_, _, err := Load(f)
			assert.NoError(t, err)
		})
	}
}

func TestLoad_DefaultLevels(t *testing.T) {
	s, err := Parse([]byte(`
meta: {id: minimal}
simulation: {n_sims: 100, lambda_f: 1, sev_mu: 0, sev_sigma: 1, seed: 1}
`))
	require.NoError(t, err)

	assert.Equal(t, risk.DefaultConfidenceLevels, s.Metrics.ConfidenceLevels)
	assert.Equal(t, defaultDataDir, s.Output.DataDir)
	assert.False(t, s.Scheduled())
}

func TestLoad_UnknownField(t *testing.T) {
	_, _, err := Load(writeScenario(t, baseYAML+"\nextra_field: 1\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Scenario {
		s := &Scenario{
			Meta:       Meta{ID: "base"},
			Simulation: risk.DefaultSimulationParams(),
		}
		s.applyDefaults()
		return s
	}

	tests := []struct {
		name   string
		mutate func(s *Scenario)
		field  string
	}{
		{"missing id", func(s *Scenario) { s.Meta.ID = "" }, "meta.id"},
		{"zero n_sims", func(s *Scenario) { s.Simulation.NSims = 0 }, "simulation.n_sims"},
		{"negative lambda", func(s *Scenario) { s.Simulation.LambdaF = -1 }, "simulation"},
		{"negative sigma", func(s *Scenario) { s.Simulation.SevSigma = -0.5 }, "simulation"},
		{"alpha of one", func(s *Scenario) { s.Metrics.ConfidenceLevels = []float64{0.95, 1} }, "metrics.confidence_levels[1]"},
		{"bad schedule", func(s *Scenario) { s.Schedule = "every day" }, "schedule"},
	}

	require.NoError(t, Validate(valid()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)

			err := Validate(s)
			require.Error(t, err)

			var verr ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.True(t, errors.Is(err, risk.ErrInvalidParameter))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	s := &Scenario{Meta: Meta{ID: "x"}, Simulation: risk.SimulationParams{NSims: 10, LambdaF: -1}}

	err := Validate(s)
	require.Error(t, err)
	assert.Equal(t, "simulation: lambda_f must be a finite value >= 0, got -1", err.Error())
}

func TestWarn(t *testing.T) {
	s := &Scenario{
		Meta:       Meta{ID: "small"},
		Simulation: risk.SimulationParams{NSims: 500, LambdaF: 0, SevMu: 9, SevSigma: 1},
		Metrics:    Metrics{ConfidenceLevels: []float64{0.95, 0.999}},
	}

	codes := map[string]bool{}
	for _, w := range Warn(s) {
		codes[w.Code] = true
	}

	assert.True(t, codes["LOW_N_SIMS"])
	assert.True(t, codes["SPARSE_TAIL"])
	assert.True(t, codes["ZERO_FREQUENCY"])

	base, err := Parse([]byte(baseYAML))
	require.NoError(t, err)
	assert.Empty(t, Warn(base))
}

func TestHash(t *testing.T) {
	s, err := Parse([]byte(baseYAML))
	require.NoError(t, err)

	hash, err := Hash(s)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	hash2, err := Hash(s)
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)

	s.Simulation.Seed = 43
	hash3, err := Hash(s)
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash3)
}

func TestHashParams(t *testing.T) {
	p := risk.DefaultSimulationParams()

	a, err := HashParams(p, []float64{0.95, 0.99})
	require.NoError(t, err)
	b, err := HashParams(p, []float64{0.95, 0.99})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := HashParams(p, []float64{0.99})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
