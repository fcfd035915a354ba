package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c := Empty()
	assert.Equal(t, "", c.GetBackend())
	assert.Equal(t, 60.0, c.GetEpochSeconds())
	assert.True(t, c.GetCalibrate())
	assert.True(t, c.GetImpute())
	assert.False(t, c.GetIncludeAux())
	assert.Equal(t, "cole-kripke", c.GetSleepAlgorithm())
	assert.Equal(t, "stationary-2013", c.GetNonwearAlgorithm())
	assert.Equal(t, 4, c.GetWorkers())
	assert.Equal(t, 1.0, c.GetGapToleranceSeconds())
}

func TestLoadPartialOverride(t *testing.T) {
	path := writeConfig(t, "run.json", `{
		"backend": "portable",
		"epoch_seconds": 30,
		"calibrate": false,
		"workers": 8
	}`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "portable", c.GetBackend())
	assert.Equal(t, 30.0, c.GetEpochSeconds())
	assert.False(t, c.GetCalibrate())
	assert.Equal(t, 8, c.GetWorkers())

	// Untouched fields keep defaults.
	assert.True(t, c.GetImpute())
	assert.Equal(t, "cole-kripke", c.GetSleepAlgorithm())
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero epoch", `{"epoch_seconds": 0}`},
		{"negative tolerance", `{"gap_tolerance_seconds": -1}`},
		{"zero workers", `{"workers": 0}`},
		{"syntax", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "bad.json", tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := writeConfig(t, "run.yaml", `{}`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
