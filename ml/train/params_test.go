package train_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gradgraph/graph"
	. "github.com/gomlx/gradgraph/ml/train"
	"github.com/gomlx/gradgraph/types/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsDefaults(t *testing.T) {
	params := NewParams()
	assert.Equal(t, 0.1, params.LearningRate())
	assert.Equal(t, 100, params.Steps())
	assert.Equal(t, graph.Accumulate, params.GradientMode())
	assert.Equal(t, 10, params.LogEvery())
	assert.Equal(t, []string{"gradient_mode", "learning_rate", "log_every", "steps"}, params.Keys())
	assert.Equal(t, "gradient_mode=accumulate;learning_rate=0.1;log_every=10;steps=100", params.String())
}

func TestParseSettings(t *testing.T) {
	params := NewParams().Set("name", "foo").Set("verbose", false)
	require.NoError(t, ParseSettings(params, "learning_rate=0.05; steps=1_000;gradient_mode=Overwrite;name=bar;verbose=true;"))
	assert.Equal(t, 0.05, params.LearningRate())
	assert.Equal(t, 1000, params.Steps())
	assert.Equal(t, graph.Overwrite, params.GradientMode())
	assert.Equal(t, "bar", GetParamOr(params, "name", ""))
	assert.True(t, GetParamOr(params, "verbose", false))
	assert.Equal(t, 7, GetParamOr(params, "missing", 7))
	assert.Equal(t, 7, GetParamOr(params, "name", 7), "wrong type returns the default")

	// Empty settings are a no-op.
	require.NoError(t, ParseSettings(params, ""))

	for _, settings := range []string{
		"momentum=0.9",         // Unknown parameter.
		"steps=ten",            // Not an int.
		"steps=1.5",            // Not an int either.
		"learning_rate=fast",   // Not a float.
		"gradient_mode=sum",    // Not a mode.
		"verbose=yes",          // Not a bool.
		"learning_rate",        // Missing value.
		"file:/does/not/exist", // Missing file.
	} {
		err := ParseSettings(params, settings)
		require.Errorf(t, err, "settings %q", settings)
		if settings != "file:/does/not/exist" {
			assert.Truef(t, xerrors.IsInvalidArgument(err), "settings %q: %v", settings, err)
		}
	}
	// Failed settings don't change values.
	assert.Equal(t, 1000, params.Steps())
}

func TestParseSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.txt")
	contents := `# Hyperparameters for the test.
learning_rate=0.2   # Faster.
steps=20; log_every=5

`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	params := NewParams()
	require.NoError(t, ParseSettings(params, "steps=7;file:"+path+";log_every=2"))
	assert.Equal(t, 0.2, params.LearningRate())
	assert.Equal(t, 20, params.Steps())
	assert.Equal(t, 2, params.LogEvery(), "settings after the file take precedence")

	require.NoError(t, os.WriteFile(path, []byte("momentum=1\n"), 0o644))
	err := ParseSettings(params, "file:"+path)
	require.True(t, xerrors.IsInvalidArgument(err))
	assert.ErrorContains(t, err, path)
}
