package pipeline

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubFactory(name string) Factory {
	return func(paramIndices, imageIndices []int) (Layer, error) {
		return &stubLayer{name: name, params: paramIndices, images: imageIndices}, nil
	}
}

const sampleConfig = `
[[parameter]]
name = "sigma1"
min = 0.0
max = 10.0
default = 1.0

[[parameter]]
name = "sigma2"
min = 0.0
max = 10.0
default = 3.0

[[layer]]
transform = "blur"
params = ["sigma1", "sigma2"]
images = [0]
`

func TestParseSpecResolvesNamesAndIndices(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("blur", stubFactory("blur")))

	spec, err := ParseSpec([]byte(sampleConfig), registry)
	require.NoError(t, err)

	require.Len(t, spec.Layers(), 1)
	assert.Equal(t, []int{0, 1}, spec.Layers()[0].ParamIndices())
	assert.Equal(t, []int{0}, spec.Layers()[0].ImageIndices())
	assert.Equal(t, 2, spec.Params().Len())

	idx, ok := spec.Params().IndexOf("sigma2")
	require.True(t, ok)
	p, err := spec.Params().At(idx)
	require.NoError(t, err)
	assert.Equal(t, 3.0, p.Value)
}

func TestParseSpecRejectsUnknownTransform(t *testing.T) {
	registry := NewRegistry()

	_, err := ParseSpec([]byte(sampleConfig), registry)
	assert.ErrorContains(t, err, "unknown transform")
}

func TestParseSpecRejectsUnknownParameter(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("blur", stubFactory("blur")))

	config := `
[[parameter]]
name = "sigma1"
min = 0.0
max = 10.0
default = 1.0

[[layer]]
transform = "blur"
params = ["missing"]
`
	_, err := ParseSpec([]byte(config), registry)
	assert.ErrorContains(t, err, "unknown parameter")
}

func TestBuildSpecKeepsFactoryCauseReachable(t *testing.T) {
	cause := errors.New("bad arity")

	registry := NewRegistry()
	require.NoError(t, registry.Register("blur", func(paramIndices, imageIndices []int) (Layer, error) {
		return nil, cause
	}))

	_, err := ParseSpec([]byte(sampleConfig), registry)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, "layer 0")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("blur", stubFactory("blur")))
	assert.Error(t, registry.Register("blur", stubFactory("blur")))
	assert.Equal(t, []string{"blur"}, registry.Names())
}
