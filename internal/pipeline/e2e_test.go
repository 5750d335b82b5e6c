package pipeline_test

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"microseg/internal/models"
	"microseg/internal/opencv/safe"
	"microseg/internal/pipeline"
	"microseg/internal/pipeline/layers"
)

// syntheticBlob renders a single bright Gaussian blob on a dim background.
func syntheticBlob(t *testing.T, size int, cx, cy, sigma, peak, background float64) *safe.Mat {
	t.Helper()

	m, err := safe.NewMat(size, size, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d2 := (float64(x)-cx)*(float64(x)-cx) + (float64(y)-cy)*(float64(y)-cy)
			v := background + (peak-background)*math.Exp(-d2/(2*sigma*sigma))
			require.NoError(t, m.SetUCharAt(y, x, uint8(math.Round(v))))
		}
	}

	return m
}

func builtinRegistry(t *testing.T) *pipeline.Registry {
	t.Helper()
	registry := pipeline.NewRegistry()
	require.NoError(t, layers.RegisterBuiltins(registry))
	return registry
}

func TestBlurDifferenceThresholdFindsBlobCenter(t *testing.T) {
	input := syntheticBlob(t, 100, 50, 50, 3, 200, 10)

	registry := builtinRegistry(t)

	set, err := pipeline.NewParameterSet(
		pipeline.Parameter{Name: "sigma1", Min: 0, Max: 10, Value: 1},
		pipeline.Parameter{Name: "sigma2", Min: 0, Max: 10, Value: 3},
		pipeline.Parameter{Name: "threshold", Min: 0, Max: 100, Value: 15},
	)
	require.NoError(t, err)

	diff, err := registry.Build("blur_difference", []int{0, 1}, nil)
	require.NoError(t, err)
	thresh, err := registry.Build("global_threshold", []int{2}, nil)
	require.NoError(t, err)

	spec := pipeline.NewSpec(set, diff, thresh)

	g := pipeline.NewGraph(spec, nil)
	buffer, err := g.Run(context.Background(), input)
	require.NoError(t, err)
	defer buffer.Close()

	result := buffer.Last()
	require.Equal(t, models.KindMask, result.Kind)

	sumX, sumY, count := 0.0, 0.0, 0
	for y := 0; y < result.Mat.Rows(); y++ {
		for x := 0; x < result.Mat.Cols(); x++ {
			v, err := result.Mat.GetUCharAt(y, x)
			require.NoError(t, err)
			if v > 0 {
				sumX += float64(x)
				sumY += float64(y)
				count++
			}
		}
	}

	require.Positive(t, count, "foreground must not be empty")
	assert.InDelta(t, 50, sumX/float64(count), 2, "centroid x")
	assert.InDelta(t, 50, sumY/float64(count), 2, "centroid y")
}

func TestTomlConfiguredPipelineRuns(t *testing.T) {
	config := `
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

[[parameter]]
name = "threshold"
min = 0.0
max = 100.0
default = 15.0

[[parameter]]
name = "cleanup_radius"
min = 0.0
max = 10.0
default = 1.0

[[layer]]
transform = "blur_difference"
params = ["sigma1", "sigma2"]
images = [0]

[[layer]]
transform = "global_threshold"
params = ["threshold"]

[[layer]]
transform = "morphology_refine"
params = ["cleanup_radius"]
`
	spec, err := pipeline.ParseSpec([]byte(config), builtinRegistry(t))
	require.NoError(t, err)

	input := syntheticBlob(t, 100, 40, 60, 3, 200, 10)

	g := pipeline.NewGraph(spec, nil)
	buffer, err := g.Run(context.Background(), input)
	require.NoError(t, err)
	defer buffer.Close()

	assert.Equal(t, 4, buffer.Len())
	assert.Equal(t, models.KindMask, buffer.Last().Kind)

	var dot bytes.Buffer
	require.NoError(t, pipeline.DrawDOT(spec, &dot))
	assert.Contains(t, dot.String(), "blur_difference")
}
