package pipeline

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"microseg/internal/opencv/safe"
)

func testInput(t *testing.T) *safe.Mat {
	t.Helper()
	m, err := safe.NewMat(8, 8, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestRunFailsConfigBeforeAnyTransform(t *testing.T) {
	set := mustParams(t, Parameter{Name: "a", Min: 0, Max: 1, Value: 0.5})

	invocations := 0
	spec := NewSpec(set,
		&stubLayer{name: "first", params: []int{0}, applied: &invocations},
		&stubLayer{name: "second", images: []int{2}, applied: &invocations},
	)

	g := NewGraph(spec, nil)
	buffer, err := g.Run(context.Background(), testInput(t))

	require.Error(t, err)
	assert.Nil(t, buffer)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 0, invocations, "no transform may execute on a malformed spec")
	assert.Equal(t, StateFailed, g.State())
}

func TestRunCompletesAndAppendsPerLayer(t *testing.T) {
	set := mustParams(t, Parameter{Name: "a", Min: 0, Max: 1, Value: 0.5})

	spec := NewSpec(set,
		&stubLayer{name: "first", params: []int{0}},
		&stubLayer{name: "second"},
	)

	g := NewGraph(spec, nil)
	buffer, err := g.Run(context.Background(), testInput(t))
	require.NoError(t, err)
	defer buffer.Close()

	assert.Equal(t, 3, buffer.Len(), "input plus one artifact per layer")
	assert.Equal(t, StateCompleted, g.State())
	assert.Equal(t, -1, g.FailedLayer())
}

func TestRunAbortsOnLayerFailure(t *testing.T) {
	set := mustParams(t, Parameter{Name: "a", Min: 0, Max: 1, Value: 0.5})

	cause := errors.New("degenerate geometry")
	downstream := 0
	spec := NewSpec(set,
		&stubLayer{name: "first", params: []int{0}},
		&stubLayer{name: "boom", fail: cause},
		&stubLayer{name: "after", applied: &downstream},
	)

	g := NewGraph(spec, nil)
	buffer, err := g.Run(context.Background(), testInput(t))

	require.Error(t, err)
	assert.Nil(t, buffer, "partial buffer must not escape")

	var compErr *ComputeError
	require.ErrorAs(t, err, &compErr)
	assert.Equal(t, 1, compErr.Layer)
	assert.Equal(t, "boom", compErr.Name)
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, 0, downstream, "layers after the failure must not execute")
	assert.Equal(t, StateFailed, g.State())
	assert.Equal(t, 1, g.FailedLayer())
}

func TestRunHonorsCancellation(t *testing.T) {
	set := mustParams(t, Parameter{Name: "a", Min: 0, Max: 1, Value: 0.5})

	spec := NewSpec(set, &stubLayer{name: "first", params: []int{0}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGraph(spec, nil)
	buffer, err := g.Run(ctx, testInput(t))

	require.Error(t, err)
	assert.Nil(t, buffer)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsNilInputs(t *testing.T) {
	g := NewGraph(nil, nil)
	_, err := g.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrSpecMustBeSet)

	set := mustParams(t, Parameter{Name: "a", Min: 0, Max: 1, Value: 0.5})
	g = NewGraph(NewSpec(set, &stubLayer{name: "first", params: []int{0}}), nil)
	_, err = g.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInputMustBeSet)
}

func TestBatchRunnerIndependentRuns(t *testing.T) {
	set := mustParams(t, Parameter{Name: "a", Min: 0, Max: 1, Value: 0.5})
	spec := NewSpec(set, &stubLayer{name: "first", params: []int{0}})

	inputs := []*safe.Mat{testInput(t), testInput(t), testInput(t)}

	runner := NewBatchRunner(spec, nil, 2)
	buffers, err := runner.Run(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, buffers, 3)

	for _, b := range buffers {
		assert.Equal(t, 2, b.Len())
		b.Close()
	}
}
