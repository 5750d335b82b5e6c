package pipeline

import (
	"context"
	"sync"

	"microseg/internal/logger"
	"microseg/internal/models"
	"microseg/internal/opencv/safe"
)

// RunState tracks the executor's position in its run lifecycle. Completed
// and Failed are terminal; a finished graph never resumes, a new run starts
// fresh from Idle.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Graph executes a pipeline spec against one input image at a time. It owns
// no image state between runs; each run creates a fresh buffer. A Graph must
// not be shared across concurrent runs — BatchRunner creates one per run.
type Graph struct {
	spec *Spec
	log  logger.Logger

	mu           sync.Mutex
	state        RunState
	currentLayer int
	failedLayer  int
}

func NewGraph(spec *Spec, log logger.Logger) *Graph {
	if log == nil {
		log = logger.Nop{}
	}
	return &Graph{
		spec:         spec,
		log:          log,
		state:        StateIdle,
		currentLayer: -1,
		failedLayer:  -1,
	}
}

func (g *Graph) State() RunState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// FailedLayer returns the index of the layer that aborted the last run, or
// -1 when the last run completed or failed during validation.
func (g *Graph) FailedLayer() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failedLayer
}

// Run validates the spec, then executes every layer in declared order,
// threading the growing artifact buffer through. The input is cloned into
// the buffer, so the caller keeps ownership of input. On success the caller
// owns the returned buffer and must close it. On any failure the partial
// buffer is discarded and a ConfigError or ComputeError is returned; no
// partial result ever escapes.
func (g *Graph) Run(ctx context.Context, input *safe.Mat) (*Buffer, error) {
	if g.spec == nil {
		return nil, ErrSpecMustBeSet
	}
	if input == nil {
		return nil, ErrInputMustBeSet
	}

	g.transition(StateRunning, -1)

	if err := g.spec.Validate(); err != nil {
		g.transition(StateFailed, -1)
		g.log.Error("pipeline", err, nil)
		return nil, err
	}

	cloned, err := input.Clone()
	if err != nil {
		g.transition(StateFailed, -1)
		return nil, err
	}

	buffer := NewBuffer(models.RasterArtifact(cloned))

	for li, layer := range g.spec.Layers() {
		g.setCurrentLayer(li)

		if err := ctx.Err(); err != nil {
			buffer.Close()
			g.transition(StateFailed, li)
			return nil, &ComputeError{Layer: li, Name: layer.Name(), Cause: err}
		}

		params, err := g.spec.Params().slice(layer.ParamIndices())
		if err != nil {
			buffer.Close()
			g.transition(StateFailed, li)
			return nil, &ConfigError{Layer: li, Reason: err.Error()}
		}

		inputs, err := g.gatherImages(buffer, layer)
		if err != nil {
			buffer.Close()
			g.transition(StateFailed, li)
			return nil, &ConfigError{Layer: li, Reason: err.Error()}
		}

		g.log.Debug("pipeline", "executing layer", map[string]interface{}{
			"layer": li,
			"name":  layer.Name(),
		})

		artifact, err := layer.Apply(ctx, inputs, params)
		if err != nil {
			buffer.Close()
			g.transition(StateFailed, li)
			computeErr := &ComputeError{Layer: li, Name: layer.Name(), Cause: err}
			g.log.Error("pipeline", computeErr, map[string]interface{}{"layer": li})
			return nil, computeErr
		}

		buffer.Append(artifact)
	}

	g.transition(StateCompleted, -1)
	g.log.Info("pipeline", "run completed", map[string]interface{}{
		"layers":    len(g.spec.Layers()),
		"artifacts": buffer.Len(),
	})

	return buffer, nil
}

func (g *Graph) gatherImages(buffer *Buffer, layer Layer) ([]models.Artifact, error) {
	indices := layer.ImageIndices()
	if indices == nil {
		return []models.Artifact{buffer.Last()}, nil
	}

	inputs := make([]models.Artifact, len(indices))
	for i, idx := range indices {
		artifact, err := buffer.At(idx)
		if err != nil {
			return nil, err
		}
		inputs[i] = artifact
	}

	return inputs, nil
}

func (g *Graph) transition(state RunState, failedLayer int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
	g.failedLayer = failedLayer
	if state != StateRunning {
		g.currentLayer = -1
	}
}

func (g *Graph) setCurrentLayer(li int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.currentLayer = li
}
