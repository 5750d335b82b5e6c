package pipeline

import (
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// Spec is an immutable pipeline configuration: an ordered layer sequence
// plus the full parameter vector. Only parameter values may change between
// runs, via ParameterSet.SetValue.
type Spec struct {
	layers []Layer
	params *ParameterSet
}

func NewSpec(params *ParameterSet, layers ...Layer) *Spec {
	return &Spec{layers: layers, params: params}
}

func (s *Spec) Layers() []Layer {
	return s.layers
}

func (s *Spec) Params() *ParameterSet {
	return s.params
}

// Validate checks the spec's flow invariants before any transform executes:
// every parameter index in range and consumed by exactly one layer, every
// parameter consumed, and no layer referencing an artifact produced after
// it runs. Layer i may reference buffer entries 0..i (0 is the input; layer
// j appends entry j+1).
func (s *Spec) Validate() error {
	if s == nil || len(s.layers) == 0 {
		return &ConfigError{Layer: -1, Reason: "spec has no layers"}
	}
	if s.params == nil {
		return &ConfigError{Layer: -1, Reason: "spec has no parameter set"}
	}

	consumedBy := make([]int, s.params.Len())
	for i := range consumedBy {
		consumedBy[i] = -1
	}

	for li, layer := range s.layers {
		for _, pi := range layer.ParamIndices() {
			if pi < 0 || pi >= s.params.Len() {
				return &ConfigError{Layer: li, Reason: fmt.Sprintf(
					"parameter index %d out of range [0, %d)", pi, s.params.Len())}
			}
			if consumedBy[pi] >= 0 {
				return &ConfigError{Layer: li, Reason: fmt.Sprintf(
					"parameter %d already consumed by layer %d", pi, consumedBy[pi])}
			}
			consumedBy[pi] = li
		}

		for _, ii := range layer.ImageIndices() {
			if ii < 0 || ii > li {
				return &ConfigError{Layer: li, Reason: fmt.Sprintf(
					"image index %d not yet produced when layer executes", ii)}
			}
		}
	}

	for pi, li := range consumedBy {
		if li < 0 {
			p, _ := s.params.At(pi)
			return &ConfigError{Layer: -1, Reason: fmt.Sprintf(
				"parameter %d (%s) consumed by no layer", pi, p.Name)}
		}
	}

	return nil
}

// DependencyGraph builds the layer dependency DAG: the input artifact and
// one vertex per layer, with an edge from each producer to every consumer.
// Used by the DOT drawer and available for tooling.
func (s *Spec) DependencyGraph() (graph.Graph[string, string], error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	const inputVertex = "input"
	if err := g.AddVertex(inputVertex); err != nil {
		return nil, errors.Wrap(err, "failed to add input vertex")
	}

	names := make([]string, len(s.layers))
	for i, layer := range s.layers {
		names[i] = fmt.Sprintf("%d:%s", i, layer.Name())
		if err := g.AddVertex(names[i]); err != nil {
			return nil, errors.Wrapf(err, "failed to add layer vertex %s", names[i])
		}
	}

	for i, layer := range s.layers {
		indices := layer.ImageIndices()
		if indices == nil {
			indices = []int{i}
		}
		for _, idx := range indices {
			producer := inputVertex
			if idx > 0 {
				producer = names[idx-1]
			}
			err := g.AddEdge(producer, names[i])
			if err != nil && err != graph.ErrEdgeAlreadyExists {
				return nil, errors.Wrapf(err, "failed to add edge %s -> %s", producer, names[i])
			}
		}
	}

	return g, nil
}
