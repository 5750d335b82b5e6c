package pipeline

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Document is the on-disk pipeline configuration. This is the sole boundary
// with any front-end: controls are declared as ordered descriptors and
// layers reference them by name.
//
//	[[parameter]]
//	name = "sigma1"
//	min = 0.0
//	max = 10.0
//	default = 1.0
//
//	[[layer]]
//	transform = "blur_difference"
//	params = ["sigma1", "sigma2"]
//	images = [0]
type Document struct {
	Parameters []ParameterConfig `toml:"parameter"`
	Layers     []LayerConfig     `toml:"layer"`
}

type ParameterConfig struct {
	Name    string  `toml:"name"`
	Min     float64 `toml:"min"`
	Max     float64 `toml:"max"`
	Default float64 `toml:"default"`
}

type LayerConfig struct {
	Transform string   `toml:"transform"`
	Params    []string `toml:"params"`
	Images    []int    `toml:"images"`
}

// LoadSpec reads a TOML pipeline document and resolves it against the
// transform registry.
func LoadSpec(path string, registry *Registry) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read pipeline config")
	}
	return ParseSpec(data, registry)
}

// ParseSpec builds a validated Spec from TOML bytes.
func ParseSpec(data []byte, registry *Registry) (*Spec, error) {
	var doc Document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse pipeline config")
	}

	return BuildSpec(doc, registry)
}

// BuildSpec resolves a parsed document: parameter names become indices and
// transform names become registered layers. The resulting spec is validated
// before being returned.
func BuildSpec(doc Document, registry *Registry) (*Spec, error) {
	params := make([]Parameter, len(doc.Parameters))
	for i, pc := range doc.Parameters {
		params[i] = Parameter{Name: pc.Name, Min: pc.Min, Max: pc.Max, Value: pc.Default}
	}

	set, err := NewParameterSet(params...)
	if err != nil {
		return nil, errors.Wrap(err, "invalid parameter descriptors")
	}

	layers := make([]Layer, len(doc.Layers))
	for i, lc := range doc.Layers {
		paramIndices := make([]int, len(lc.Params))
		for j, name := range lc.Params {
			idx, ok := set.IndexOf(name)
			if !ok {
				return nil, errors.Errorf("layer %d (%s): unknown parameter %q", i, lc.Transform, name)
			}
			paramIndices[j] = idx
		}

		layer, err := registry.Build(lc.Transform, paramIndices, lc.Images)
		if err != nil {
			return nil, errors.Wrapf(err, "layer %d", i)
		}
		layers[i] = layer
	}

	spec := NewSpec(set, layers...)
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return spec, nil
}
