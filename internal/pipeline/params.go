package pipeline

import (
	"fmt"
	"math"
)

// Parameter is one named scalar control with its slider range. Value may be
// updated between runs; during a run layers receive copies.
type Parameter struct {
	Name  string
	Min   float64
	Max   float64
	Value float64
}

// ParameterSet is the ordered control vector of a pipeline spec.
type ParameterSet struct {
	params []Parameter
	index  map[string]int
}

func NewParameterSet(params ...Parameter) (*ParameterSet, error) {
	set := &ParameterSet{
		params: make([]Parameter, 0, len(params)),
		index:  make(map[string]int, len(params)),
	}

	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter name must not be empty")
		}
		if _, exists := set.index[p.Name]; exists {
			return nil, fmt.Errorf("duplicate parameter name: %s", p.Name)
		}
		if p.Min > p.Max {
			return nil, fmt.Errorf("parameter %s: min %v exceeds max %v", p.Name, p.Min, p.Max)
		}
		if p.Value < p.Min || p.Value > p.Max {
			return nil, fmt.Errorf("parameter %s: value %v outside [%v, %v]", p.Name, p.Value, p.Min, p.Max)
		}

		set.index[p.Name] = len(set.params)
		set.params = append(set.params, p)
	}

	return set, nil
}

func (s *ParameterSet) Len() int {
	return len(s.params)
}

func (s *ParameterSet) At(i int) (Parameter, error) {
	if i < 0 || i >= len(s.params) {
		return Parameter{}, fmt.Errorf("parameter index %d out of range [0, %d)", i, len(s.params))
	}
	return s.params[i], nil
}

func (s *ParameterSet) IndexOf(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// SetValue updates a control between runs, e.g. from a UI slider. Values
// outside the declared range or non-finite values are rejected.
func (s *ParameterSet) SetValue(name string, value float64) error {
	i, ok := s.index[name]
	if !ok {
		return fmt.Errorf("unknown parameter: %s", name)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("parameter %s: non-finite value", name)
	}

	p := s.params[i]
	if value < p.Min || value > p.Max {
		return fmt.Errorf("parameter %s: value %v outside [%v, %v]", name, value, p.Min, p.Max)
	}

	s.params[i].Value = value
	return nil
}

// slice copies the parameters at the given indices, in order.
func (s *ParameterSet) slice(indices []int) ([]Parameter, error) {
	out := make([]Parameter, len(indices))
	for i, idx := range indices {
		p, err := s.At(idx)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
