package pipeline

import (
	"io"

	"github.com/dominikbraun/graph/draw"
)

// DrawDOT writes the spec's layer dependency graph in DOT format, for
// rendering with graphviz.
func DrawDOT(spec *Spec, w io.Writer) error {
	g, err := spec.DependencyGraph()
	if err != nil {
		return err
	}

	return draw.DOT(g, w)
}
