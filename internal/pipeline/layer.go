package pipeline

import (
	"context"

	"microseg/internal/models"
)

// Layer is one transform stage of a pipeline. A layer declares the parameter
// slots and prior artifacts it consumes; the executor resolves both and
// passes value copies, so Apply must be pure with respect to its inputs.
type Layer interface {
	Name() string

	// ParamIndices lists the slots of the spec's ParameterSet this layer
	// consumes, in the order Apply expects them.
	ParamIndices() []int

	// ImageIndices lists the buffer positions this layer reads, where 0 is
	// the run input. A nil list means the single most recent artifact.
	ImageIndices() []int

	Apply(ctx context.Context, inputs []models.Artifact, params []Parameter) (models.Artifact, error)
}
