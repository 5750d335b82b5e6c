package pipeline

import (
	"fmt"

	"microseg/internal/models"
)

// Buffer is the append-only artifact sequence of a single pipeline run.
// Index 0 is always the run input; each layer appends exactly one artifact
// and earlier entries are never overwritten. A buffer is owned by exactly
// one run and must be closed when the run's results are no longer needed.
type Buffer struct {
	artifacts []models.Artifact
}

func NewBuffer(input models.Artifact) *Buffer {
	return &Buffer{artifacts: []models.Artifact{input}}
}

func (b *Buffer) Append(artifact models.Artifact) {
	b.artifacts = append(b.artifacts, artifact)
}

func (b *Buffer) Len() int {
	return len(b.artifacts)
}

func (b *Buffer) At(i int) (models.Artifact, error) {
	if i < 0 || i >= len(b.artifacts) {
		return models.Artifact{}, fmt.Errorf("artifact index %d out of range [0, %d)", i, len(b.artifacts))
	}
	return b.artifacts[i], nil
}

// Last returns the most recent artifact, the segmentation result of a
// completed run.
func (b *Buffer) Last() models.Artifact {
	return b.artifacts[len(b.artifacts)-1]
}

// Close releases native memory held by every artifact.
func (b *Buffer) Close() {
	for _, a := range b.artifacts {
		a.Close()
	}
	b.artifacts = nil
}
