package models

import (
	"fmt"

	"microseg/internal/opencv/safe"
)

// ArtifactKind tags the payload stored in an Artifact.
type ArtifactKind int

const (
	// KindRaster is a grayscale or floating-point intensity image.
	KindRaster ArtifactKind = iota
	// KindMask is a binary CV8UC1 image where nonzero means foreground.
	KindMask
	// KindPoints is an ordered 2D coordinate list, e.g. foreground pixels
	// or a boundary polygon.
	KindPoints
)

func (k ArtifactKind) String() string {
	switch k {
	case KindRaster:
		return "raster"
	case KindMask:
		return "mask"
	case KindPoints:
		return "points"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Artifact is one entry of a pipeline run's append-only buffer. Exactly one
// of Mat and Points is set, selected by Kind.
type Artifact struct {
	Kind   ArtifactKind
	Mat    *safe.Mat
	Points []Point
}

func RasterArtifact(m *safe.Mat) Artifact {
	return Artifact{Kind: KindRaster, Mat: m}
}

func MaskArtifact(m *safe.Mat) Artifact {
	return Artifact{Kind: KindMask, Mat: m}
}

func PointsArtifact(pts []Point) Artifact {
	return Artifact{Kind: KindPoints, Points: pts}
}

// IsRaster reports whether the artifact carries pixel data of any kind.
func (a Artifact) IsRaster() bool {
	return a.Kind == KindRaster || a.Kind == KindMask
}

// Close releases native memory held by the artifact. Safe on point sets.
func (a Artifact) Close() {
	if a.Mat != nil {
		a.Mat.Close()
	}
}
