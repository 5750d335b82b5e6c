package results

import (
	"fmt"

	"gocv.io/x/gocv"

	"microseg/internal/models"
)

// TypeMismatchError signals that a stored artifact is not consumable as a
// raster mask or label image. Callers should fall back to point-cloud
// consumption.
type TypeMismatchError struct {
	Key    string
	Reason string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("artifact %q is not a raster mask or label image: %s", e.Key, e.Reason)
}

// Extract fetches the artifact stored under key and validates that it can be
// consumed as a segmentation result. Point clouds always pass. Rasters are
// rejected only when they are neither a mask-shaped single-slice array nor a
// small unsigned-integer/logical type.
func Extract(collection map[string]models.Artifact, key string) (models.Artifact, error) {
	artifact, ok := collection[key]
	if !ok {
		return models.Artifact{}, fmt.Errorf("no artifact stored under key %q", key)
	}

	if artifact.Kind == models.KindPoints {
		return artifact, nil
	}

	if artifact.Mat == nil {
		return models.Artifact{}, &TypeMismatchError{Key: key, Reason: "raster artifact has no pixel data"}
	}

	singleSlice := artifact.Mat.Channels() == 1
	smallInteger := isSmallIntegerType(artifact.Mat.Type())

	if !singleSlice && !smallInteger {
		return models.Artifact{}, &TypeMismatchError{
			Key: key,
			Reason: fmt.Sprintf("%d channels of type %d", artifact.Mat.Channels(),
				int(artifact.Mat.Type())),
		}
	}

	return artifact, nil
}

// isSmallIntegerType accepts any unsigned 8/16-bit depth, regardless of
// channel count, so multi-channel label volumes still qualify.
func isSmallIntegerType(t gocv.MatType) bool {
	switch t {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC2, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4,
		gocv.MatTypeCV16UC1, gocv.MatTypeCV16UC2, gocv.MatTypeCV16UC3, gocv.MatTypeCV16UC4:
		return true
	default:
		return false
	}
}
