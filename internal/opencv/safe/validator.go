package safe

import (
	"fmt"

	"gocv.io/x/gocv"
)

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}

	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}

	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}

	if mat.Rows() <= 0 || mat.Cols() <= 0 {
		return fmt.Errorf("Mat has invalid dimensions %dx%d for operation: %s",
			mat.Cols(), mat.Rows(), operation)
	}

	return nil
}

// ValidateSingleChannel rejects multi-channel mats for operations that assume
// grayscale input.
func ValidateSingleChannel(mat *Mat, operation string) error {
	if err := ValidateMatForOperation(mat, operation); err != nil {
		return err
	}

	if mat.Channels() != 1 {
		return fmt.Errorf("operation %s requires single-channel Mat, got %d channels",
			operation, mat.Channels())
	}

	return nil
}

// ValidateGrayscale rejects mats that are not 8-bit single-channel images.
// Operations built on OpenCV's 8-bit-only routines must check this up front;
// the underlying assertion failures do not surface as Go errors.
func ValidateGrayscale(mat *Mat, operation string) error {
	if err := ValidateSingleChannel(mat, operation); err != nil {
		return err
	}

	if mat.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("operation %s requires 8-bit grayscale Mat, got type %d",
			operation, int(mat.Type()))
	}

	return nil
}

// ValidateBinaryType rejects mats that cannot hold a binary mask.
func ValidateBinaryType(mat *Mat, operation string) error {
	if err := ValidateSingleChannel(mat, operation); err != nil {
		return err
	}

	if mat.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("operation %s requires CV8UC1 mask, got type %d",
			operation, int(mat.Type()))
	}

	return nil
}
