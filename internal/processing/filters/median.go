package filters

import (
	"fmt"

	"gocv.io/x/gocv"

	"microseg/internal/opencv/safe"
)

// MedianDenoiser suppresses shot noise while preserving edges. Used ahead of
// threshold estimation so isolated hot pixels do not skew the histogram.
type MedianDenoiser struct {
	kernelSize int
}

func NewMedianDenoiser(kernelSize int) *MedianDenoiser {
	if kernelSize < 3 {
		kernelSize = 3
	}
	if kernelSize%2 == 0 {
		kernelSize++
	}
	return &MedianDenoiser{kernelSize: kernelSize}
}

func (m *MedianDenoiser) Apply(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "median denoising"); err != nil {
		return nil, err
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	gocv.MedianBlur(srcMat, &dstMat, m.kernelSize)

	return dst, nil
}
