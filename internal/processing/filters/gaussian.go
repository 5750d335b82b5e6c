package filters

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"microseg/internal/opencv/safe"
)

// GaussianSmoother applies separable Gaussian smoothing. It is the shared
// blur primitive used by the blob detector and the blur-difference layer.
type GaussianSmoother struct{}

func NewGaussianSmoother() *GaussianSmoother {
	return &GaussianSmoother{}
}

func (g *GaussianSmoother) Apply(src *safe.Mat, sigma float64) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "gaussian smoothing"); err != nil {
		return nil, err
	}

	if sigma <= 0.0 {
		return src.Clone()
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	kernelSize := KernelSizeForSigma(sigma)

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	gocv.GaussianBlur(srcMat, &dstMat, image.Point{X: kernelSize, Y: kernelSize}, sigma, sigma, gocv.BorderDefault)

	return dst, nil
}

// KernelSizeForSigma derives an odd kernel size covering roughly three
// standard deviations on each side, clamped to a practical range.
func KernelSizeForSigma(sigma float64) int {
	kernelSize := int(sigma*6) + 1
	if kernelSize%2 == 0 {
		kernelSize++
	}
	if kernelSize < 3 {
		kernelSize = 3
	}
	if kernelSize > 31 {
		kernelSize = 31
	}
	return kernelSize
}
