package filters

import (
	"fmt"

	"gocv.io/x/gocv"

	"microseg/internal/opencv/safe"
)

// BlurDifference computes the difference of two Gaussian blurs of the same
// image, a band-pass response that lights up structures between the two
// scales. sigmaFine must be smaller than sigmaCoarse for a positive blob
// response.
type BlurDifference struct {
	smoother *GaussianSmoother
}

func NewBlurDifference() *BlurDifference {
	return &BlurDifference{smoother: NewGaussianSmoother()}
}

func (b *BlurDifference) Apply(src *safe.Mat, sigmaFine, sigmaCoarse float64) (*safe.Mat, error) {
	if err := safe.ValidateSingleChannel(src, "blur difference"); err != nil {
		return nil, err
	}

	fine, err := b.smoother.Apply(src, sigmaFine)
	if err != nil {
		return nil, fmt.Errorf("fine blur failed: %w", err)
	}
	defer fine.Close()

	coarse, err := b.smoother.Apply(src, sigmaCoarse)
	if err != nil {
		return nil, fmt.Errorf("coarse blur failed: %w", err)
	}
	defer coarse.Close()

	dst, err := safe.NewMat(src.Rows(), src.Cols(), src.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to create destination Mat: %w", err)
	}

	fineMat := fine.GetMat()
	coarseMat := coarse.GetMat()
	dstMat := dst.GetMat()
	gocv.Subtract(fineMat, coarseMat, &dstMat)

	return dst, nil
}

// MinMax returns the intensity extrema of a single-channel mat.
func MinMax(src *safe.Mat) (minVal, maxVal float64, err error) {
	if err := safe.ValidateSingleChannel(src, "min-max scan"); err != nil {
		return 0, 0, err
	}

	srcMat := src.GetMat()
	minV, maxV, _, _ := gocv.MinMaxLoc(srcMat)
	return float64(minV), float64(maxV), nil
}
