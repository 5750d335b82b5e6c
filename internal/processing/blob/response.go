package blob

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"microseg/internal/opencv/safe"
	"microseg/internal/processing/filters"
)

// minSigma floors the smoothing scale so the Gaussian kernel never
// degenerates to a single sample.
const minSigma = 0.1

// LoGResponse computes the blob saliency of src: Gaussian smoothing at
// sigma followed by a Laplacian, negated so bright blobs respond positively,
// with negative responses clipped to zero. The result is a CV32F mat.
func LoGResponse(src *safe.Mat, sigma float64) (*safe.Mat, error) {
	if err := safe.ValidateSingleChannel(src, "LoG response"); err != nil {
		return nil, err
	}

	if sigma < minSigma {
		sigma = minSigma
	}

	srcMat := src.GetMat()

	f32 := gocv.NewMat()
	defer f32.Close()
	srcMat.ConvertTo(&f32, gocv.MatTypeCV32F)

	kernelSize := filters.KernelSizeForSigma(sigma)
	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(f32, &blurred, image.Point{X: kernelSize, Y: kernelSize}, sigma, sigma, gocv.BorderDefault)

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(blurred, &lap, gocv.MatTypeCV32F, 3, 1, 0, gocv.BorderDefault)

	// Bright blobs have a negative Laplacian at their center.
	lap.MultiplyFloat(-1)

	clipped := gocv.NewMat()
	gocv.Threshold(lap, &clipped, 0, 0, gocv.ThresholdToZero)

	result, err := safe.Adopt(clipped)
	if err != nil {
		clipped.Close()
		return nil, fmt.Errorf("failed to wrap LoG response: %w", err)
	}

	return result, nil
}
