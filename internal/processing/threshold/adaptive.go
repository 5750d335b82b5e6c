package threshold

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"microseg/internal/models"
	"microseg/internal/opencv/safe"
	"microseg/internal/processing/filters"
)

// AdaptiveMasker builds a foreground mask by combining a locally-adaptive
// threshold surface with a global brightness floor, then cleans single-pixel
// specks before emitting the surviving pixel coordinates.
type AdaptiveMasker struct{}

func NewAdaptiveMasker() *AdaptiveMasker {
	return &AdaptiveMasker{}
}

// Extract returns the foreground pixel coordinates of raw. The adaptive
// threshold surface is computed over denoised with a window derived from
// radius; the floor keeps only pixels brighter than min + range*floorPct/100
// of the raw image. Callers needing a dense mask must rasterize the result.
func (a *AdaptiveMasker) Extract(raw, denoised *safe.Mat, radius, floorPct float64) ([]models.Point, error) {
	if err := safe.ValidateGrayscale(raw, "adaptive mask extraction"); err != nil {
		return nil, err
	}
	if err := safe.ValidateGrayscale(denoised, "adaptive mask extraction"); err != nil {
		return nil, err
	}
	if raw.Rows() != denoised.Rows() || raw.Cols() != denoised.Cols() {
		return nil, fmt.Errorf("raw and denoised dimensions differ: %dx%d vs %dx%d",
			raw.Cols(), raw.Rows(), denoised.Cols(), denoised.Rows())
	}

	adaptive, err := a.adaptiveSurfaceMask(denoised, radius)
	if err != nil {
		return nil, fmt.Errorf("adaptive threshold failed: %w", err)
	}
	defer adaptive.Close()

	floor, err := a.GlobalFloorMask(raw, floorPct)
	if err != nil {
		return nil, fmt.Errorf("global floor mask failed: %w", err)
	}
	defer floor.Close()

	combined, err := safe.NewMat(raw.Rows(), raw.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, err
	}
	defer combined.Close()

	adaptiveMat := adaptive.GetMat()
	floorMat := floor.GetMat()
	combinedMat := combined.GetMat()
	gocv.BitwiseAnd(adaptiveMat, floorMat, &combinedMat)

	cleaned, err := a.removeSpecks(combined)
	if err != nil {
		return nil, fmt.Errorf("speck removal failed: %w", err)
	}
	defer cleaned.Close()

	return collectForeground(cleaned)
}

// adaptiveSurfaceMask binarizes against a sliding local-mean surface with
// bright-foreground polarity. Window side is 2*ceil(radius)+1.
func (a *AdaptiveMasker) adaptiveSurfaceMask(src *safe.Mat, radius float64) (*safe.Mat, error) {
	window := 2*int(math.Ceil(radius)) + 1
	if window < 3 {
		window = 3
	}

	dst, err := safe.NewMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, err
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	// A one-count bias below the local mean keeps flat region interiors
	// foreground; the global floor removes flat background.
	gocv.AdaptiveThreshold(srcMat, &dstMat, 255, gocv.AdaptiveThresholdMean, gocv.ThresholdBinary, window, 1)

	return dst, nil
}

// GlobalFloorMask keeps pixels whose raw intensity exceeds
// min + range*floorPct/100. Accepts any single-channel depth, so it can
// binarize float responses; the returned mask is always CV8UC1. Exported
// because the combined mask is by construction a subset of it.
func (a *AdaptiveMasker) GlobalFloorMask(raw *safe.Mat, floorPct float64) (*safe.Mat, error) {
	minVal, maxVal, err := filters.MinMax(raw)
	if err != nil {
		return nil, err
	}

	cut := minVal + (maxVal-minVal)*clampPercent(floorPct)/100.0

	rawMat := raw.GetMat()

	// Threshold keeps the source depth; convert so callers always get a
	// CV8UC1 mask with values in {0, 255}.
	thresholded := gocv.NewMat()
	defer thresholded.Close()
	gocv.Threshold(rawMat, &thresholded, float32(cut), 255, gocv.ThresholdBinary)

	dst, err := safe.NewMat(raw.Rows(), raw.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, err
	}

	dstMat := dst.GetMat()
	thresholded.ConvertTo(&dstMat, gocv.MatTypeCV8UC1)

	return dst, nil
}

// removeSpecks pads the mask by one pixel, erodes with a 4-connected cross,
// crops back and dilates with the same element. Isolated single-pixel
// foreground disappears while larger regions keep their interior.
func (a *AdaptiveMasker) removeSpecks(mask *safe.Mat) (*safe.Mat, error) {
	cross := gocv.GetStructuringElement(gocv.MorphCross, image.Point{X: 3, Y: 3})
	defer cross.Close()

	maskMat := mask.GetMat()

	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(maskMat, &padded, 1, 1, 1, 1, gocv.BorderConstant, color.RGBA{})

	eroded := gocv.NewMat()
	defer eroded.Close()
	gocv.Erode(padded, &eroded, cross)

	cropRect := image.Rect(1, 1, mask.Cols()+1, mask.Rows()+1)
	cropped := eroded.Region(cropRect)
	defer cropped.Close()

	result, err := safe.NewMat(mask.Rows(), mask.Cols(), gocv.MatTypeCV8UC1)
	if err != nil {
		return nil, err
	}

	resultMat := result.GetMat()
	gocv.Dilate(cropped, &resultMat, cross)

	return result, nil
}

func collectForeground(mask *safe.Mat) ([]models.Point, error) {
	rows := mask.Rows()
	cols := mask.Cols()

	var points []models.Point
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v, err := mask.GetUCharAt(y, x)
			if err != nil {
				return nil, err
			}
			if v > 0 {
				points = append(points, models.Point{X: float64(x), Y: float64(y)})
			}
		}
	}

	return points, nil
}
