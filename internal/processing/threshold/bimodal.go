package threshold

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"microseg/internal/opencv/safe"
	"microseg/internal/processing/filters"
)

// BimodalResult carries the estimated binarization threshold as a percent of
// the observed dynamic range, plus heuristic companion defaults for the
// downstream adaptive-threshold and boundary-fit stages. The companions are
// fixed defaults, not derived from the image.
type BimodalResult struct {
	ThresholdPercent   float64
	NeighborhoodRadius float64
	BoundaryShrink     float64
}

const (
	defaultNeighborhoodRadius = 2.0
	defaultBoundaryShrink     = 0.5
)

// BimodalEstimator finds the intensity split that minimizes combined
// within-class variance over the log-compressed histogram of an image.
// Log compression equalizes sensitivity between dim and bright blobs.
type BimodalEstimator struct {
	denoiser *filters.MedianDenoiser
}

func NewBimodalEstimator() *BimodalEstimator {
	return &BimodalEstimator{denoiser: filters.NewMedianDenoiser(3)}
}

func (e *BimodalEstimator) Estimate(src *safe.Mat) (BimodalResult, error) {
	if err := safe.ValidateGrayscale(src, "bimodal threshold estimation"); err != nil {
		return BimodalResult{}, err
	}

	denoised, err := e.denoiser.Apply(src)
	if err != nil {
		return BimodalResult{}, fmt.Errorf("median denoising failed: %w", err)
	}
	defer denoised.Close()

	samples, minVal, maxVal, err := collectLogIntensities(denoised)
	if err != nil {
		return BimodalResult{}, err
	}

	result := BimodalResult{
		NeighborhoodRadius: defaultNeighborhoodRadius,
		BoundaryShrink:     defaultBoundaryShrink,
	}

	// A constant image has no split; the variance terms degenerate to 0/0.
	// Fall back to the midpoint of the range instead of propagating NaN.
	if maxVal <= minVal {
		result.ThresholdPercent = 50.0
		return result, nil
	}

	splitLog := minimumVarianceSplit(samples)
	splitIntensity := math.Expm1(splitLog)

	percent := (splitIntensity - minVal) / (maxVal - minVal) * 100.0
	result.ThresholdPercent = clampPercent(percent)

	return result, nil
}

// collectLogIntensities gathers every pixel as log1p(v), sorted ascending,
// together with the raw intensity extrema.
func collectLogIntensities(src *safe.Mat) ([]float64, float64, float64, error) {
	rows := src.Rows()
	cols := src.Cols()
	if rows == 0 || cols == 0 {
		return nil, 0, 0, fmt.Errorf("empty image")
	}

	samples := make([]float64, 0, rows*cols)
	minVal := math.Inf(1)
	maxVal := math.Inf(-1)

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v, err := src.GetUCharAt(y, x)
			if err != nil {
				return nil, 0, 0, err
			}
			f := float64(v)
			if f < minVal {
				minVal = f
			}
			if f > maxVal {
				maxVal = f
			}
			samples = append(samples, math.Log1p(f))
		}
	}

	sort.Float64s(samples)
	return samples, minVal, maxVal, nil
}

// minimumVarianceSplit scans every split point of the sorted samples and
// returns the value midway between the two samples flanking the split with
// the smallest sum of forward and backward within-class variance. Prefix
// sums and sums of squares make every split O(1); the sort dominates
// overall cost.
func minimumVarianceSplit(sorted []float64) float64 {
	n := len(sorted)
	if n < 2 {
		if n == 1 {
			return sorted[0]
		}
		return 0
	}

	squares := make([]float64, n)
	for i, v := range sorted {
		squares[i] = v * v
	}

	cumSum := make([]float64, n)
	cumSq := make([]float64, n)
	floats.CumSum(cumSum, sorted)
	floats.CumSum(cumSq, squares)

	totalSum := cumSum[n-1]
	totalSq := cumSq[n-1]

	bestCost := math.Inf(1)
	bestIndex := n / 2

	for i := 1; i < n; i++ {
		fwdCount := float64(i)
		fwdSum := cumSum[i-1]
		fwdSq := cumSq[i-1]

		bwdCount := float64(n - i)
		bwdSum := totalSum - fwdSum
		bwdSq := totalSq - fwdSq

		fwdVar := fwdSq/fwdCount - (fwdSum/fwdCount)*(fwdSum/fwdCount)
		bwdVar := bwdSq/bwdCount - (bwdSum/bwdCount)*(bwdSum/bwdCount)

		cost := fwdVar + bwdVar
		if cost < bestCost {
			bestCost = cost
			bestIndex = i
		}
	}

	return (sorted[bestIndex-1] + sorted[bestIndex]) / 2
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
