// Package layers provides the built-in pipeline transforms. Each layer
// adapts one processing algorithm to the pipeline.Layer contract and
// validates its parameter arity at build time.
package layers

import (
	"context"
	"fmt"

	"microseg/internal/models"
	"microseg/internal/pipeline"
	"microseg/internal/processing/blob"
	"microseg/internal/processing/filters"
	"microseg/internal/processing/morphology"
	"microseg/internal/processing/threshold"
)

// RegisterBuiltins adds every built-in transform to the registry.
func RegisterBuiltins(registry *pipeline.Registry) error {
	builtins := map[string]pipeline.Factory{
		"median_denoise":    newMedianDenoise,
		"gaussian_blur":     newGaussianBlur,
		"blur_difference":   newBlurDifference,
		"log_response":      newLoGResponse,
		"global_threshold":  newGlobalThreshold,
		"bimodal_threshold": newBimodalThreshold,
		"adaptive_mask":     newAdaptiveMask,
		"hull_detect":       newHullDetect,
		"morphology_refine": newMorphologyRefine,
	}

	for name, factory := range builtins {
		if err := registry.Register(name, factory); err != nil {
			return err
		}
	}

	return nil
}

func requireArity(name string, paramIndices []int, want int) error {
	if len(paramIndices) != want {
		return fmt.Errorf("%s consumes %d parameter(s), got %d", name, want, len(paramIndices))
	}
	return nil
}

func rasterInput(name string, inputs []models.Artifact) (models.Artifact, error) {
	if len(inputs) != 1 {
		return models.Artifact{}, fmt.Errorf("%s expects one image input, got %d", name, len(inputs))
	}
	if !inputs[0].IsRaster() {
		return models.Artifact{}, fmt.Errorf("%s expects a raster input, got %s", name, inputs[0].Kind)
	}
	return inputs[0], nil
}

// base carries the slot bindings shared by every built-in layer.
type base struct {
	name         string
	paramIndices []int
	imageIndices []int
}

func (b base) Name() string        { return b.name }
func (b base) ParamIndices() []int { return b.paramIndices }
func (b base) ImageIndices() []int { return b.imageIndices }

// medianDenoise lightly denoises the most recent raster.
type medianDenoise struct {
	base
	denoiser *filters.MedianDenoiser
}

func newMedianDenoise(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("median_denoise", paramIndices, 0); err != nil {
		return nil, err
	}
	return &medianDenoise{
		base:     base{name: "median_denoise", imageIndices: imageIndices},
		denoiser: filters.NewMedianDenoiser(3),
	}, nil
}

func (l *medianDenoise) Apply(_ context.Context, inputs []models.Artifact, _ []pipeline.Parameter) (models.Artifact, error) {
	in, err := rasterInput(l.name, inputs)
	if err != nil {
		return models.Artifact{}, err
	}

	out, err := l.denoiser.Apply(in.Mat)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.RasterArtifact(out), nil
}

// gaussianBlur smooths the most recent raster at the bound sigma parameter.
type gaussianBlur struct {
	base
	smoother *filters.GaussianSmoother
}

func newGaussianBlur(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("gaussian_blur", paramIndices, 1); err != nil {
		return nil, err
	}
	return &gaussianBlur{
		base:     base{name: "gaussian_blur", paramIndices: paramIndices, imageIndices: imageIndices},
		smoother: filters.NewGaussianSmoother(),
	}, nil
}

func (l *gaussianBlur) Apply(_ context.Context, inputs []models.Artifact, params []pipeline.Parameter) (models.Artifact, error) {
	in, err := rasterInput(l.name, inputs)
	if err != nil {
		return models.Artifact{}, err
	}

	out, err := l.smoother.Apply(in.Mat, params[0].Value)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.RasterArtifact(out), nil
}

// blurDifference computes a band-pass response between two blur scales.
type blurDifference struct {
	base
	diff *filters.BlurDifference
}

func newBlurDifference(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("blur_difference", paramIndices, 2); err != nil {
		return nil, err
	}
	return &blurDifference{
		base: base{name: "blur_difference", paramIndices: paramIndices, imageIndices: imageIndices},
		diff: filters.NewBlurDifference(),
	}, nil
}

func (l *blurDifference) Apply(_ context.Context, inputs []models.Artifact, params []pipeline.Parameter) (models.Artifact, error) {
	in, err := rasterInput(l.name, inputs)
	if err != nil {
		return models.Artifact{}, err
	}

	out, err := l.diff.Apply(in.Mat, params[0].Value, params[1].Value)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.RasterArtifact(out), nil
}

// logResponse computes the clipped Laplacian-of-Gaussian blob saliency.
type logResponse struct {
	base
}

func newLoGResponse(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("log_response", paramIndices, 1); err != nil {
		return nil, err
	}
	return &logResponse{
		base: base{name: "log_response", paramIndices: paramIndices, imageIndices: imageIndices},
	}, nil
}

func (l *logResponse) Apply(_ context.Context, inputs []models.Artifact, params []pipeline.Parameter) (models.Artifact, error) {
	in, err := rasterInput(l.name, inputs)
	if err != nil {
		return models.Artifact{}, err
	}

	out, err := blob.LoGResponse(in.Mat, params[0].Value)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.RasterArtifact(out), nil
}

// globalThreshold binarizes the most recent raster at a percentage of its
// dynamic range.
type globalThreshold struct {
	base
	masker *threshold.AdaptiveMasker
}

func newGlobalThreshold(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("global_threshold", paramIndices, 1); err != nil {
		return nil, err
	}
	return &globalThreshold{
		base:   base{name: "global_threshold", paramIndices: paramIndices, imageIndices: imageIndices},
		masker: threshold.NewAdaptiveMasker(),
	}, nil
}

func (l *globalThreshold) Apply(_ context.Context, inputs []models.Artifact, params []pipeline.Parameter) (models.Artifact, error) {
	in, err := rasterInput(l.name, inputs)
	if err != nil {
		return models.Artifact{}, err
	}

	mask, err := l.masker.GlobalFloorMask(in.Mat, params[0].Value)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.MaskArtifact(mask), nil
}

// bimodalThreshold estimates the optimal split of a bimodal intensity
// distribution and binarizes at it. Consumes no parameters.
type bimodalThreshold struct {
	base
	estimator *threshold.BimodalEstimator
	masker    *threshold.AdaptiveMasker
}

func newBimodalThreshold(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("bimodal_threshold", paramIndices, 0); err != nil {
		return nil, err
	}
	return &bimodalThreshold{
		base:      base{name: "bimodal_threshold", imageIndices: imageIndices},
		estimator: threshold.NewBimodalEstimator(),
		masker:    threshold.NewAdaptiveMasker(),
	}, nil
}

func (l *bimodalThreshold) Apply(_ context.Context, inputs []models.Artifact, _ []pipeline.Parameter) (models.Artifact, error) {
	in, err := rasterInput(l.name, inputs)
	if err != nil {
		return models.Artifact{}, err
	}

	estimate, err := l.estimator.Estimate(in.Mat)
	if err != nil {
		return models.Artifact{}, err
	}

	mask, err := l.masker.GlobalFloorMask(in.Mat, estimate.ThresholdPercent)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.MaskArtifact(mask), nil
}

// adaptiveMask extracts foreground pixel coordinates from an adaptive
// threshold surface combined with a global floor. With two image inputs the
// first is the raw image, the second the denoised one; with one input it
// serves as both.
type adaptiveMask struct {
	base
	masker *threshold.AdaptiveMasker
}

func newAdaptiveMask(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("adaptive_mask", paramIndices, 2); err != nil {
		return nil, err
	}
	if imageIndices != nil && len(imageIndices) != 2 {
		return nil, fmt.Errorf("adaptive_mask expects two image inputs (raw, denoised), got %d", len(imageIndices))
	}
	return &adaptiveMask{
		base:   base{name: "adaptive_mask", paramIndices: paramIndices, imageIndices: imageIndices},
		masker: threshold.NewAdaptiveMasker(),
	}, nil
}

func (l *adaptiveMask) Apply(_ context.Context, inputs []models.Artifact, params []pipeline.Parameter) (models.Artifact, error) {
	var raw, denoised models.Artifact
	switch len(inputs) {
	case 1:
		raw, denoised = inputs[0], inputs[0]
	case 2:
		raw, denoised = inputs[0], inputs[1]
	default:
		return models.Artifact{}, fmt.Errorf("adaptive_mask expects one or two image inputs, got %d", len(inputs))
	}

	if !raw.IsRaster() || !denoised.IsRaster() {
		return models.Artifact{}, fmt.Errorf("adaptive_mask expects raster inputs")
	}

	points, err := l.masker.Extract(raw.Mat, denoised.Mat, params[0].Value, params[1].Value)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.PointsArtifact(points), nil
}

// hullDetect fits the offset boundary polygon over a detected point set.
type hullDetect struct {
	base
	detector *blob.HullDetector
}

func newHullDetect(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("hull_detect", paramIndices, 2); err != nil {
		return nil, err
	}
	return &hullDetect{
		base:     base{name: "hull_detect", paramIndices: paramIndices, imageIndices: imageIndices},
		detector: blob.NewHullDetector(),
	}, nil
}

func (l *hullDetect) Apply(_ context.Context, inputs []models.Artifact, params []pipeline.Parameter) (models.Artifact, error) {
	if len(inputs) != 1 {
		return models.Artifact{}, fmt.Errorf("hull_detect expects one input, got %d", len(inputs))
	}
	if inputs[0].Kind != models.KindPoints {
		return models.Artifact{}, fmt.Errorf("hull_detect expects a point set, got %s", inputs[0].Kind)
	}

	boundary := l.detector.Detect(inputs[0].Points, params[0].Value, params[1].Value)
	return models.PointsArtifact(boundary), nil
}

// morphologyRefine cleans a binary mask with matched opening and closing.
type morphologyRefine struct {
	base
	refiner *morphology.Refiner
}

func newMorphologyRefine(paramIndices, imageIndices []int) (pipeline.Layer, error) {
	if err := requireArity("morphology_refine", paramIndices, 1); err != nil {
		return nil, err
	}
	return &morphologyRefine{
		base:    base{name: "morphology_refine", paramIndices: paramIndices, imageIndices: imageIndices},
		refiner: morphology.NewRefiner(),
	}, nil
}

func (l *morphologyRefine) Apply(_ context.Context, inputs []models.Artifact, params []pipeline.Parameter) (models.Artifact, error) {
	if len(inputs) != 1 {
		return models.Artifact{}, fmt.Errorf("morphology_refine expects one input, got %d", len(inputs))
	}
	if inputs[0].Kind != models.KindMask {
		return models.Artifact{}, fmt.Errorf("morphology_refine expects a mask, got %s", inputs[0].Kind)
	}

	out, err := l.refiner.Refine(inputs[0].Mat, params[0].Value)
	if err != nil {
		return models.Artifact{}, err
	}
	return models.MaskArtifact(out), nil
}
