package results

import (
	"fmt"

	"microseg/internal/models"
)

// RescalePoints converts an extracted point cloud to isotropic coordinates.
// Z is always scaled by zSpacing/xyPixelSize so one unit spans the same
// physical distance on every axis. When pixelUnits is false the caller wants
// physical (micron) units and all three axes are multiplied by xyPixelSize.
func RescalePoints(points []models.Point3, xyPixelSize, zSpacing float64, pixelUnits bool) ([]models.Point3, error) {
	if xyPixelSize <= 0 {
		return nil, fmt.Errorf("xy pixel size must be positive, got %v", xyPixelSize)
	}
	if zSpacing <= 0 {
		return nil, fmt.Errorf("z spacing must be positive, got %v", zSpacing)
	}

	zScale := zSpacing / xyPixelSize

	scaled := make([]models.Point3, len(points))
	for i, p := range points {
		scaled[i] = models.Point3{X: p.X, Y: p.Y, Z: p.Z * zScale}
		if !pixelUnits {
			scaled[i].X *= xyPixelSize
			scaled[i].Y *= xyPixelSize
			scaled[i].Z *= xyPixelSize
		}
	}

	return scaled, nil
}
