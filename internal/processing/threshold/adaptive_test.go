package threshold

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"microseg/internal/opencv/safe"
)

// brightSquareImage places a bright block on a dim background.
func brightSquareImage(t *testing.T, size int, x0, y0, side int) *safe.Mat {
	t.Helper()

	m, err := safe.NewMat(size, size, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(20)
			if x >= x0 && x < x0+side && y >= y0 && y < y0+side {
				v = 200
			}
			require.NoError(t, m.SetUCharAt(y, x, v))
		}
	}

	return m
}

func TestExtractFindsBrightRegion(t *testing.T) {
	img := brightSquareImage(t, 40, 10, 10, 12)

	points, err := NewAdaptiveMasker().Extract(img, img, 2, 15)
	require.NoError(t, err)
	assert.NotEmpty(t, points)

	for _, p := range points {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, 40.0)
	}
}

func TestExtractSubsetOfGlobalFloor(t *testing.T) {
	img := brightSquareImage(t, 40, 5, 5, 10)

	const floorPct = 25.0
	points, err := NewAdaptiveMasker().Extract(img, img, 2, floorPct)
	require.NoError(t, err)

	minVal, maxVal := 20.0, 200.0
	cut := minVal + (maxVal-minVal)*floorPct/100

	// The adaptive stage can only remove points from the floor mask, never
	// add pixels below the global cut.
	for _, p := range points {
		v, err := img.GetUCharAt(int(p.Y), int(p.X))
		require.NoError(t, err)
		assert.Greater(t, float64(v), cut, "point (%v, %v) below global floor", p.X, p.Y)
	}
}

func TestExtractRejectsMismatchedDimensions(t *testing.T) {
	a := brightSquareImage(t, 40, 5, 5, 10)
	b := brightSquareImage(t, 30, 5, 5, 10)

	_, err := NewAdaptiveMasker().Extract(a, b, 2, 15)
	assert.Error(t, err)
}

func TestExtractRejectsFloatInput(t *testing.T) {
	// The adaptive threshold is an 8-bit-only operation; a float response
	// raster must be refused before it reaches native code.
	f, err := safe.NewMat(20, 20, gocv.MatTypeCV32FC1)
	require.NoError(t, err)
	defer f.Close()

	_, err = NewAdaptiveMasker().Extract(f, f, 2, 15)
	assert.Error(t, err)

	g := brightSquareImage(t, 20, 4, 4, 6)
	_, err = NewAdaptiveMasker().Extract(g, f, 2, 15)
	assert.Error(t, err)
}

func TestGlobalFloorMaskBinarizesFloatResponse(t *testing.T) {
	f, err := safe.NewMat(4, 4, gocv.MatTypeCV32FC1)
	require.NoError(t, err)
	defer f.Close()

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			require.NoError(t, f.SetFloatAt(y, x, float32(4*y+x)))
		}
	}

	mask, err := NewAdaptiveMasker().GlobalFloorMask(f, 50)
	require.NoError(t, err)
	defer mask.Close()

	assert.Equal(t, gocv.MatTypeCV8UC1, mask.Type())

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			got, err := mask.GetUCharAt(y, x)
			require.NoError(t, err)

			if float64(4*y+x) > 7.5 { // 0 + 15*50%
				assert.EqualValues(t, 255, got)
			} else {
				assert.EqualValues(t, 0, got)
			}
		}
	}
}

func TestGlobalFloorMaskCutsAtPercentage(t *testing.T) {
	img := brightSquareImage(t, 20, 4, 4, 6)

	mask, err := NewAdaptiveMasker().GlobalFloorMask(img, 50)
	require.NoError(t, err)
	defer mask.Close()

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			raw, err := img.GetUCharAt(y, x)
			require.NoError(t, err)
			got, err := mask.GetUCharAt(y, x)
			require.NoError(t, err)

			if float64(raw) > 110 { // 20 + 180*50%
				assert.EqualValues(t, 255, got)
			} else {
				assert.EqualValues(t, 0, got)
			}
		}
	}
}
