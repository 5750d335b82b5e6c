package blob

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"microseg/internal/opencv/safe"
)

func gaussianBlobImage(t *testing.T, size int, cx, cy, sigma float64) *safe.Mat {
	t.Helper()

	m, err := safe.NewMat(size, size, gocv.MatTypeCV8UC1)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d2 := (float64(x)-cx)*(float64(x)-cx) + (float64(y)-cy)*(float64(y)-cy)
			v := 10 + 190*math.Exp(-d2/(2*sigma*sigma))
			require.NoError(t, m.SetUCharAt(y, x, uint8(math.Round(v))))
		}
	}

	return m
}

func TestLoGResponsePeaksAtBlobCenter(t *testing.T) {
	img := gaussianBlobImage(t, 64, 32, 32, 3)

	response, err := LoGResponse(img, 3)
	require.NoError(t, err)
	defer response.Close()

	center, err := response.GetFloatAt(32, 32)
	require.NoError(t, err)
	corner, err := response.GetFloatAt(2, 2)
	require.NoError(t, err)

	assert.Greater(t, center, corner, "bright blob center must respond strongest")
	assert.Positive(t, center)
}

func TestLoGResponseIsClippedAtZero(t *testing.T) {
	img := gaussianBlobImage(t, 32, 16, 16, 2)

	response, err := LoGResponse(img, 2)
	require.NoError(t, err)
	defer response.Close()

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v, err := response.GetFloatAt(y, x)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, float32(0))
		}
	}
}

func TestLoGResponseFloorsDegenerateSigma(t *testing.T) {
	img := gaussianBlobImage(t, 16, 8, 8, 2)

	// A zero sigma must not produce a degenerate kernel.
	response, err := LoGResponse(img, 0)
	require.NoError(t, err)
	response.Close()
}
