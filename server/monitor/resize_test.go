package monitor

import (
	"testing"

	"github.com/bmharper/cimg/v2"
	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/nnaccel"
	"github.com/stretchr/testify/require"
)

func makeUniformRGB(width, height int, value byte) *cimg.Image {
	img := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for i := range img.Pixels {
		img.Pixels[i] = value
	}
	return img
}

func testImageResizeForNNAt(t *testing.T, rgbWidth, rgbHeight, nnWidth, nnHeight int, quality ResizeQuality) {
	nnMemory := nnaccel.PageAlignedAlloc(nnImageStride(nnWidth, nnHeight))

	// Fill with non-black so that we can verify that our image prep is adding the
	// appropriate black padding on the bottom or right edge of the image.
	for i := range nnMemory {
		nnMemory[i] = 190
	}

	m := Monitor{
		Log:      logs.NewTestingLog(t),
		nnWidth:  nnWidth,
		nnHeight: nnHeight,
	}

	src := makeUniformRGB(rgbWidth, rgbHeight, 200)
	xform := m.prepareImageForNN(src, nnMemory, quality)

	scaleX := float32(nnWidth) / float32(rgbWidth)
	scaleY := float32(nnHeight) / float32(rgbHeight)
	scale := min(scaleX, scaleY)
	if rgbWidth == nnWidth && rgbHeight == nnHeight {
		scale = 1
	}
	require.Equal(t, scale, xform.ScaleX)
	require.Equal(t, scale, xform.ScaleY)

	scaledWidth := int(float32(rgbWidth)*scale + 0.5)
	scaledHeight := int(float32(rgbHeight)*scale + 0.5)
	nnStride := nnWidth * 3

	// Resampling filters may shift a uniform input slightly, so don't insist on
	// an exact match inside the image region
	for y := 0; y < scaledHeight; y++ {
		for x := 0; x < scaledWidth; x++ {
			for c := 0; c < 3; c++ {
				v := nnMemory[y*nnStride+x*3+c]
				require.GreaterOrEqual(t, v, byte(150), "image region at %v,%v", x, y)
			}
		}
	}
	// Padding must be exactly black
	for y := 0; y < nnHeight; y++ {
		for x := 0; x < nnWidth; x++ {
			if x < scaledWidth && y < scaledHeight {
				continue
			}
			for c := 0; c < 3; c++ {
				require.Equal(t, byte(0), nnMemory[y*nnStride+x*3+c], "padding at %v,%v", x, y)
			}
		}
	}
}

func TestImageResizeForNN(t *testing.T) {
	//                            rgb       nn
	testImageResizeForNNAt(t, 640, 480, 640, 640, ResizeQualityLow)  // scale = 1, but aspect ratio is different. black padding on bottom
	testImageResizeForNNAt(t, 480, 640, 640, 640, ResizeQualityLow)  // scale = 1, but aspect ratio is different. black padding on right
	testImageResizeForNNAt(t, 1280, 720, 640, 640, ResizeQualityLow) // typical camera frame, downscale + bottom padding
	testImageResizeForNNAt(t, 1280, 720, 640, 640, ResizeQualityHigh)
	testImageResizeForNNAt(t, 320, 240, 640, 640, ResizeQualityLow) // upscaling
	testImageResizeForNNAt(t, 640, 640, 640, 640, ResizeQualityLow) // 1:1
}
