package monitor

import (
	"github.com/bmharper/cimg/v2"
	"github.com/hailocam/hailocam/pkg/nn"
)

type ResizeQuality int

const (
	ResizeQualityLow ResizeQuality = iota
	ResizeQualityHigh
)

// Resize the camera frame into the NN input buffer, preserving aspect ratio,
// and padding with blackness on the right or bottom edge.
// rgbNNMemory must be at least nnWidth * nnHeight * 3 bytes.
// The returned transform maps NN coordinates back to frame coordinates.
func (m *Monitor) prepareImageForNN(rgb *cimg.Image, rgbNNMemory []byte, resizeQuality ResizeQuality) nn.ResizeTransform {
	nnWidth := m.nnWidth
	nnHeight := m.nnHeight
	nnStride := nnWidth * 3

	xform := nn.IdentityResizeTransform()

	if (rgb.Width > nnWidth || rgb.Height > nnHeight) && m.hasShownResolutionWarning.CompareAndSwap(false, true) {
		m.Log.Warnf("Camera image size %vx%v is larger than NN input size %vx%v", rgb.Width, rgb.Height, nnWidth, nnHeight)
	}

	if rgb.Width == nnWidth && rgb.Height == nnHeight {
		// Rare in practice, because camera aspect ratios (eg 1920x1080, 640x480)
		// don't match the square NN inputs. This is just a memory copy.
		copy(rgbNNMemory, rgb.Pixels)
		return xform
	}

	// Scale uniformly so that the frame fits inside the NN input.
	scaleX := float32(nnWidth) / float32(rgb.Width)
	scaleY := float32(nnHeight) / float32(rgb.Height)
	scale := min(scaleX, scaleY)
	xform.ScaleX = scale
	xform.ScaleY = scale
	scaledWidth := int(float32(rgb.Width)*scale + 0.5)
	scaledHeight := int(float32(rgb.Height)*scale + 0.5)
	if scale == 1 {
		// The frame is smaller than the NN input, so just blit it into the top-left corner
		nnWrap := cimg.WrapImageStrided(nnWidth, nnHeight, cimg.PixelFormatRGB, rgbNNMemory, nnStride)
		nnWrap.CopyImageRect(rgb, 0, 0, rgb.Width, rgb.Height, 0, 0)
	} else {
		resizeParams := cimg.ResizeParams{CheapSRGBFilter: true}
		if resizeQuality == ResizeQualityHigh {
			// Of all the stbir filters I've tried, CatmullRom seems to be the sharpest
			resizeParams.Filter = cimg.ResizeFilterCatmullRom
		} else if scale < 1 {
			// Box filter for downsampling, in case we have a massive ratio
			resizeParams.Filter = cimg.ResizeFilterBox
		} else {
			// Triangle is bilinear on upsampling
			resizeParams.Filter = cimg.ResizeFilterTriangle
		}
		nnWrap := cimg.WrapImageStrided(scaledWidth, scaledHeight, cimg.PixelFormatRGB, rgbNNMemory, nnStride)
		cimg.Resize(rgb, nnWrap, &resizeParams)
	}
	if scaledWidth != nnWidth {
		// Fill the right edge with black
		for y := 0; y < nnHeight; y++ {
			clear(rgbNNMemory[y*nnStride+3*scaledWidth : y*nnStride+3*nnWidth])
		}
	} else if scaledHeight != nnHeight {
		// Fill the bottom edge with black
		for y := scaledHeight; y < nnHeight; y++ {
			clear(rgbNNMemory[y*nnStride : y*nnStride+3*nnWidth])
		}
	}
	return xform
}
