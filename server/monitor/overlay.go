package monitor

import (
	"fmt"
	"image"

	"github.com/bmharper/cimg/v2"
	"github.com/fogleman/gg"
	"github.com/hailocam/hailocam/pkg/nn"
)

// Box colors, cycled by class ID
var overlayPalette = [][3]float64{
	{0.22, 0.79, 0.25}, // green
	{0.96, 0.55, 0.11}, // orange
	{0.24, 0.56, 0.92}, // blue
	{0.90, 0.23, 0.35}, // red
	{0.70, 0.40, 0.89}, // purple
	{0.93, 0.83, 0.16}, // yellow
}

// Draw detection boxes, class/confidence labels and an FPS readout onto a
// copy of rgb. rgb is not modified. fps <= 0 hides the readout.
func DrawDetections(rgb *cimg.Image, objects []nn.ObjectDetection, classes []string, fps float64) *cimg.Image {
	canvas := rgbToRGBA(rgb)
	dc := gg.NewContextForRGBA(canvas)
	if fps > 0 {
		readout := fmt.Sprintf("%.1f FPS", fps)
		readoutW, readoutH := dc.MeasureString(readout)
		dc.SetRGB(0, 0, 0)
		dc.DrawRectangle(4, 4, readoutW+6, readoutH+4)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		dc.DrawString(readout, 7, 4+readoutH)
	}
	for _, obj := range objects {
		col := overlayPalette[obj.Class%len(overlayPalette)]
		x := float64(obj.Box.X)
		y := float64(obj.Box.Y)
		w := float64(obj.Box.Width)
		h := float64(obj.Box.Height)
		dc.SetRGB(col[0], col[1], col[2])
		dc.SetLineWidth(2)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		label := fmt.Sprintf("%v %.2f", className(classes, obj.Class), obj.Confidence)
		labelW, labelH := dc.MeasureString(label)
		// Put the label above the box, unless that would fall off the top of the frame
		labelY := y - labelH - 4
		if labelY < 0 {
			labelY = y
		}
		dc.DrawRectangle(x, labelY, labelW+6, labelH+4)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawString(label, x+3, labelY+labelH)
	}
	return rgbaToRGB(canvas)
}

// Most recent frame with detection boxes burned in, compressed to JPEG.
// Returns nil if no frame has been processed yet.
func (m *Monitor) AnnotatedJPEG(quality int) ([]byte, error) {
	img, detection := m.LatestFrame()
	if img == nil {
		return nil, nil
	}
	var objects []nn.ObjectDetection
	if detection != nil {
		objects = detection.Objects
	}
	annotated := DrawDetections(img, objects, m.Classes(), m.cam.FPS())
	return cimg.Compress(annotated, cimg.MakeCompressParams(cimg.Sampling420, quality, 0))
}

func className(classes []string, class int) string {
	if class >= 0 && class < len(classes) {
		return classes[class]
	}
	return fmt.Sprintf("class %v", class)
}

func rgbToRGBA(rgb *cimg.Image) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, rgb.Width, rgb.Height))
	for y := 0; y < rgb.Height; y++ {
		src := rgb.Pixels[y*rgb.Stride:]
		dst := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < rgb.Width; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 255
		}
	}
	return canvas
}

func rgbaToRGB(canvas *image.RGBA) *cimg.Image {
	width := canvas.Rect.Dx()
	height := canvas.Rect.Dy()
	rgb := cimg.NewImage(width, height, cimg.PixelFormatRGB)
	for y := 0; y < height; y++ {
		src := canvas.Pix[y*canvas.Stride:]
		dst := rgb.Pixels[y*rgb.Stride:]
		for x := 0; x < width; x++ {
			dst[x*3] = src[x*4]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return rgb
}
