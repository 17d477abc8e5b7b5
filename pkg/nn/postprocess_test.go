package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Build a yolov8-style output tensor [4+numClasses][numBoxes], channels first
func makeYolov8Output(numBoxes, numClasses int, boxes []ObjectDetection) []float32 {
	out := make([]float32, (4+numClasses)*numBoxes)
	for i, b := range boxes {
		out[0*numBoxes+i] = float32(b.Box.X + b.Box.Width/2)
		out[1*numBoxes+i] = float32(b.Box.Y + b.Box.Height/2)
		out[2*numBoxes+i] = float32(b.Box.Width)
		out[3*numBoxes+i] = float32(b.Box.Height)
		out[(4+b.Class)*numBoxes+i] = b.Confidence
	}
	return out
}

func TestDecodeYolov8(t *testing.T) {
	numClasses := 3
	truth := []ObjectDetection{
		{Class: 1, Confidence: 0.9, Box: MakeRect(100, 120, 200, 260)},
		{Class: 2, Confidence: 0.6, Box: MakeRect(300, 300, 400, 380)},
		{Class: 0, Confidence: 0.2, Box: MakeRect(10, 10, 50, 50)}, // below threshold
	}
	out := makeYolov8Output(100, numClasses, truth)
	params := NewDetectionParams()
	dets, err := DecodeOutput("yolov8", out, 640, 640, numClasses, params)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	require.Equal(t, truth[0], dets[0])
	require.Equal(t, truth[1], dets[1])
}

func TestDecodeYolov8Clipping(t *testing.T) {
	numClasses := 3
	truth := []ObjectDetection{
		{Class: 0, Confidence: 0.8, Box: MakeRect(-20, 600, 100, 700)},
	}
	out := makeYolov8Output(10, numClasses, truth)
	params := NewDetectionParams()
	dets := DecodeYolov8Output(out, 640, 640, numClasses, params)
	require.Len(t, dets, 1)
	require.Equal(t, MakeRect(0, 600, 100, 640), dets[0].Box)

	params.Unclipped = true
	dets = DecodeYolov8Output(out, 640, 640, numClasses, params)
	require.Len(t, dets, 1)
	require.Equal(t, truth[0].Box, dets[0].Box)
}

func TestDecodeYolov5(t *testing.T) {
	numClasses := 2
	width, height := 640, 640
	rowLen := 5 + numClasses
	out := make([]float32, 4*rowLen)

	// Anchor 0: strong person at center
	out[0] = 0.5   // cx
	out[1] = 0.5   // cy
	out[2] = 0.25  // w
	out[3] = 0.5   // h
	out[4] = 0.9   // objectness
	out[5] = 0.95  // class 0
	out[6] = 0.05  // class 1

	// Anchor 1: objectness below threshold
	out[rowLen+4] = 0.3
	out[rowLen+5] = 0.99

	params := NewDetectionParams()
	dets := DecodeYolov5Output(out, width, height, numClasses, params)
	require.Len(t, dets, 1)
	require.Equal(t, 0, dets[0].Class)
	require.InDelta(t, 0.9*0.95, dets[0].Confidence, 1e-5)
	require.Equal(t, MakeRect(240, 160, 400, 480), dets[0].Box)
}

func TestNonMaxSuppression(t *testing.T) {
	dets := []ObjectDetection{
		{Class: 0, Confidence: 0.7, Box: MakeRect(105, 105, 205, 205)}, // overlaps the 0.9, same class
		{Class: 0, Confidence: 0.9, Box: MakeRect(100, 100, 200, 200)},
		{Class: 1, Confidence: 0.8, Box: MakeRect(100, 100, 200, 200)}, // same box, different class
		{Class: 0, Confidence: 0.6, Box: MakeRect(400, 400, 500, 500)}, // far away
	}
	keep := NonMaxSuppression(dets, 0.45)
	require.Len(t, keep, 3)
	// Sorted by confidence, highest first
	require.Equal(t, float32(0.9), keep[0].Confidence)
	require.Equal(t, 1, keep[1].Class)
	require.Equal(t, float32(0.6), keep[2].Confidence)

	// A threshold of 1.0 suppresses nothing
	keep = NonMaxSuppression(dets, 1.0)
	require.Len(t, keep, 4)
}

func TestMergeSimilarObjects(t *testing.T) {
	classes := []string{"person", "car", "truck"}
	input := []ObjectDetection{
		{Class: 2, Confidence: 0.6, Box: MakeRect(100, 100, 300, 250)}, // truck
		{Class: 1, Confidence: 0.8, Box: MakeRect(105, 100, 300, 255)}, // car, overlapping truck
		{Class: 0, Confidence: 0.9, Box: MakeRect(500, 100, 550, 250)}, // person, far away
	}
	retain := MergeSimilarObjects(input, map[string]string{"truck": "car"}, classes, 0.8)
	require.Equal(t, []int{1, 2}, retain)
}

func TestResizeTransform(t *testing.T) {
	// 1280x720 scaled into a 640x640 NN input. scale = min(640/1280, 640/720) = 0.5,
	// so the image occupies 640x360 and the bottom is padding.
	xform := ResizeTransform{ScaleX: 0.5, ScaleY: 0.5}
	dets := []ObjectDetection{
		{Class: 0, Confidence: 0.9, Box: MakeRect(100, 100, 200, 200)},
	}
	xform.ApplyBackward(dets)
	require.Equal(t, MakeRect(200, 200, 400, 400), dets[0].Box)

	identity := IdentityResizeTransform()
	before := dets[0].Box
	identity.ApplyBackward(dets)
	require.Equal(t, before, dets[0].Box)
}
