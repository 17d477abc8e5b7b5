package nnsim

import (
	"testing"

	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/stretchr/testify/require"
)

func makeFrame(width, height int, lit nn.Rect) nn.ImageCrop {
	pixels := make([]byte, width*height*3)
	for y := lit.Y; y < lit.Y2(); y++ {
		for x := lit.X; x < lit.X2(); x++ {
			i := (y*width + x) * 3
			pixels[i] = 255
			pixels[i+1] = 255
			pixels[i+2] = 255
		}
	}
	return nn.WholeImage(3, pixels, width, height)
}

func TestSimDetector(t *testing.T) {
	det := NewSimDetector(640, 640)
	defer det.Close()
	require.Equal(t, "sim", det.Config().Architecture)

	img := makeFrame(640, 480, nn.Rect{})
	params := nn.NewDetectionParams()
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		objects, err := det.DetectObjects(img, params)
		require.NoError(t, err)
		require.Len(t, objects, 1)
		obj := objects[0]
		require.Equal(t, nn.COCOPerson, obj.Class)
		require.GreaterOrEqual(t, obj.Box.X, 0)
		require.LessOrEqual(t, obj.Box.X2(), 640)
		seen[obj.Box.X] = true
	}
	// The object must actually move
	require.Greater(t, len(seen), 10)
}

func TestMotionDetector(t *testing.T) {
	det := NewMotionDetector(640, 640)
	defer det.Close()
	params := nn.NewDetectionParams()

	// First frame has nothing to compare against
	frame1 := makeFrame(320, 240, nn.Rect{})
	objects, err := det.DetectObjects(frame1, params)
	require.NoError(t, err)
	require.Empty(t, objects)

	// Identical frame: no motion
	objects, err = det.DetectObjects(frame1, params)
	require.NoError(t, err)
	require.Empty(t, objects)

	// A bright square appears
	lit := nn.MakeRect(64, 96, 128, 160)
	frame2 := makeFrame(320, 240, lit)
	objects, err = det.DetectObjects(frame2, params)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	// The reported box is cell aligned, so allow slack of one cell
	require.InDelta(t, lit.X, objects[0].Box.X, motionCellSize)
	require.InDelta(t, lit.Y, objects[0].Box.Y, motionCellSize)
	require.InDelta(t, lit.X2(), objects[0].Box.X2(), motionCellSize)
	require.InDelta(t, lit.Y2(), objects[0].Box.Y2(), motionCellSize)
	require.Greater(t, objects[0].Confidence, float32(0))
}
