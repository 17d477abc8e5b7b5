package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRect(t *testing.T) {
	a := MakeRect(0, 0, 10, 10)
	b := MakeRect(5, 5, 15, 15)
	require.Equal(t, 100, a.Area())
	require.Equal(t, Rect{X: 5, Y: 5, Width: 5, Height: 5}, a.Intersection(b))
	require.Equal(t, Rect{X: 0, Y: 0, Width: 15, Height: 15}, a.Union(b))
	require.InDelta(t, 25.0/175.0, a.IOU(b), 1e-6)

	// no overlap
	c := MakeRect(20, 20, 30, 30)
	require.Equal(t, 0, a.Intersection(c).Area())
	require.Equal(t, float32(0), a.IOU(c))

	require.Equal(t, Point{X: 5, Y: 5}, a.Center())
}

func TestRectClipTo(t *testing.T) {
	r := MakeRect(-10, -5, 650, 300)
	r.ClipTo(640, 640)
	require.Equal(t, Rect{X: 0, Y: 0, Width: 640, Height: 300}, r)

	// entirely outside
	r = MakeRect(700, 700, 750, 750)
	r.ClipTo(640, 640)
	require.Equal(t, 0, r.Area())
}

func TestCrop(t *testing.T) {
	pixels := make([]byte, 100*50*3)
	whole := WholeImage(3, pixels, 100, 50)
	require.Equal(t, 100, whole.CropWidth)
	require.Equal(t, 50, whole.CropHeight)

	c := whole.Crop(10, 20, 30, 40)
	require.Equal(t, 10, c.CropX)
	require.Equal(t, 20, c.CropY)
	require.Equal(t, 20, c.CropWidth)
	require.Equal(t, 20, c.CropHeight)
	require.Equal(t, 300, c.Stride())

	require.Panics(t, func() { whole.Crop(0, 0, 101, 10) })
}
