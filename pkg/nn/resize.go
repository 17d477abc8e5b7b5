package nn

// ResizeTransform expresses the scaling that was performed on an image before
// sending it to a neural network. We need this so that we can map boxes that
// the NN detects back into the coordinate space of the original image.
// When the aspect ratios of the camera and the NN differ, the image is scaled
// by min(scaleX, scaleY) and the right or bottom edge is padded with black,
// so a single uniform scale is all we need to store.
type ResizeTransform struct {
	ScaleX float32
	ScaleY float32
}

func IdentityResizeTransform() ResizeTransform {
	return ResizeTransform{
		ScaleX: 1,
		ScaleY: 1,
	}
}

// Modify the boxes in the given detections, so that they are in the coordinate
// space of the original image (i.e. undo the scaling that was applied before
// running the NN).
func (r *ResizeTransform) ApplyBackward(detections []ObjectDetection) {
	if r.ScaleX == 1 && r.ScaleY == 1 {
		return
	}
	for i := range detections {
		b := &detections[i].Box
		x2 := float32(b.X2()) / r.ScaleX
		y2 := float32(b.Y2()) / r.ScaleY
		b.X = int(float32(b.X) / r.ScaleX)
		b.Y = int(float32(b.Y) / r.ScaleY)
		b.Width = int(x2+0.5) - b.X
		b.Height = int(y2+0.5) - b.Y
	}
}
