package nnsim

// Package nnsim provides software stand-ins for the Hailo accelerator.
// SimDetector emits a deterministic moving object, and MotionDetector does
// crude frame differencing. Both implement nn.ObjectDetector, so the rest of
// the system doesn't care that there's no NPU on this machine.

import (
	"sync"

	"github.com/hailocam/hailocam/pkg/nn"
)

// SimDetector pretends to be an object detector. Every frame it reports a
// single "person" that walks back and forth across the frame. Useful for
// exercising the full pipeline on a dev machine with no camera and no Hailo.
type SimDetector struct {
	config nn.ModelConfig

	lock  sync.Mutex
	frame int64
}

func NewSimDetector(width, height int) *SimDetector {
	return &SimDetector{
		config: nn.ModelConfig{
			Architecture: "sim",
			Width:        width,
			Height:       height,
			Classes:      nn.COCOClasses,
		},
	}
}

func (s *SimDetector) Close() {
}

func (s *SimDetector) Config() *nn.ModelConfig {
	return &s.config
}

func (s *SimDetector) DetectObjects(img nn.ImageCrop, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	s.lock.Lock()
	frame := s.frame
	s.frame++
	s.lock.Unlock()

	// An object roughly a third of the frame tall, walking left to right and
	// back again, bouncing off the edges.
	boxWidth := img.CropWidth / 8
	boxHeight := img.CropHeight / 3
	span := img.CropWidth - boxWidth
	phase := int(frame*3) % (2 * span)
	x := phase
	if x > span {
		x = 2*span - x
	}
	y := (img.CropHeight - boxHeight) / 2
	return []nn.ObjectDetection{
		{
			Class:      nn.COCOPerson,
			Confidence: 0.75,
			Box:        nn.Rect{X: x, Y: y, Width: boxWidth, Height: boxHeight},
		},
	}, nil
}
