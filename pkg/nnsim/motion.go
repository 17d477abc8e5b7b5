package nnsim

import (
	"sync"

	"github.com/hailocam/hailocam/pkg/nn"
)

// Size in pixels of the square cells that we difference
const motionCellSize = 16

// Per-cell mean absolute luma difference that counts as motion
const motionCellThreshold = 12

// MotionDetector does simple frame differencing, and reports regions of motion
// as object detections. We divide the frame into cells, compare each cell's
// average luma against the previous frame, and emit the bounding box of the
// changed cells. This is the fallback when the Hailo accelerator is not
// available, so that the pipeline still produces something useful to look at.
type MotionDetector struct {
	config nn.ModelConfig

	lock      sync.Mutex
	prevCells []uint8 // average luma per cell, from the previous frame
	prevW     int     // cell grid width of prevCells
	prevH     int     // cell grid height of prevCells
}

func NewMotionDetector(width, height int) *MotionDetector {
	return &MotionDetector{
		config: nn.ModelConfig{
			Architecture: "motion",
			Width:        width,
			Height:       height,
			Classes:      []string{"motion"},
		},
	}
}

func (m *MotionDetector) Close() {
}

func (m *MotionDetector) Config() *nn.ModelConfig {
	return &m.config
}

func (m *MotionDetector) DetectObjects(img nn.ImageCrop, params *nn.DetectionParams) ([]nn.ObjectDetection, error) {
	cellsW := (img.CropWidth + motionCellSize - 1) / motionCellSize
	cellsH := (img.CropHeight + motionCellSize - 1) / motionCellSize
	cells := make([]uint8, cellsW*cellsH)
	for cy := 0; cy < cellsH; cy++ {
		for cx := 0; cx < cellsW; cx++ {
			cells[cy*cellsW+cx] = cellLuma(img, cx, cy)
		}
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	prev := m.prevCells
	sameShape := m.prevW == cellsW && m.prevH == cellsH
	m.prevCells = cells
	m.prevW = cellsW
	m.prevH = cellsH

	if prev == nil || !sameShape {
		// First frame, or resolution changed. Nothing to compare against.
		return nil, nil
	}

	// Bounding box of all changed cells, in cell coordinates
	minX, minY := cellsW, cellsH
	maxX, maxY := -1, -1
	nChanged := 0
	for cy := 0; cy < cellsH; cy++ {
		for cx := 0; cx < cellsW; cx++ {
			i := cy*cellsW + cx
			diff := int(cells[i]) - int(prev[i])
			if diff < 0 {
				diff = -diff
			}
			if diff >= motionCellThreshold {
				nChanged++
				minX = min(minX, cx)
				minY = min(minY, cy)
				maxX = max(maxX, cx)
				maxY = max(maxY, cy)
			}
		}
	}
	if nChanged == 0 {
		return nil, nil
	}

	box := nn.MakeRect(minX*motionCellSize, minY*motionCellSize, (maxX+1)*motionCellSize, (maxY+1)*motionCellSize)
	box.ClipTo(img.CropWidth, img.CropHeight)

	// More changed cells means more confidence, saturating at a quarter of the frame
	confidence := float32(nChanged) * 4 / float32(cellsW*cellsH)
	if confidence > 1 {
		confidence = 1
	}
	return []nn.ObjectDetection{
		{
			Class:      0,
			Confidence: confidence,
			Box:        box,
		},
	}, nil
}

// Average luma of one cell. We approximate luma as (r + 2g + b) / 4.
func cellLuma(img nn.ImageCrop, cx, cy int) uint8 {
	x1 := cx * motionCellSize
	y1 := cy * motionCellSize
	x2 := min(x1+motionCellSize, img.CropWidth)
	y2 := min(y1+motionCellSize, img.CropHeight)
	sum := 0
	stride := img.Stride()
	for y := y1; y < y2; y++ {
		row := (img.CropY+y)*stride + (img.CropX+x1)*img.NChan
		for x := x1; x < x2; x++ {
			p := img.Pixels[row : row+3]
			sum += int(p[0]) + 2*int(p[1]) + int(p[2])
			row += img.NChan
		}
	}
	n := (x2 - x1) * (y2 - y1)
	return uint8(sum / (4 * n))
}
