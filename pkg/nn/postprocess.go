package nn

import (
	"fmt"

	flatbush "github.com/bmharper/flatbush-go"
)

// Decode the raw output tensor of a NN, into a list of object detections.
// The boxes returned are in NN input pixel coordinates (eg 0..640).
// NMS has not yet been run on the detections. That is a separate pass, because the
// Hailo runtime can do NMS on-chip, in which case you never call NonMaxSuppression.
func DecodeOutput(arch string, output []float32, width, height, numClasses int, params *DetectionParams) ([]ObjectDetection, error) {
	switch arch {
	case "yolov8":
		return DecodeYolov8Output(output, width, height, numClasses, params), nil
	case "yolov5":
		return DecodeYolov5Output(output, width, height, numClasses, params), nil
	}
	return nil, fmt.Errorf("Unknown model architecture '%v'", arch)
}

// Decode a YOLOv8 output tensor.
// The tensor layout is [4+numClasses][numBoxes] (channels first), so for 80 classes
// and an input of 640x640 the tensor is 84 x 8400. The first 4 channels are the box
// center and size (cx,cy,w,h) in input pixels, and the remaining channels are
// per-class scores. There is no objectness channel. An anchor's confidence is the
// max over its class scores.
func DecodeYolov8Output(output []float32, width, height, numClasses int, params *DetectionParams) []ObjectDetection {
	nChan := 4 + numClasses
	nBoxes := len(output) / nChan
	detections := []ObjectDetection{}
	for i := 0; i < nBoxes; i++ {
		bestClass := 0
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			score := output[(4+c)*nBoxes+i]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestScore < params.ProbabilityThreshold {
			continue
		}
		cx := output[0*nBoxes+i]
		cy := output[1*nBoxes+i]
		w := output[2*nBoxes+i]
		h := output[3*nBoxes+i]
		box := MakeRect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2))
		if !params.Unclipped {
			box.ClipTo(width, height)
		}
		if box.Area() <= 0 {
			continue
		}
		detections = append(detections, ObjectDetection{
			Class:      bestClass,
			Confidence: bestScore,
			Box:        box,
		})
	}
	return detections
}

// Decode a YOLOv5 output tensor.
// The tensor layout is [numBoxes][5+numClasses] (boxes first). Each row is
// (cx,cy,w,h,objectness,score0,score1,...), with the box coordinates normalized
// to 0..1. An anchor's confidence is objectness multiplied by its best class score.
func DecodeYolov5Output(output []float32, width, height, numClasses int, params *DetectionParams) []ObjectDetection {
	rowLen := 5 + numClasses
	nBoxes := len(output) / rowLen
	detections := []ObjectDetection{}
	for i := 0; i < nBoxes; i++ {
		row := output[i*rowLen : (i+1)*rowLen]
		objectness := row[4]
		if objectness < params.ProbabilityThreshold {
			continue
		}
		bestClass := 0
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			if row[5+c] > bestScore {
				bestScore = row[5+c]
				bestClass = c
			}
		}
		confidence := objectness * bestScore
		if confidence < params.ProbabilityThreshold {
			continue
		}
		cx := row[0] * float32(width)
		cy := row[1] * float32(height)
		w := row[2] * float32(width)
		h := row[3] * float32(height)
		box := MakeRect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2))
		if !params.Unclipped {
			box.ClipTo(width, height)
		}
		if box.Area() <= 0 {
			continue
		}
		detections = append(detections, ObjectDetection{
			Class:      bestClass,
			Confidence: confidence,
			Box:        box,
		})
	}
	return detections
}

// Greedy per-class non-maximum suppression.
// Two boxes only suppress each other if they have the same class. The highest
// confidence box in an overlapping cluster wins.
// The returned list is sorted by confidence, highest first.
func NonMaxSuppression(detections []ObjectDetection, iouThreshold float32) []ObjectDetection {
	if len(detections) <= 1 {
		return detections
	}
	sorted := make([]ObjectDetection, len(detections))
	copy(sorted, detections)
	SortDetections(sorted)

	// Spatial index to avoid O(N^2) comparisons. 8400 anchors on a busy frame is
	// enough to make the brute force scan show up in a profile.
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(sorted))
	for _, d := range sorted {
		fb.Add(int32(d.Box.X), int32(d.Box.Y), int32(d.Box.X2()), int32(d.Box.Y2()))
	}
	fb.Finish()

	suppressed := make([]bool, len(sorted))
	keep := []ObjectDetection{}
	for i, d := range sorted {
		if suppressed[i] {
			continue
		}
		keep = append(keep, d)
		for j := range fb.Search(int32(d.Box.X), int32(d.Box.Y), int32(d.Box.X2()), int32(d.Box.Y2())) {
			if j <= i || suppressed[j] {
				continue
			}
			if sorted[j].Class != d.Class {
				continue
			}
			if d.Box.IOU(sorted[j].Box) >= iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return keep
}
