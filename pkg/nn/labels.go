package nn

import "sort"

// ImageLabels contains the objects detected in a single image
type ImageLabels struct {
	Frame   int               `json:"frame,omitempty"` // For a frame stream, this is the frame number
	Objects []ObjectDetection `json:"objects"`
}

// ObjectDetection is an object that a neural network has found in an image
type ObjectDetection struct {
	Class      int     `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// Sort detections by confidence, highest first
func SortDetections(objects []ObjectDetection) {
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Confidence > objects[j].Confidence
	})
}
