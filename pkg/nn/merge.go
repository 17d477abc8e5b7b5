package nn

import (
	flatbush "github.com/bmharper/flatbush-go"
)

// Scan all pairs of objects in 'input', and if they have a high IoU, and their classes are specified in 'mergeMap',
// then merge them into a single object.
// For example, with mergeMap = {"truck": "car"}, a truck box that overlaps a car box
// gets deleted, and the car is kept.
// Returns the indices of the objects that should be retained.
func MergeSimilarObjects(input []ObjectDetection, mergeMap map[string]string, classes []string, minIoU float32) []int {
	// Create spatial index to avoid O(N^2) comparisons
	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(input))
	for _, b := range input {
		fb.Add(int32(b.Box.X), int32(b.Box.Y), int32(b.Box.X2()), int32(b.Box.Y2()))
	}
	fb.Finish()

	// The objects that we've already merged
	deleted := map[int]bool{}
	nChanged := 1

	for nChanged != 0 {
		nChanged = 0
		for i, in := range input {
			if deleted[i] {
				continue
			}
			expectOtherClass, ok := mergeMap[classes[in.Class]]
			if !ok {
				continue
			}
			for j := range fb.Search(int32(in.Box.X), int32(in.Box.Y), int32(in.Box.X2()), int32(in.Box.Y2())) {
				if i == j {
					continue
				}
				if deleted[j] {
					continue
				}
				if classes[input[j].Class] != expectOtherClass {
					continue
				}
				if in.Box.IOU(input[j].Box) >= minIoU {
					// Delete the class on the 'left' of the map, keep the one on the 'right'
					deleted[i] = true
					nChanged++
				}
			}
		}
	}

	retain := make([]int, 0, len(input))
	for i := range input {
		if !deleted[i] {
			retain = append(retain, i)
		}
	}
	return retain
}
