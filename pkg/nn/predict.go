package nn

import (
	"fmt"

	"github.com/bmharper/cimg/v2"
)

type InferenceOptions struct {
	MinSize        int      // Minimum size of object, in pixels. If max(width, height) >= MinSize, then use the object
	MaxImageHeight int      // If image height is larger than this, then scale it down to this size (0 = no scaling)
	Classes        []string // List of class names to detect (eg ["person", "car", "bear"]). Empty list means all classes.
}

// Run inference on a single image file, and return the detected objects.
// If the image is larger than the NN input, we run tiled inference over it.
func RunInferenceOnImageFile(model ObjectDetector, inputFile string, options InferenceOptions) (*ImageLabels, error) {
	modelConfig := model.Config()

	// Build a dictionary of the class indices that we're interested in.
	// An empty Classes list means everything the model knows.
	keepClass := map[int]bool{}
	if len(options.Classes) > 0 {
		nnClassToIndex := map[string]int{}
		for i, class := range modelConfig.Classes {
			nnClassToIndex[class] = i
		}
		for _, class := range options.Classes {
			idx, ok := nnClassToIndex[class]
			if !ok {
				return nil, fmt.Errorf("Class '%v' not found in model", class)
			}
			keepClass[idx] = true
		}
	}

	rgb, err := cimg.ReadFile(inputFile)
	if err != nil {
		return nil, err
	}
	rgb = rgb.ToRGB()

	if options.MaxImageHeight > 0 && rgb.Height > options.MaxImageHeight {
		aspect := float64(rgb.Width) / float64(rgb.Height)
		newHeight := options.MaxImageHeight
		newWidth := int(float64(newHeight)*aspect + 0.5)
		rgb = cimg.ResizeNew(rgb, newWidth, newHeight, nil)
	}

	img := WholeImage(rgb.NChan(), rgb.Pixels, rgb.Width, rgb.Height)
	objects, err := TiledInference(model, img, NewDetectionParams(), 1)
	if err != nil {
		return nil, err
	}

	labels := &ImageLabels{}
	for _, obj := range objects {
		if len(keepClass) != 0 && !keepClass[obj.Class] {
			continue
		}
		if obj.Box.Width >= options.MinSize || obj.Box.Height >= options.MinSize {
			labels.Objects = append(labels.Objects, obj)
		}
	}
	return labels, nil
}
