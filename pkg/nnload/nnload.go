package nnload

// Package nnload wraps up our 'nn' interface layer, and has concrete references to our
// neural network implementations, so that you can just call one function to load a
// model, and not need to know about the implementation details.
//
// This is also the place where we detect the presence of the Hailo accelerator,
// and then use that if it is available.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/hailocam/hailocam/pkg/nnaccel"
	"github.com/hailocam/hailocam/pkg/nnsim"
)

// If not nil, then we have successfully loaded the Hailo AI accelerator module
var hailoAccel *nnaccel.Accelerator
var isLoaded bool

// Return true if we are using a hardware NN accelerator
func HaveAccelerator() bool {
	return HaveHailo()
}

// Return true if we have a Hailo accelerator
func HaveHailo() bool {
	return hailoAccel != nil
}

// Return the NN accelerator that we choose to use (or nil if we must fall back to software)
func Accelerator() *nnaccel.Accelerator {
	// If we supported more accelerators, then they'd go here
	return hailoAccel
}

func ModelStub(modelName string, width, height int) string {
	// eg "yolov8s_640_640"
	return fmt.Sprintf("%v_%v_%v", modelName, width, height)
}

// Search for the model file on disk.
// We look inside modelDir first, and then in the places that the Hailo packages
// install their precompiled models.
func FindModelFile(device *nnaccel.Device, modelDir, modelName string, width, height int) (string, error) {
	subdir, ext := device.ModelFiles()
	stub := ModelStub(modelName, width, height)
	tryPaths := []string{
		filepath.Join(modelDir, subdir, stub+ext[0]),
		filepath.Join(modelDir, stub+ext[0]),
		filepath.Join("/usr/share/hailo-models", stub+ext[0]),
		filepath.Join("/usr/share/hailo-models", modelName+ext[0]),
		filepath.Join("/opt/hailo/models", modelName+ext[0]),
	}
	for _, p := range tryPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("Model '%v' not found (searched %v)", modelName, tryPaths)
}

// LoadModel loads a neural network.
// If the Hailo accelerator is available, then we load the compiled model onto it.
// If not, then we fall back to the software motion detector, so that the rest of
// the pipeline keeps working.
func LoadModel(logger logs.Log, modelDir, modelName string, width, height int, modelSetup *nn.ModelSetup) (nn.ObjectDetector, error) {
	if hailoAccel != nil {
		device := hailoAccel.Device()
		filename, err := FindModelFile(device, modelDir, modelName, width, height)
		if err == nil {
			model, err := device.LoadModel(filename, modelSetup)
			if err == nil {
				logger.Infof("Loaded model %v onto Hailo %v", filename, device.Name)
				return model, nil
			}
			logger.Warnf("Failed to load accelerated NN model '%v': %v", filename, err)
		} else {
			logger.Warnf("%v", err)
		}
		logger.Infof("Falling back to software motion detection")
	}
	return nnsim.NewMotionDetector(width, height), nil
}

// Load a detector that doesn't need any model files: either the simulated
// detector or the motion detector.
func LoadSoftwareDetector(kind string, width, height int) (nn.ObjectDetector, error) {
	switch kind {
	case "sim":
		return nnsim.NewSimDetector(width, height), nil
	case "motion":
		return nnsim.NewMotionDetector(width, height), nil
	}
	return nil, fmt.Errorf("Unknown software detector '%v'", kind)
}

func LoadAccelerators(logger logs.Log, enableHailo bool) {
	if isLoaded {
		logger.Warnf("Accelerators already loaded")
		return
	}
	isLoaded = true
	logger.Infof("Loading NN accelerators")
	var err error
	if enableHailo {
		hailoAccel, err = nnaccel.Load("hailo")
		if err != nil {
			logger.Infof("Failed to load Hailo NN accelerator: %v", err)
		} else {
			logger.Infof("Loaded Hailo NN accelerator")
		}
	} else {
		logger.Infof("Hailo disabled - skipping")
	}
}
