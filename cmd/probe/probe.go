package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/hailocam/hailocam/pkg/nnaccel"
	"github.com/hailocam/hailocam/pkg/nnload"
	"github.com/hailocam/hailocam/pkg/shell"
)

// probe checks every layer of the Hailo stack, from the PCIe device up to a
// full inference, and reports where things stop working.

func main() {
	parser := argparse.NewParser("probe", "Diagnose the Hailo accelerator and NN model installation")
	modelDir := parser.String("", "modeldir", &argparse.Options{Help: "Directory containing compiled NN models", Default: "models"})
	modelName := parser.String("n", "nn", &argparse.Options{Help: "Neural network model to load", Default: "yolov8s"})
	nnSize := parser.Int("", "nnsize", &argparse.Options{Help: "NN input width/height", Default: 640})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	fail := false

	// 1. PCIe device
	if out, err := shell.Run("lspci"); err != nil {
		fmt.Printf("lspci failed: %v\n", err)
	} else if line := findLine(out, "Hailo"); line != "" {
		fmt.Printf("PCIe device:      %v\n", line)
	} else {
		fmt.Printf("PCIe device:      NOT FOUND (is the M.2 module seated?)\n")
		fail = true
	}

	// 2. Kernel driver
	if out, err := shell.Run("lsmod"); err != nil {
		fmt.Printf("lsmod failed: %v\n", err)
	} else if line := findLine(out, "hailo"); line != "" {
		fmt.Printf("Kernel driver:    %v\n", line)
	} else {
		fmt.Printf("Kernel driver:    NOT LOADED (install hailo-dkms)\n")
		fail = true
	}

	// 3. Accelerator shim library
	accel, err := nnaccel.Load("hailo")
	if err != nil {
		fmt.Printf("Accelerator:      FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Accelerator:      %v\n", accel.DeviceName())
	device := accel.Device()

	// 4. Model file
	modelFile, err := nnload.FindModelFile(device, *modelDir, *modelName, *nnSize, *nnSize)
	if err != nil {
		fmt.Printf("Model file:       %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Model file:       %v\n", modelFile)

	// 5. Load model
	model, err := device.LoadModel(modelFile, nn.NewModelSetup())
	if err != nil {
		fmt.Printf("Model load:       FAILED: %v\n", err)
		os.Exit(1)
	}
	defer model.Close()
	cfg := model.Config()
	fmt.Printf("Model:            %v %vx%v, %v classes\n", cfg.Architecture, cfg.Width, cfg.Height, len(cfg.Classes))

	// 6. Run one inference on a synthetic image
	pixels := make([]byte, cfg.Width*cfg.Height*3)
	for i := range pixels {
		pixels[i] = byte(i * 7)
	}
	logger.Infof("Running inference on a synthetic %vx%v image", cfg.Width, cfg.Height)
	start := time.Now()
	objects, err := model.DetectObjects(nn.WholeImage(3, pixels, cfg.Width, cfg.Height), nn.NewDetectionParams())
	if err != nil {
		fmt.Printf("Inference:        FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Inference:        %v objects in %.1f ms\n", len(objects), time.Now().Sub(start).Seconds()*1000)

	if fail {
		os.Exit(1)
	}
	fmt.Printf("All checks passed\n")
}

func findLine(out, substr string) string {
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(strings.ToLower(line), strings.ToLower(substr)) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
