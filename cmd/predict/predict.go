package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/hailocam/hailocam/pkg/nnload"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("predict", "Label one or more images")
	inputs := parser.StringList("i", "input", &argparse.Options{Help: "Input image file (repeatable)", Required: true})
	output := parser.File("o", "output", os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0664, &argparse.Options{Help: "Output label file", Required: true})
	minSize := parser.Int("m", "minsize", &argparse.Options{Help: "Minimum size of object, in pixels", Required: false, Default: 0})
	maxImageHeight := parser.Int("", "iheight", &argparse.Options{Help: "If image height is larger than this, then scale it down to this size", Required: false, Default: 0})
	classes := parser.String("c", "classes", &argparse.Options{Help: "Comma-separated list of named classes to detect (empty = all)", Required: false, Default: ""})
	modelDir := parser.String("", "modeldir", &argparse.Options{Help: "Directory containing NN model files", Required: false, Default: "models"})
	modelName := parser.String("n", "model", &argparse.Options{Help: "NN model name", Required: false, Default: "yolov8s"})
	nnSize := parser.Int("", "nnsize", &argparse.Options{Help: "NN input width and height", Required: false, Default: 640})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()

	options := nn.InferenceOptions{
		MinSize:        *minSize,
		MaxImageHeight: *maxImageHeight,
	}
	if *classes != "" {
		options.Classes = strings.Split(*classes, ",")
	}

	nnload.LoadAccelerators(logger, true)
	model, err := nnload.LoadModel(logger, *modelDir, *modelName, *nnSize, *nnSize, nn.NewModelSetup())
	check(err)
	defer model.Close()

	results := map[string]*nn.ImageLabels{}
	for _, input := range *inputs {
		labels, err := nn.RunInferenceOnImageFile(model, input, options)
		check(err)
		results[input] = labels
		fmt.Printf("%v: %v objects\n", input, len(labels.Objects))
	}

	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	err = encoder.Encode(results)
	check(err)
}
