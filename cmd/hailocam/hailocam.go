package main

import (
	"fmt"
	"os"
	"time"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/hailocam/hailocam/pkg/nnload"
	"github.com/hailocam/hailocam/server"
	"github.com/hailocam/hailocam/server/camera"
	"github.com/hailocam/hailocam/server/eventdb"
	"github.com/hailocam/hailocam/server/monitor"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	parser := argparse.NewParser("hailocam", "Camera object detection on a Raspberry Pi with a Hailo accelerator")
	sourceKind := parser.Selector("s", "source", []string{"rpicam", "udp", "dir"}, &argparse.Options{Help: "Camera frame source", Default: "rpicam"})
	width := parser.Int("", "width", &argparse.Options{Help: "Camera capture width", Default: 1280})
	height := parser.Int("", "height", &argparse.Options{Help: "Camera capture height", Default: 720})
	fps := parser.Int("", "fps", &argparse.Options{Help: "Camera capture framerate", Default: 30})
	udpPort := parser.Int("", "udpport", &argparse.Options{Help: "UDP port to listen on, for --source udp", Default: 5000})
	frameDir := parser.String("", "framedir", &argparse.Options{Help: "Directory to watch for JPEG frames, for --source dir", Default: "/tmp/hailocam-frames"})
	modelDir := parser.String("", "modeldir", &argparse.Options{Help: "Directory containing compiled NN models", Default: "models"})
	modelName := parser.String("n", "nn", &argparse.Options{Help: "Neural network for object detection", Default: "yolov8s"})
	nnSize := parser.Int("", "nnsize", &argparse.Options{Help: "NN input width/height", Default: 640})
	disableHailo := parser.Flag("", "nohailo", &argparse.Options{Help: "Disable Hailo neural network accelerator support", Default: false})
	software := parser.String("", "software", &argparse.Options{Help: "Force a software detector ('sim' or 'motion') instead of the Hailo", Default: ""})
	httpPort := parser.String("p", "port", &argparse.Options{Help: "HTTP listen address", Default: ":8080"})
	dbPath := parser.String("", "db", &argparse.Options{Help: "Event database file", Default: "hailocam/events.sqlite"})
	snapshotDir := parser.String("", "snapshots", &argparse.Options{Help: "Directory for event snapshot JPEGs ('' = no snapshots)", Default: ""})
	retentionDays := parser.Int("", "retention", &argparse.Options{Help: "Days to keep events (0 = forever)", Default: 7})
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

	// Detector
	var detector nn.ObjectDetector
	deviceName := "software"
	if *software != "" {
		detector, err = nnload.LoadSoftwareDetector(*software, *nnSize, *nnSize)
		check(err)
	} else {
		nnload.LoadAccelerators(logger, !*disableHailo)
		detector, err = nnload.LoadModel(logger, *modelDir, *modelName, *nnSize, *nnSize, nn.NewModelSetup())
		check(err)
		if nnload.HaveHailo() {
			deviceName = nnload.Accelerator().DeviceName()
		}
	}

	// Camera
	var source camera.FrameSource
	switch *sourceKind {
	case "rpicam":
		source = camera.NewRpicamSource(logger, *width, *height, *fps)
	case "udp":
		source = camera.NewUDPSource(logger, *udpPort)
	case "dir":
		source = camera.NewDirSource(logger, *frameDir, true)
	}
	cam := camera.NewCamera(logger, *sourceKind+"0", source, 32*1024*1024)

	mon := monitor.NewMonitor(logger, cam, detector, nn.NewModelSetup())

	events, err := eventdb.NewEventDB(logger, *dbPath)
	check(err)

	srv := server.NewServer(logger, cam, mon, events)
	srv.DeviceName = deviceName
	srv.ModelName = nnload.ModelStub(*modelName, *nnSize, *nnSize)

	recorderOpts := eventdb.DefaultRecorderOptions()
	recorderOpts.SnapshotDir = *snapshotDir
	recorderOpts.Retention = time.Duration(*retentionDays) * 24 * time.Hour
	check(srv.Start(recorderOpts))
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := srv.ListenHTTP(*httpPort); err != nil {
		logger.Errorf("ListenHTTP returned: %v", err)
	}
	err = <-srv.ShutdownComplete
	if err != nil {
		os.Exit(1)
	}
}
