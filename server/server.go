package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/server/camera"
	"github.com/hailocam/hailocam/server/eventdb"
	"github.com/hailocam/hailocam/server/monitor"
)

// Server ties the camera, the monitor, and the event log together, and
// exposes them over HTTP.
type Server struct {
	Log              logs.Log
	Camera           *camera.Camera
	Monitor          *monitor.Monitor
	EventDB          *eventdb.EventDB
	ShutdownComplete chan error

	// Shown in /api/status
	DeviceName string // NN accelerator device (eg "hailo8l"), or "software"
	ModelName  string // eg "yolov8s_640_640"

	startedAt    time.Time
	httpServer   *http.Server
	recorder     *eventdb.Recorder
	recorderDone chan bool
	shuttingDown atomic.Bool
}

func NewServer(logger logs.Log, cam *camera.Camera, mon *monitor.Monitor, events *eventdb.EventDB) *Server {
	return &Server{
		Log:              logger,
		Camera:           cam,
		Monitor:          mon,
		EventDB:          events,
		ShutdownComplete: make(chan error, 1),
	}
}

// Start the camera, the monitor, and the event recorder
func (s *Server) Start(recorderOpts eventdb.RecorderOptions) error {
	s.startedAt = time.Now()
	if err := s.Camera.Start(); err != nil {
		return fmt.Errorf("Failed to start camera: %w", err)
	}
	s.Monitor.Start()

	s.recorder = eventdb.NewRecorder(s.Log, s.EventDB, s.Camera.Name, s.Monitor.Classes(),
		func() ([]byte, error) { return s.Monitor.AnnotatedJPEG(85) }, recorderOpts)
	s.recorderDone = make(chan bool)
	results := s.Monitor.AddWatcher()
	go func() {
		s.recorder.Run(results)
		close(s.recorderDone)
	}()
	return nil
}

// ListenHTTP blocks until Shutdown is called (or the listener fails)
func (s *Server) ListenHTTP(port string) error {
	s.httpServer = &http.Server{
		Addr:    port,
		Handler: s.setupRouter(),
	}
	s.Log.Infof("Listening on %v", port)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ListenForKillSignals starts a goroutine that calls Shutdown on SIGINT or SIGTERM
func (s *Server) ListenForKillSignals() {
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		received := <-sig
		s.Log.Infof("Received signal %v. Shutting down", received)
		s.Shutdown()
	}()
}

// Shutdown stops the HTTP server, the monitor, and the camera, in that order.
// Safe to call more than once.
func (s *Server) Shutdown() {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	var firstErr error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	// Monitor.Close closes all watcher channels, which ends the recorder
	s.Monitor.Close()
	<-s.recorderDone
	s.Camera.Close()
	s.Log.Infof("Shutdown complete")
	s.ShutdownComplete <- firstErr
}
