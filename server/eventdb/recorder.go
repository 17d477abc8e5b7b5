package eventdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/dbh"
	"github.com/hailocam/hailocam/pkg/nn"
)

// RecorderOptions control how detection results get coalesced into events
type RecorderOptions struct {
	GapTimeout  time.Duration // End the current event after this long without a detection
	MaxDuration time.Duration // Force a new event after this long, even if detections are continuous
	Retention   time.Duration // Delete events older than this (0 = keep forever)
	SnapshotDir string        // Where to store snapshot JPEGs (empty = no snapshots)
}

func DefaultRecorderOptions() RecorderOptions {
	return RecorderOptions{
		GapTimeout:  5 * time.Second,
		MaxDuration: 60 * time.Second,
		Retention:   7 * 24 * time.Hour,
	}
}

// Recorder consumes detection results and writes coalesced events into the DB.
type Recorder struct {
	log      logs.Log
	db       *EventDB
	camera   string
	classes  []string
	opts     RecorderOptions
	snapshot func() ([]byte, error) // Returns the current annotated frame as JPEG (may be nil)

	current   *burst
	lastPrune time.Time
}

// An event being accumulated
type burst struct {
	start        time.Time
	lastSeen     time.Time
	classes      map[string]bool
	maxConf      float32
	best         *nn.DetectionResult // The frame with the highest confidence detection
	snapshotJPEG []byte
}

// Create a recorder for one camera.
// snapshot may be nil, in which case events get no snapshot image.
func NewRecorder(logger logs.Log, db *EventDB, cameraName string, classes []string, snapshot func() ([]byte, error), opts RecorderOptions) *Recorder {
	return &Recorder{
		log:      logger,
		db:       db,
		camera:   cameraName,
		classes:  classes,
		opts:     opts,
		snapshot: snapshot,
	}
}

// Run consumes results until the channel is closed, which is how the monitor
// signals shutdown. Any open event is flushed before returning.
func (r *Recorder) Run(results <-chan *nn.DetectionResult) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case result, ok := <-results:
			if !ok {
				r.flush()
				return
			}
			r.onResult(result)
		case <-ticker.C:
			r.onTick()
		}
	}
}

func (r *Recorder) onResult(result *nn.DetectionResult) {
	if len(result.Objects) == 0 {
		r.onTick()
		return
	}
	now := result.FramePTS
	if now.IsZero() {
		now = time.Now()
	}
	if r.current != nil && now.Sub(r.current.start) > r.opts.MaxDuration {
		r.flush()
	}
	if r.current == nil {
		r.current = &burst{
			start:   now,
			classes: map[string]bool{},
		}
	}
	b := r.current
	b.lastSeen = now
	frameMax := float32(0)
	for _, obj := range result.Objects {
		b.classes[className(r.classes, obj.Class)] = true
		if obj.Confidence > frameMax {
			frameMax = obj.Confidence
		}
	}
	// The first frame of a burst always becomes the best frame, so that a burst
	// whose detections all carry zero confidence still has one.
	if b.best == nil || frameMax > b.maxConf {
		b.maxConf = frameMax
		b.best = result
		if r.snapshot != nil {
			if jpg, err := r.snapshot(); err == nil {
				b.snapshotJPEG = jpg
			}
		}
	}
}

func (r *Recorder) onTick() {
	if r.current != nil && time.Now().Sub(r.current.lastSeen) > r.opts.GapTimeout {
		r.flush()
	}
	if r.opts.Retention != 0 && time.Now().Sub(r.lastPrune) > time.Hour {
		r.lastPrune = time.Now()
		if n, err := r.db.PruneEventsBefore(time.Now().Add(-r.opts.Retention)); err != nil {
			r.log.Errorf("Failed to prune events: %v", err)
		} else if n != 0 {
			r.log.Infof("Pruned %v old events", n)
		}
	}
}

// Write the current burst to the DB
func (r *Recorder) flush() {
	b := r.current
	if b == nil {
		return
	}
	r.current = nil

	classes := make([]string, 0, len(b.classes))
	for c := range b.classes {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	objects := make([]ObjectJSON, 0, len(b.best.Objects))
	for _, obj := range b.best.Objects {
		objects = append(objects, ObjectJSON{
			Class:      className(r.classes, obj.Class),
			Confidence: obj.Confidence,
			Box:        [4]int{obj.Box.X, obj.Box.Y, obj.Box.Width, obj.Box.Height},
		})
	}

	event := &Event{
		Time:          dbh.MakeIntTime(b.start),
		Duration:      int32(b.lastSeen.Sub(b.start).Milliseconds()),
		Camera:        r.camera,
		Classes:       strings.Join(classes, ","),
		MaxConfidence: b.maxConf,
		Detections: dbh.MakeJSONField(DetectionsJSON{
			Resolution: [2]int{b.best.ImageWidth, b.best.ImageHeight},
			Objects:    objects,
		}),
	}

	if len(b.snapshotJPEG) != 0 && r.opts.SnapshotDir != "" {
		path := filepath.Join(r.opts.SnapshotDir, b.start.UTC().Format("2006-01-02T15-04-05.000")+".jpg")
		if err := os.MkdirAll(r.opts.SnapshotDir, 0770); err == nil {
			if err := os.WriteFile(path, b.snapshotJPEG, 0660); err == nil {
				event.Snapshot = path
			} else {
				r.log.Warnf("Failed to write snapshot %v: %v", path, err)
			}
		}
	}

	if err := r.db.AddEvent(event); err != nil {
		r.log.Errorf("Failed to record event: %v", err)
	}
}

func className(classes []string, class int) string {
	if class >= 0 && class < len(classes) {
		return classes[class]
	}
	return fmt.Sprintf("class %v", class)
}
