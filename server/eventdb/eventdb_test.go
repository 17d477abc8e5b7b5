package eventdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/dbh"
	"github.com/hailocam/hailocam/pkg/nn"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *EventDB {
	t.Helper()
	db, err := NewEventDB(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "events.sqlite"))
	require.NoError(t, err)
	return db
}

func makeEvent(start time.Time, camera string, classes string, conf float32) *Event {
	return &Event{
		Time:          dbh.MakeIntTime(start),
		Duration:      1500,
		Camera:        camera,
		Classes:       classes,
		MaxConfidence: conf,
		Detections: dbh.MakeJSONField(DetectionsJSON{
			Resolution: [2]int{1280, 720},
			Objects: []ObjectJSON{
				{Class: "person", Confidence: conf, Box: [4]int{10, 20, 100, 200}},
			},
		}),
	}
}

func TestEventDB(t *testing.T) {
	db := openTestDB(t)

	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.AddEvent(makeEvent(base, "cam0", "person", 0.9)))
	require.NoError(t, db.AddEvent(makeEvent(base.Add(time.Minute), "cam0", "person,car", 0.8)))
	require.NoError(t, db.AddEvent(makeEvent(base.Add(2*time.Minute), "cam0", "car", 0.7)))

	count, err := db.EventCount()
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	classes, err := db.DistinctClasses()
	require.NoError(t, err)
	require.Equal(t, []string{"car", "person"}, classes)

	recent, err := db.RecentEvents(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "car", recent[0].Classes)
	require.Equal(t, "person,car", recent[1].Classes)
	require.Equal(t, base.Add(2*time.Minute), recent[0].Time.Get())

	// Round trip of the JSON blob
	require.NotNil(t, recent[0].Detections)
	require.Equal(t, [2]int{1280, 720}, recent[0].Detections.Data.Resolution)
	require.Len(t, recent[0].Detections.Data.Objects, 1)
	require.Equal(t, "person", recent[0].Detections.Data.Objects[0].Class)

	between, err := db.EventsBetween(base, base.Add(2*time.Minute), 100)
	require.NoError(t, err)
	require.Len(t, between, 2)
	require.Equal(t, "person", between[0].Classes)

	pruned, err := db.PruneEventsBefore(base.Add(90 * time.Second))
	require.NoError(t, err)
	require.Equal(t, int64(2), pruned)
	count, err = db.EventCount()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestEventDBReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "events.sqlite")
	logger := logs.NewTestingLog(t)

	db, err := NewEventDB(logger, dbPath)
	require.NoError(t, err)
	require.NoError(t, db.AddEvent(makeEvent(time.Now(), "cam0", "person", 0.9)))

	// Migrations must be idempotent across reopen
	db2, err := NewEventDB(logger, dbPath)
	require.NoError(t, err)
	count, err := db2.EventCount()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRecorderCoalesce(t *testing.T) {
	db := openTestDB(t)
	opts := DefaultRecorderOptions()
	opts.GapTimeout = 50 * time.Millisecond
	snapshotCalls := 0
	snapshot := func() ([]byte, error) {
		snapshotCalls++
		return []byte{0xff, 0xd8, 0xff, 0xd9}, nil
	}
	rec := NewRecorder(logs.NewTestingLog(t), db, "cam0", []string{"person", "bicycle", "car"}, snapshot, opts)

	makeResult := func(at time.Time, class int, conf float32) *nn.DetectionResult {
		return &nn.DetectionResult{
			ImageWidth:  640,
			ImageHeight: 480,
			FramePTS:    at,
			Objects: []nn.ObjectDetection{
				{Class: class, Confidence: conf, Box: nn.MakeRect(10, 10, 50, 90)},
			},
		}
	}

	start := time.Now()
	rec.onResult(makeResult(start, 0, 0.6))
	rec.onResult(makeResult(start.Add(100*time.Millisecond), 2, 0.8))
	rec.onResult(makeResult(start.Add(200*time.Millisecond), 0, 0.7))
	require.NotNil(t, rec.current)
	rec.flush()

	events, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	ev := events[0]
	require.Equal(t, "cam0", ev.Camera)
	require.Equal(t, "car,person", ev.Classes)
	require.Equal(t, float32(0.8), ev.MaxConfidence)
	require.Equal(t, int32(200), ev.Duration)
	// Snapshot captured when confidence improved (frames 1 and 2)
	require.Equal(t, 2, snapshotCalls)
	// Best frame is the one where the car was seen
	require.Equal(t, "car", ev.Detections.Data.Objects[0].Class)

	// An empty result after the gap timeout ends the next burst
	rec.onResult(makeResult(time.Now(), 1, 0.5))
	time.Sleep(opts.GapTimeout + 20*time.Millisecond)
	rec.onResult(&nn.DetectionResult{FramePTS: time.Now()})
	require.Nil(t, rec.current)
	events, err = db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "bicycle", events[0].Classes)
}

// A burst whose detections all carry zero confidence must still record an
// event, with the first frame as the best frame.
func TestRecorderZeroConfidence(t *testing.T) {
	db := openTestDB(t)
	rec := NewRecorder(logs.NewTestingLog(t), db, "cam0", []string{"person"}, nil, DefaultRecorderOptions())

	rec.onResult(&nn.DetectionResult{
		ImageWidth:  640,
		ImageHeight: 480,
		FramePTS:    time.Now(),
		Objects: []nn.ObjectDetection{
			{Class: 0, Confidence: 0, Box: nn.MakeRect(10, 10, 50, 90)},
		},
	})
	rec.flush()

	events, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "person", events[0].Classes)
	require.Equal(t, float32(0), events[0].MaxConfidence)
	require.Len(t, events[0].Detections.Data.Objects, 1)
}
