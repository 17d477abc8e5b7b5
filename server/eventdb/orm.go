package eventdb

import (
	"time"

	"github.com/hailocam/hailocam/pkg/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// An event is a burst of consecutive frames that contained detections.
// Consecutive detection frames get coalesced into a single event, so a person
// walking through the frame for ten seconds is one row, not three hundred.
type Event struct {
	BaseModel
	Time          dbh.IntTime                    `json:"time"`          // Start of event
	Duration      int32                          `json:"duration"`      // Duration of event in milliseconds
	Camera        string                         `json:"camera"`        // Camera name
	Classes       string                         `json:"classes"`       // Comma-separated list of classes seen during the event
	MaxConfidence float32                        `json:"maxConfidence"` // Highest confidence of any detection in the event
	Detections    *dbh.JSONField[DetectionsJSON] `json:"detections"`    // Boxes of the highest-confidence frame
	Snapshot      string                         `json:"snapshot"`      // Path of snapshot JPEG on disk (empty if none)
}

// Return the end time of the event.
func (e *Event) EndTime() time.Time {
	return e.Time.Get().Add(time.Duration(e.Duration) * time.Millisecond)
}

type DetectionsJSON struct {
	Resolution [2]int       `json:"resolution"` // Width and height of the camera frame on which the detection was run
	Objects    []ObjectJSON `json:"objects"`
}

type ObjectJSON struct {
	Class      string  `json:"class"`
	Confidence float32 `json:"confidence"`
	Box        [4]int  `json:"box"` // X, Y, Width, Height in frame pixels
}
