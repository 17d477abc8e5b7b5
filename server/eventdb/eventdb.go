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
	"gorm.io/gorm"
)

// EventDB stores the log of detection events
type EventDB struct {
	Log logs.Log
	DB  *gorm.DB
}

// Open or create an event DB
func NewEventDB(logger logs.Log, dbFilename string) (*EventDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0770)
	eventDB, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open database %v: %w", dbFilename, err)
	}
	return &EventDB{
		Log: logger,
		DB:  eventDB,
	}, nil
}

// Add a new event to the log
func (e *EventDB) AddEvent(event *Event) error {
	return e.DB.Create(event).Error
}

// Most recent events, newest first
func (e *EventDB) RecentEvents(limit int) ([]Event, error) {
	events := []Event{}
	err := e.DB.Order("time DESC").Limit(limit).Find(&events).Error
	return events, err
}

// Events in the half-open interval [start, end), oldest first
func (e *EventDB) EventsBetween(start, end time.Time, limit int) ([]Event, error) {
	events := []Event{}
	err := e.DB.Where("time >= ? AND time < ?", dbh.MakeIntTime(start), dbh.MakeIntTime(end)).
		Order("time ASC").Limit(limit).Find(&events).Error
	return events, err
}

func (e *EventDB) EventCount() (int64, error) {
	var count int64
	err := e.DB.Model(&Event{}).Count(&count).Error
	return count, err
}

// Distinct classes that appear in the event log, sorted.
// The classes column stores a comma-joined list per event, so we split and
// deduplicate here.
func (e *EventDB) DistinctClasses() ([]string, error) {
	rows, err := dbh.ScanArray[string](e.DB.Raw("SELECT DISTINCT classes FROM event").Rows())
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, row := range rows {
		for _, class := range strings.Split(row, ",") {
			if class != "" {
				seen[class] = true
			}
		}
	}
	classes := make([]string, 0, len(seen))
	for class := range seen {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes, nil
}

// Delete events that started before the cutoff, along with their snapshots.
// Returns the number of events deleted.
func (e *EventDB) PruneEventsBefore(cutoff time.Time) (int64, error) {
	snapshots, err := dbh.ScanArray[string](e.DB.Raw("SELECT snapshot FROM event WHERE time < ? AND snapshot != ''", dbh.MakeIntTime(cutoff)).Rows())
	if err != nil {
		return 0, err
	}
	for _, snapshot := range snapshots {
		if err := os.Remove(snapshot); err != nil && !os.IsNotExist(err) {
			e.Log.Warnf("Failed to delete snapshot %v: %v", snapshot, err)
		}
	}
	tx := e.DB.Where("time < ?", dbh.MakeIntTime(cutoff)).Delete(&Event{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}
