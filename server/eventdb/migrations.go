package eventdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/logs"
	"github.com/hailocam/hailocam/pkg/dbh"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE event(
			id INTEGER PRIMARY KEY,
			time INT NOT NULL,
			duration INT NOT NULL,
			camera TEXT NOT NULL,
			classes TEXT NOT NULL,
			max_confidence REAL NOT NULL,
			detections BLOB,
			snapshot TEXT
		);

		CREATE INDEX idx_event_time ON event(time);
	`))

	return migs
}
