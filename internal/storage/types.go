package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// DefaultMaxRecords bounds what RecentHits can return and, for sqlite, how
// many rows are kept.
const DefaultMaxRecords = 1000

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines journal at Path
//   - "sqlite": SQLite database file at Path
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	MaxRecords  int           // 0 means DefaultMaxRecords
}

func (c Config) maxRecords() int {
	if c.MaxRecords <= 0 {
		return DefaultMaxRecords
	}
	return c.MaxRecords
}

// HitRecord is one schedule hit as seen by the poll loop.
type HitRecord struct {
	At         time.Time `json:"at"`
	ScheduleID int       `json:"schedule_id"`
	Name       string    `json:"name,omitempty"`
	Spec       string    `json:"spec"`
}
