// Package storage persists the schedule hit journal.
//
// Drivers:
//   - "file": append-only JSON Lines, recent records kept in memory
//   - "sqlite": a single SQLite table (modernc.org/sqlite, pure Go)
package storage
