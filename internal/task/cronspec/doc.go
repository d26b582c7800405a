// Package cronspec parses and evaluates seven-field cron lines.
//
// # Line format
//
// A line has exactly seven whitespace-separated fields:
//
//	second minute hour day-of-month month day-of-week year
//
// Valid ranges are second 0-59, minute 0-59, hour 0-23, day-of-month 1-31,
// month 1-12, day-of-week 0-6 (0 = Sunday) and year 1970-2099.
//
// Each field is one of:
//
//   - "*"          every value in the field range
//   - "1;3;5"      an enumeration (';' instead of ',' so lines embed in CSV)
//   - "10-20"      an inclusive range
//   - "10/15"      an interval: 10, 25, 40, 55 for seconds; "*/15" starts at the field minimum
//   - "42"         a single value
//
// A day matches only when both day-of-month and day-of-week hit; there is no
// crontab-style OR between the two.
//
// # Errors
//
// Parsing never fails outright. A Schedule or Field built from bad input
// reports Valid() == false and carries a diagnostic; Err() exposes the same
// information as wrapped ErrFieldCount, ErrFormat or ErrRange values.
//
// Matching is done in host local time at whole-second resolution.
package cronspec
