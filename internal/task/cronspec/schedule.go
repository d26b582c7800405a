package cronspec

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Schedule is a parsed seven-field cron line.
type Schedule struct {
	line   string
	fields [numKinds]*Field // all nil when the field count is wrong
	tokens int
}

// Parse builds a Schedule from a seven-field line. It never returns nil;
// check Valid (or Err) before registering the result.
func Parse(line string, opts ...Option) *Schedule {
	s := &Schedule{line: line}
	tokens := strings.Fields(line)
	s.tokens = len(tokens)
	if len(tokens) != numKinds {
		return s
	}
	for k := Kind(0); k < numKinds; k++ {
		s.fields[k] = ParseField(tokens[k], k, opts...)
	}
	return s
}

// Valid reports whether all seven fields are valid.
func (s *Schedule) Valid() bool {
	if s == nil || s.tokens != numKinds {
		return false
	}
	for _, f := range s.fields {
		if !f.Valid() {
			return false
		}
	}
	return true
}

// Hit reports whether t, converted to host local time, matches every field.
func (s *Schedule) Hit(t time.Time) bool {
	if !s.Valid() {
		return false
	}
	lt := t.Local()
	return s.fields[Second].Hit(lt.Second()) &&
		s.fields[Minute].Hit(lt.Minute()) &&
		s.fields[Hour].Hit(lt.Hour()) &&
		s.fields[DayOfMonth].Hit(lt.Day()) &&
		s.fields[Month].Hit(int(lt.Month())) &&
		s.fields[DayOfWeek].Hit(int(lt.Weekday())) &&
		s.fields[Year].Hit(lt.Year())
}

// Field returns the parsed field of the given kind (nil if the line had the
// wrong number of fields).
func (s *Schedule) Field(k Kind) *Field {
	if s == nil || k < 0 || k >= numKinds {
		return nil
	}
	return s.fields[k]
}

// Diagnostic concatenates every field's diagnostic, labeled by field name.
// Valid fields contribute an empty diagnostic.
func (s *Schedule) Diagnostic() string {
	if s == nil {
		return "schedule: nil"
	}
	if s.tokens != numKinds {
		return fmt.Sprintf("fields: expected %d, got %d", numKinds, s.tokens)
	}
	var b strings.Builder
	for k := Kind(0); k < numKinds; k++ {
		if k > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k.String())
		b.WriteString(": ")
		b.WriteString(s.fields[k].Diagnostic())
	}
	return b.String()
}

// Err joins the errors of all failing fields. It is nil for a valid schedule.
func (s *Schedule) Err() error {
	if s == nil {
		return fmt.Errorf("nil schedule: %w", ErrFieldCount)
	}
	if s.tokens != numKinds {
		return fmt.Errorf("expected %d fields, got %d: %w", numKinds, s.tokens, ErrFieldCount)
	}
	var errs []error
	for _, f := range s.fields {
		if err := f.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// String returns the line the schedule was parsed from.
func (s *Schedule) String() string {
	if s == nil {
		return ""
	}
	return s.line
}
