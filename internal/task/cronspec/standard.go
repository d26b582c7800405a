package cronspec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule plugs into anything that consumes robfig/cron schedules.
var _ cron.Schedule = (*Schedule)(nil)

// starBit mirrors robfig/cron's marker for fields written as "*" or "?".
const starBit = 1 << 63

// standardParser accepts classic crontab lines, an optional leading seconds
// field and descriptors such as "@hourly".
var standardParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// FromStandard converts a robfig/cron style spec ("*/15 * * * *",
// "0 30 9 * * 1", "@daily") into a native seven-field Schedule matching every
// year.
//
// "@every" specs and specs restricting both day-of-month and day-of-week are
// rejected with ErrUnsupported: robfig ORs those two fields while this package
// ANDs them.
func FromStandard(spec string, opts ...Option) (*Schedule, error) {
	parsed, err := standardParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("cronspec: parse standard %q: %w", spec, err)
	}
	ss, ok := parsed.(*cron.SpecSchedule)
	if !ok {
		return nil, fmt.Errorf("%q has no calendar form: %w", spec, ErrUnsupported)
	}
	if ss.Location != nil && ss.Location != time.Local {
		return nil, fmt.Errorf("%q sets a time zone: %w", spec, ErrUnsupported)
	}
	if ss.Dom&starBit == 0 && ss.Dow&starBit == 0 {
		return nil, fmt.Errorf("%q restricts both day-of-month and day-of-week: %w", spec, ErrUnsupported)
	}

	line := strings.Join([]string{
		maskToken(ss.Second, Second),
		maskToken(ss.Minute, Minute),
		maskToken(ss.Hour, Hour),
		maskToken(ss.Dom, DayOfMonth),
		maskToken(ss.Month, Month),
		maskToken(ss.Dow, DayOfWeek),
		"*",
	}, " ")

	s := Parse(line, opts...)
	if !s.Valid() {
		return nil, fmt.Errorf("cronspec: converted %q to %q: %w", spec, line, s.Err())
	}
	return s, nil
}

// maskToken renders a robfig bitmask as "*" when it covers the whole field,
// otherwise as a ';' enumeration.
func maskToken(bits uint64, k Kind) string {
	lo, hi := k.Bounds()
	vals := make([]string, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		if bits&(1<<uint(v)) != 0 {
			vals = append(vals, strconv.Itoa(v))
		}
	}
	if len(vals) == hi-lo+1 {
		return "*"
	}
	if len(vals) == 1 {
		return vals[0]
	}
	return strings.Join(vals, sepEnum)
}
