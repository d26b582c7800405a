package cronspec

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies one of the seven cron fields.
type Kind int

const (
	Second Kind = iota
	Minute
	Hour
	DayOfMonth
	Month
	DayOfWeek
	Year

	numKinds = 7
)

const (
	sepEnum     = ";"
	sepRange    = "-"
	sepInterval = "/"
)

var kindInfo = [numKinds]struct {
	name     string
	min, max int
}{
	Second:     {"second", 0, 59},
	Minute:     {"minute", 0, 59},
	Hour:       {"hour", 0, 23},
	DayOfMonth: {"day_of_month", 1, 31},
	Month:      {"month", 1, 12},
	DayOfWeek:  {"day_of_week", 0, 6},
	Year:       {"year", 1970, 2099},
}

// Bounds returns the inclusive valid range for the field kind.
func (k Kind) Bounds() (lo, hi int) {
	if k < 0 || k >= numKinds {
		return 0, -1
	}
	return kindInfo[k].min, kindInfo[k].max
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindInfo[k].name
}

// Option tweaks field parsing.
type Option func(*options)

type options struct {
	zeroBasedRanges bool
}

// WithZeroBasedRanges makes "from-to" match every value from 0 through to,
// ignoring from except for the lower-bound check. This mirrors the range fill
// of older cron timer configs that relied on it.
func WithZeroBasedRanges() Option {
	return func(o *options) { o.zeroBasedRanges = true }
}

func buildOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// Field matches integers for one cron field. It is immutable once parsed.
type Field struct {
	kind  Kind
	input string
	all   bool
	set   []bool // indexed by value-min
	count int
	err   *FieldError
}

// ParseField parses one field token for the given kind.
// The returned Field is never nil; check Valid before using it.
func ParseField(text string, kind Kind, opts ...Option) *Field {
	f := &Field{kind: kind, input: text}
	f.parse(strings.TrimSpace(text), buildOptions(opts))
	return f
}

func (f *Field) parse(text string, o options) {
	lo, hi := f.kind.Bounds()
	if hi < lo {
		f.fail(ErrRange, "unknown field kind")
		return
	}

	switch {
	case text == "*":
		f.all = true

	case strings.Contains(text, sepEnum):
		nums, err := splitInts(text, sepEnum)
		if err != nil {
			f.fail(ErrFormat, err.Error())
			return
		}
		for _, v := range nums {
			if v < lo || v > hi {
				f.fail(ErrRange, fmt.Sprintf("value %d outside [%d,%d]", v, lo, hi))
				return
			}
		}
		f.alloc(lo, hi)
		for _, v := range nums {
			f.add(v, lo)
		}

	case strings.Contains(text, sepRange):
		nums, err := splitInts(text, sepRange)
		if err != nil || len(nums) != 2 {
			f.fail(ErrFormat, "expected from-to")
			return
		}
		from, to := nums[0], nums[1]
		if from < lo || to > hi {
			f.fail(ErrRange, fmt.Sprintf("from %d to %d outside [%d,%d]", from, to, lo, hi))
			return
		}
		start := from
		if o.zeroBasedRanges {
			start = 0
		} else if from > to {
			f.fail(ErrRange, fmt.Sprintf("from %d greater than to %d", from, to))
			return
		}
		f.alloc(lo, hi)
		for v := start; v <= to; v++ {
			f.add(v, lo)
		}

	case strings.Contains(text, sepInterval):
		parts := strings.Split(text, sepInterval)
		if len(parts) != 2 {
			f.fail(ErrFormat, "expected from/step")
			return
		}
		// "*/n" starts at the field minimum.
		if strings.TrimSpace(parts[0]) == "*" {
			parts[0] = strconv.Itoa(lo)
		}
		nums, err := atoiAll(parts)
		if err != nil {
			f.fail(ErrFormat, "expected from/step")
			return
		}
		from, step := nums[0], nums[1]
		if from < lo || from > hi || step < 0 {
			f.fail(ErrRange, fmt.Sprintf("from %d step %d outside [%d,%d]", from, step, lo, hi))
			return
		}
		if step == 0 {
			f.fail(ErrFormat, "step must be > 0")
			return
		}
		f.alloc(lo, hi)
		for v := from; ; v += step {
			f.add(v, lo)
			if step > hi-v {
				break
			}
		}

	default:
		v, err := strconv.Atoi(text)
		if err != nil {
			f.fail(ErrFormat, "expected integer")
			return
		}
		if v < lo || v > hi {
			f.fail(ErrRange, fmt.Sprintf("value %d outside [%d,%d]", v, lo, hi))
			return
		}
		f.alloc(lo, hi)
		f.add(v, lo)
	}
}

func (f *Field) alloc(lo, hi int) {
	f.set = make([]bool, hi-lo+1)
}

// add ignores values below the field minimum (only reachable with zero-based
// ranges on day-of-month, month and year); they can never match anyway.
func (f *Field) add(v, lo int) {
	i := v - lo
	if i < 0 || i >= len(f.set) || f.set[i] {
		return
	}
	f.set[i] = true
	f.count++
}

func (f *Field) fail(kind error, reason string) {
	f.all = false
	f.set = nil
	f.count = 0
	f.err = &FieldError{Kind: f.kind, Input: f.input, Reason: reason, Err: kind}
}

// Kind returns the field kind.
func (f *Field) Kind() Kind { return f.kind }

// All reports whether the field was "*".
func (f *Field) All() bool { return f.all }

// Valid reports whether the field matches anything.
func (f *Field) Valid() bool {
	if f == nil {
		return false
	}
	return f.all || f.count > 0
}

// Hit reports whether v matches the field.
func (f *Field) Hit(v int) bool {
	if f == nil {
		return false
	}
	if f.all {
		return true
	}
	lo, _ := f.kind.Bounds()
	i := v - lo
	return i >= 0 && i < len(f.set) && f.set[i]
}

// Values returns the matched values in ascending order, or nil for "*".
func (f *Field) Values() []int {
	if f == nil || f.all || f.count == 0 {
		return nil
	}
	lo, _ := f.kind.Bounds()
	out := make([]int, 0, f.count)
	for i, ok := range f.set {
		if ok {
			out = append(out, lo+i)
		}
	}
	return out
}

// Err returns the parse failure, or nil when the field is valid.
func (f *Field) Err() error {
	if f == nil {
		return nil
	}
	if f.err != nil {
		return f.err
	}
	if !f.Valid() {
		return &FieldError{Kind: f.kind, Input: f.input, Reason: "no values", Err: ErrRange}
	}
	return nil
}

// Diagnostic returns a human-readable parse failure, or "" when valid.
func (f *Field) Diagnostic() string {
	if err := f.Err(); err != nil {
		return err.Error()
	}
	return ""
}

func splitInts(text, sep string) ([]int, error) {
	return atoiAll(strings.Split(text, sep))
}

func atoiAll(parts []string) ([]int, error) {
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}
