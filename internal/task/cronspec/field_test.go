package cronspec

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

func TestKindBounds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind   Kind
		lo, hi int
		name   string
	}{
		{Second, 0, 59, "second"},
		{Minute, 0, 59, "minute"},
		{Hour, 0, 23, "hour"},
		{DayOfMonth, 1, 31, "day_of_month"},
		{Month, 1, 12, "month"},
		{DayOfWeek, 0, 6, "day_of_week"},
		{Year, 1970, 2099, "year"},
	}
	for _, tt := range tests {
		lo, hi := tt.kind.Bounds()
		if lo != tt.lo || hi != tt.hi {
			t.Fatalf("%s bounds = [%d,%d], want [%d,%d]", tt.name, lo, hi, tt.lo, tt.hi)
		}
		if tt.kind.String() != tt.name {
			t.Fatalf("String() = %q, want %q", tt.kind.String(), tt.name)
		}
	}
}

func TestParseFieldSingleValue(t *testing.T) {
	t.Parallel()
	for k := Kind(0); k < numKinds; k++ {
		lo, hi := k.Bounds()
		for _, v := range []int{lo, (lo + hi) / 2, hi} {
			f := ParseField(strconv.Itoa(v), k)
			if !f.Valid() {
				t.Fatalf("%s %d: expected valid, got %v", k, v, f.Err())
			}
			if !f.Hit(v) {
				t.Fatalf("%s %d: expected hit", k, v)
			}
			if f.Hit(v-1) || f.Hit(v+1) {
				t.Fatalf("%s %d: neighbours must not hit", k, v)
			}
		}
	}
}

func TestParseFieldStarHitsWholeRange(t *testing.T) {
	t.Parallel()
	for k := Kind(0); k < numKinds; k++ {
		f := ParseField("*", k)
		if !f.Valid() || !f.All() {
			t.Fatalf("%s: expected match-all", k)
		}
		lo, hi := k.Bounds()
		for v := lo; v <= hi; v++ {
			if !f.Hit(v) {
				t.Fatalf("%s: * must hit %d", k, v)
			}
		}
		if f.Values() != nil {
			t.Fatalf("%s: Values() for * should be nil", k)
		}
	}
}

func TestParseFieldValues(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		kind Kind
		opts []Option
		want []int
	}{
		{name: "enumeration", text: "1;3;5", kind: Minute, want: []int{1, 3, 5}},
		{name: "enumeration dedup", text: "5;1;5", kind: Minute, want: []int{1, 5}},
		{name: "interval", text: "10/15", kind: Second, want: []int{10, 25, 40, 55}},
		{name: "interval star", text: "*/20", kind: Second, want: []int{0, 20, 40}},
		{name: "interval star month", text: "*/4", kind: Month, want: []int{1, 5, 9}},
		{name: "range", text: "1-3", kind: Minute, want: []int{1, 2, 3}},
		{name: "range single", text: "7-7", kind: Hour, want: []int{7}},
		{name: "range zero based", text: "1-3", kind: Minute, opts: []Option{WithZeroBasedRanges()}, want: []int{0, 1, 2, 3}},
		{name: "range zero based dom", text: "5-3", kind: DayOfMonth, opts: []Option{WithZeroBasedRanges()}, want: []int{1, 2, 3}},
		{name: "spaces trimmed", text: " 4 ", kind: Hour, want: []int{4}},
		{name: "interval huge step", text: "59/9223372036854775807", kind: Second, want: []int{59}},
		{name: "interval huge step year", text: "2000/9223372036854775807", kind: Year, want: []int{2000}},
		{name: "interval step past max", text: "3/100", kind: Minute, want: []int{3}},
		{name: "interval lands on max", text: "50/9", kind: Second, want: []int{50, 59}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := ParseField(tt.text, tt.kind, tt.opts...)
			if !f.Valid() {
				t.Fatalf("ParseField(%q) invalid: %v", tt.text, f.Err())
			}
			if got := f.Values(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Values() = %v, want %v", got, tt.want)
			}
			lo, hi := tt.kind.Bounds()
			in := map[int]bool{}
			for _, v := range tt.want {
				in[v] = true
			}
			for v := lo; v <= hi; v++ {
				if f.Hit(v) != in[v] {
					t.Fatalf("Hit(%d) = %v, want %v", v, f.Hit(v), in[v])
				}
			}
		})
	}
}

func TestParseFieldRejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		kind Kind
		want error
	}{
		{name: "enum out of range", text: "1;60", kind: Minute, want: ErrRange},
		{name: "enum garbage", text: "1;x", kind: Minute, want: ErrFormat},
		{name: "enum empty member", text: "1;;2", kind: Minute, want: ErrFormat},
		{name: "range three parts", text: "1-2-3", kind: Minute, want: ErrFormat},
		{name: "range below min", text: "0-5", kind: DayOfMonth, want: ErrRange},
		{name: "range above max", text: "1-13", kind: Month, want: ErrRange},
		{name: "range inverted", text: "5-3", kind: Minute, want: ErrRange},
		{name: "interval three parts", text: "1/2/3", kind: Second, want: ErrFormat},
		{name: "interval zero step", text: "5/0", kind: Second, want: ErrFormat},
		{name: "interval negative step", text: "5/-1", kind: Second, want: ErrFormat},
		{name: "interval start below min", text: "1969/1", kind: Year, want: ErrRange},
		{name: "interval start above max", text: "70/5", kind: Second, want: ErrRange},
		{name: "single out of range", text: "24", kind: Hour, want: ErrRange},
		{name: "single garbage", text: "noon", kind: Hour, want: ErrFormat},
		{name: "weekday seven", text: "7", kind: DayOfWeek, want: ErrRange},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := ParseField(tt.text, tt.kind)
			if f.Valid() {
				t.Fatalf("ParseField(%q) should be invalid", tt.text)
			}
			err := f.Err()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Err() = %v, want %v", err, tt.want)
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Kind != tt.kind || fe.Input != tt.text {
				t.Fatalf("Err() = %#v, want FieldError for %s %q", err, tt.kind, tt.text)
			}
			if f.Diagnostic() == "" {
				t.Fatal("expected a diagnostic")
			}
			if f.Values() != nil {
				t.Fatalf("rejected field holds values: %v", f.Values())
			}
			lo, hi := tt.kind.Bounds()
			for v := lo; v <= hi; v++ {
				if f.Hit(v) {
					t.Fatalf("rejected field hit %d", v)
				}
			}
		})
	}
}
