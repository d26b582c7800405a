package cronspec

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldCount is reported when a line does not have exactly seven fields.
	ErrFieldCount = errors.New("cronspec: wrong field count")
	// ErrFormat is reported when a field token does not split into the expected integers.
	ErrFormat = errors.New("cronspec: format error")
	// ErrRange is reported when a parsed value falls outside the field bounds.
	ErrRange = errors.New("cronspec: out of range")
	// ErrUnsupported is returned by FromStandard for specs with no seven-field equivalent.
	ErrUnsupported = errors.New("cronspec: unsupported standard spec")
)

// FieldError describes why a single field was rejected.
type FieldError struct {
	Kind   Kind
	Input  string
	Reason string
	Err    error // ErrFormat or ErrRange
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Input, e.Reason)
}

func (e *FieldError) Unwrap() error { return e.Err }
