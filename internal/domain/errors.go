package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidDate is returned when a non-empty date does not match the layout.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidNumber is returned when a canopy value is not a number.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrUnknownBorough is returned for a community board code whose first
	// digit is not 1-5.
	ErrUnknownBorough = errors.New("unknown borough digit")
)

// ParseError reports malformed input. It aborts the run.
type ParseError struct {
	Path   string
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("parse %s line %d column %q: %v", e.Path, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("parse %s line %d: %v", e.Path, e.Line, e.Err)
	case e.Column != "":
		return fmt.Sprintf("parse %s column %q: %v", e.Path, e.Column, e.Err)
	default:
		return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// DataQualityError reports a row that passed every filter but cannot be
// derived, such as a community board code with an unknown borough digit.
type DataQualityError struct {
	Line int
	Code string
	Err  error
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: line %d community board %q: %v", e.Line, e.Code, e.Err)
}

func (e *DataQualityError) Unwrap() error { return e.Err }
