package extract

import (
	"errors"
	"fmt"
)

// Error kinds. Every extraction failure wraps one of them and is recovered
// locally: the affected value becomes missing and extraction continues.
var (
	// ErrLocatorMiss indicates a locator found fewer matches than its index needs.
	ErrLocatorMiss = errors.New("locator miss")
	// ErrLabelMismatch indicates a container title did not read as expected.
	ErrLabelMismatch = errors.New("label mismatch")
	// ErrParse indicates text could not be read or converted.
	ErrParse = errors.New("parse failure")
	// ErrFetch indicates a page or listing could not be fetched.
	ErrFetch = errors.New("fetch failure")
)

// Diagnostic records one recovered failure.
type Diagnostic struct {
	Field string // output name or container name the failure affected
	Err   error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %v", d.Field, d.Err)
}

// Kind returns the sentinel error the diagnostic wraps, or nil.
func (d Diagnostic) Kind() error {
	for _, kind := range []error{ErrLocatorMiss, ErrLabelMismatch, ErrParse, ErrFetch} {
		if errors.Is(d.Err, kind) {
			return kind
		}
	}
	return nil
}

// Result is the outcome of extracting one listing.
type Result struct {
	Record      Record
	Diagnostics []Diagnostic
}

func (r *Result) note(field string, err error) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Field: field, Err: err})
}
