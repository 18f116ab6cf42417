package parser

import (
	"fmt"
	"strings"
)

// ParseError means the generator's answer could not be turned into a usable
// structure. It is recovered at the boundary of the triggering operation and
// surfaces to the user as a clarification request.
type ParseError struct {
	Input  string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot parse %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError means the extracted structure is internally inconsistent
// (missing required fields, end not after start). Never auto-corrected.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid event draft: " + strings.Join(e.Problems, "; ")
}
