package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSuchService matches any *NoSuchServiceError.
	ErrNoSuchService = errors.New("no such service")
	// ErrAmbiguousService matches any *AmbiguousServiceError.
	ErrAmbiguousService = errors.New("ambiguous service")
)

// NoSuchServiceError reports that no started addon exports a matching service.
type NoSuchServiceError struct {
	TypeName string
}

func (e *NoSuchServiceError) Error() string {
	return fmt.Sprintf("no services of type [%s] could be found in any started addons", e.TypeName)
}

func (e *NoSuchServiceError) Is(target error) bool {
	return target == ErrNoSuchService
}

// AmbiguousServiceError reports that more than one started addon exports a matching
// service where exactly one was required.
type AmbiguousServiceError struct {
	TypeName string
	Matches  []Match
}

func (e *AmbiguousServiceError) Error() string {
	parts := make([]string, 0, len(e.Matches))
	for _, m := range e.Matches {
		parts = append(parts, m.String())
	}
	return fmt.Sprintf("cannot resolve ambiguous service [%s]: %s", e.TypeName, strings.Join(parts, ", "))
}

func (e *AmbiguousServiceError) Is(target error) bool {
	return target == ErrAmbiguousService
}
