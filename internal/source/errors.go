package source

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by a DiscoveryError.
	ErrNotFound = errors.New("recipe dump not found in any candidate source")
	// ErrFetch is matched by a FetchError.
	ErrFetch = errors.New("recipe dump could not be fetched")
)

// DiscoveryError reports that every candidate and strategy came up empty.
type DiscoveryError struct {
	Tried []Candidate
}

func (e *DiscoveryError) Error() string {
	names := make([]string, 0, len(e.Tried))
	for _, c := range e.Tried {
		names = append(names, c.String())
	}
	return fmt.Sprintf("discovery exhausted: tried %d candidates [%s]", len(e.Tried), strings.Join(names, ", "))
}

func (e *DiscoveryError) Is(target error) bool { return target == ErrNotFound }

// Attempt records one failed fetch.
type Attempt struct {
	URL string
	Err error
}

// FetchError reports that every fetch strategy failed for a location.
type FetchError struct {
	Location Location
	Attempts []Attempt
}

func (e *FetchError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.URL, a.Err))
	}
	return fmt.Sprintf("fetch failed for %s: %s", e.Location, strings.Join(parts, "; "))
}

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// statusError is a non-2xx response.
type statusError struct {
	Code int
}

func (e statusError) Error() string { return fmt.Sprintf("HTTP %d", e.Code) }
