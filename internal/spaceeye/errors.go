package spaceeye

import (
	"errors"
	"fmt"
)

var (
	ErrTransport       = errors.New("transport failure")
	ErrMissingMetadata = errors.New("missing response metadata")
	ErrMalformed       = errors.New("malformed catalog")

	ErrDisplayNotFound     = errors.New("display not found")
	ErrUnsupportedPlatform = errors.New("display service is not available on this platform")

	ErrViewNotFound = errors.New("satellite view not found")
	ErrNoImage      = errors.New("view has no image sources")
)

// FetchError is returned by the catalog fetcher. Kind is one of
// ErrTransport, ErrMissingMetadata or ErrMalformed.
type FetchError struct {
	Kind error
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %v: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

type DisplayError struct {
	ID  uint64
	Err error
}

func (e *DisplayError) Error() string { return fmt.Sprintf("display %d: %v", e.ID, e.Err) }
func (e *DisplayError) Unwrap() error { return e.Err }

// ApplyError reports that a wallpaper could not be set. Err carries the
// reason given by the display service.
type ApplyError struct {
	DisplayID uint64
	Path      string
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("set wallpaper %s on display %d: %v", e.Path, e.DisplayID, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }
