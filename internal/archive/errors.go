package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToBind is returned when the recognition result has no regions.
	ErrNothingToBind = errors.New("nothing to bind: recognition result is empty")

	// ErrVerificationIncomplete matches every *VerificationIncompleteError.
	ErrVerificationIncomplete = errors.New("verification incomplete")

	// ErrEmptyTranscript is reported when the corrected text is blank. The
	// image half of the bind still runs.
	ErrEmptyTranscript = errors.New("transcript is empty")

	// ErrInvalidName is returned for a base name that is empty or escapes the archive root.
	ErrInvalidName = errors.New("invalid base name")
)

// VerificationIncompleteError names the first region still awaiting review.
type VerificationIncompleteError struct {
	Index int
}

func (e *VerificationIncompleteError) Error() string {
	return fmt.Sprintf("row %d needs review", e.Index+1)
}

func (e *VerificationIncompleteError) Is(target error) bool {
	return target == ErrVerificationIncomplete
}

// BindImageError reports a failed image write.
type BindImageError struct {
	Path  string
	Cause error
}

func (e *BindImageError) Error() string {
	return fmt.Sprintf("failed to bind image %s: %v", e.Path, e.Cause)
}

func (e *BindImageError) Unwrap() error { return e.Cause }

// BindTextError reports a failed transcript write.
type BindTextError struct {
	Path  string
	Cause error
}

func (e *BindTextError) Error() string {
	return fmt.Sprintf("failed to bind text %s: %v", e.Path, e.Cause)
}

func (e *BindTextError) Unwrap() error { return e.Cause }

// DirectoryCreateError reports a directory that could not be created.
type DirectoryCreateError struct {
	Path  string
	Cause error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("failed to create directory %s: %v", e.Path, e.Cause)
}

func (e *DirectoryCreateError) Unwrap() error { return e.Cause }
