package domain

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a class of domain rule violation.
type ErrorCode string

const (
	CodeLimitExceeded  ErrorCode = "LIMIT_EXCEEDED"
	CodeDuplicateTrack ErrorCode = "DUPLICATE_TRACK"
	CodeTrackNotFound  ErrorCode = "TRACK_NOT_FOUND"
	CodeInvalidVolume  ErrorCode = "INVALID_VOLUME"
	CodeInvalidTrackID ErrorCode = "INVALID_TRACK_ID"
	CodeMixEmpty       ErrorCode = "MIX_EMPTY"
)

// DomainError is the base type for rule violations raised by domain objects.
type DomainError struct {
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// MixDomainError is raised by Mix transitions.
type MixDomainError struct {
	DomainError
	TrackID string
}

func (e *MixDomainError) Error() string {
	if e.TrackID == "" {
		return e.DomainError.Error()
	}
	return fmt.Sprintf("%s (track %q)", e.DomainError.Error(), e.TrackID)
}

// Is matches any MixDomainError with the same code, regardless of track.
func (e *MixDomainError) Is(target error) bool {
	t, ok := target.(*MixDomainError)
	return ok && t.Code == e.Code
}

func (e *MixDomainError) Unwrap() error {
	return &e.DomainError
}

// Sentinels for errors.Is comparisons.
var (
	ErrLimitExceeded  = newMixError(CodeLimitExceeded, "", "")
	ErrDuplicateTrack = newMixError(CodeDuplicateTrack, "", "")
	ErrTrackNotFound  = newMixError(CodeTrackNotFound, "", "")
	ErrInvalidVolume  = newMixError(CodeInvalidVolume, "", "")
	ErrInvalidTrackID = newMixError(CodeInvalidTrackID, "", "")
	ErrMixEmpty       = newMixError(CodeMixEmpty, "", "")
)

func newMixError(code ErrorCode, trackID, message string) *MixDomainError {
	return &MixDomainError{
		DomainError: DomainError{Code: code, Message: message},
		TrackID:     trackID,
	}
}

// CodeOf extracts the domain error code from err, if any.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}
