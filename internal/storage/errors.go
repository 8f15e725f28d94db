package storage

import "errors"

var (
	ErrNotFound     = errors.New("object not found")
	ErrMixNotFound  = errors.New("mix not found")
	ErrInvalidName  = errors.New("invalid mix name")
	ErrCorruptedMix = errors.New("stored mix is corrupted")
)
