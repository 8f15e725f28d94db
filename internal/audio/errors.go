package audio

import "errors"

var (
	ErrSoundNotActive     = errors.New("sound not active")
	ErrUnsupportedCommand = errors.New("unsupported volume command")
)
