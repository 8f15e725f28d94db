package engine

import "errors"

var (
	ErrSoundNotLoaded = errors.New("sound not loaded")
	ErrUnknownSource  = errors.New("unknown sound source")
	ErrNoAudioSink    = errors.New("no compatible audio sink found")
	ErrSinkClosed     = errors.New("audio sink closed")
	ErrNotRunning     = errors.New("engine not running")
)

var ErrEngineBusy = errors.New("engine is playing to a sink")
