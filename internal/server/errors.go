package server

import "errors"

var ErrRateLimited = errors.New("too many edits, slow down")
