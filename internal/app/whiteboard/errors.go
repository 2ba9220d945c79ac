package whiteboard

import "errors"

var (
	ErrUnknownElement = errors.New("unknown element")
	ErrUnknownFormat  = errors.New("unknown export format")
)
