package blur

import "errors"

var (
	// ErrInvalidParameter is returned when the scale factor or radius is outside its range.
	ErrInvalidParameter = errors.New("invalid blur parameter")
	// ErrInvalidInput is returned for empty or malformed pixel buffers.
	ErrInvalidInput = errors.New("invalid pixel buffer")
)
