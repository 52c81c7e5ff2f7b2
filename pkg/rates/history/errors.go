package history

import "errors"

var (
	// ErrInvalidRange indicates that the query interval is inverted.
	ErrInvalidRange = errors.New("Wrong time interval: 'to' should be more, than 'from'")
)
