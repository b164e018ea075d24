package store

import "errors"

// ErrInvalidIndex is returned when a withdrawal request index is out of range.
var ErrInvalidIndex = errors.New("invalid withdrawal request index")
