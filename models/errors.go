package models

import "errors"

// ErrInvalidDocument is returned when a store snapshot fails schema validation
var ErrInvalidDocument = errors.New("invalid document")
