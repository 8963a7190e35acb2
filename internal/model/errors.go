package model

import "errors"

// ErrInvalid marks input that breaks a master-data rule. Services wrap it
// with the specific reason.
var ErrInvalid = errors.New("invalid input")
