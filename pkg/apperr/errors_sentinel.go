package apperr

import "errors"

var (
	ErrInvalidMessageTable   = errors.New("apperr: invalid message table")
	ErrMissingGenericMessage = errors.New("apperr: message table must define a generic entry")
)
