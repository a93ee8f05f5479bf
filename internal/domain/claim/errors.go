package claim

import "errors"

var (
	ErrNotFound        = errors.New("claim not found")
	ErrAlreadyResolved = errors.New("claim already resolved")
	ErrValidation      = errors.New("validation error")
)
