package registry

import "errors"

// Errors returned by the store. Storage failures wrap ErrStorageUnavailable
// together with the backend cause.
var (
	ErrNotFound           = errors.New("domain not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrAlreadyExists      = errors.New("domain already registered")
	ErrAlreadyDeleted     = errors.New("domain already deleted")
	ErrNotDeleted         = errors.New("domain is not deleted")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrSameOwner          = errors.New("recipient already owns the domain")
	ErrInvalidName        = errors.New("invalid domain name")
)
