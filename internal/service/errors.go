package service

import "errors"

// Service-level errors. Handlers map these onto HTTP status codes.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrItemNotFound       = errors.New("checklist item not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidPermitType  = errors.New("invalid permit type")
	ErrNoDocuments        = errors.New("package has no documents")
)
