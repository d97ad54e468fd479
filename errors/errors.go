package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrSlowConsumer       = fmt.Errorf("connection buffer full, event dropped")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrInvalidPayload     = fmt.Errorf("invalid event payload")
	ErrDocumentNotFound   = fmt.Errorf("document not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrIdentityMismatch   = fmt.Errorf("asserted identity does not match connection")
	ErrEmptyText          = fmt.Errorf("text is required")
)
