package services

import "errors"

// ErrInvalidCredentials is returned by VerifyLogin for an unknown username
// and for a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func required(field string) error {
	return invalid(field, field+" is required")
}
