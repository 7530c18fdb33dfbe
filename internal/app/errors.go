package app

import "fmt"

// DomainError is the failure envelope for blog operations. Status is the
// HTTP status the edge answers with; Code is one of the stable taxonomy
// codes (NOT_FOUND, FORBIDDEN, VALIDATION_ERROR, CONSTRAINT_VIOLATION,
// UNAUTHORIZED, INVALID_BODY, MEDIA_UNAVAILABLE, SERVER_ERROR).
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
