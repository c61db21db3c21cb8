package services

import (
	"fmt"
	"net/http"
)

const (
	CodeNotFound         = "READINESS_NOT_FOUND"
	CodeCycle            = "READINESS_CYCLE"
	CodeInvalidScope     = "READINESS_INVALID_SCOPE"
	CodeCategoryConflict = "READINESS_CATEGORY_CONFLICT"
	CodeConsistency      = "READINESS_CONSISTENCY"
	CodeInvalidBody      = "READINESS_INVALID_BODY"
	CodeHasDescendants   = "READINESS_HAS_DESCENDANTS"
	CodeInternal         = "READINESS_INTERNAL"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func notFoundError(kind, id string) *ServiceError {
	return newServiceError(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s %q not found", kind, id), nil)
}
