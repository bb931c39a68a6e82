package bizerror

import (
	"errors"
	"net/http"
)

// sentinel errors of the core workflow, mapped to responses in errorhanding.go
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("record not found")

	// a transition violates a workflow precondition, e.g. submitting an
	// already completed task, or completing a project with open tasks
	ErrInvalidState = errors.New("invalid state")

	// submit-complete found no Manager to notify
	ErrNoEscalationRecipient = errors.New("no escalation recipient")

	ErrInvalidPassword    = errors.New("invalid password")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrUnsupportedParent  = errors.New("unsupported parent kind")
	ErrStatusNotSupported = errors.New("status not supported")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}

func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}

func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}
