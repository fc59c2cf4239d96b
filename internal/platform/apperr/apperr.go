// Package apperr holds the error kinds shared by the domain services and
// their mapping onto HTTP responses.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ValidationError is a local, recoverable input problem. The message is meant
// to be shown to the user as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation builds a ValidationError with a formatted message.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports that a record already exists. ExistingID, when set,
// identifies the record the caller should be redirected to.
type ConflictError struct {
	Message    string
	ExistingID string
	Location   string
}

func (e *ConflictError) Error() string { return e.Message }

// ForbiddenError reports that the session may not perform the operation.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// Forbidden builds a ForbiddenError.
func Forbidden(format string, args ...interface{}) error {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

// CollaboratorError wraps a failure of an external dependency (database,
// event bus). It is never retried automatically.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Collaborator wraps err as a CollaboratorError. A nil err stays nil.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// HTTP maps err to an *echo.HTTPError. A blown request deadline is 504 even
// when wrapped as a collaborator failure. Unknown errors become 500 without
// leaking their text.
func HTTP(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out").SetInternal(err)
	}

	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		fe *ForbiddenError
		co *CollaboratorError
	)
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
	case errors.As(err, &nf):
		return echo.NewHTTPError(http.StatusNotFound, nf.Error())
	case errors.As(err, &ce):
		body := map[string]string{"message": ce.Message}
		if ce.ExistingID != "" {
			body["existing_id"] = ce.ExistingID
		}
		if ce.Location != "" {
			body["location"] = ce.Location
		}
		return echo.NewHTTPError(http.StatusConflict, body)
	case errors.As(err, &fe):
		return echo.NewHTTPError(http.StatusForbidden, fe.Message)
	case errors.As(err, &co):
		return echo.NewHTTPError(http.StatusBadGateway, "upstream failure: "+co.Op).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

// Classified reports whether err already carries one of the kinds above.
func Classified(err error) bool {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		fe *ForbiddenError
		co *CollaboratorError
	)
	return errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &ce) ||
		errors.As(err, &fe) || errors.As(err, &co)
}

// Wrap leaves classified errors untouched and treats anything else as a
// collaborator failure of op.
func Wrap(op string, err error) error {
	if err == nil || Classified(err) {
		return err
	}
	return Collaborator(op, err)
}
