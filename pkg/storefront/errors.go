package storefront

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NetworkError is a transport failure: the server never answered.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a 4xx rejection carrying an optional per-field breakdown,
// e.g. registration conflicts or stock limits.
type ValidationError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], "; ")))
	}
	if e.Message == "" {
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

// UnauthenticatedError is a 401/403 on a protected action.
type UnauthenticatedError struct {
	Op      string
	Message string
}

func (e *UnauthenticatedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: authentication required", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// EmptyResourceError reports an action that needs a non-empty resource,
// such as checkout on an empty cart.
type EmptyResourceError struct {
	Resource string
}

func (e *EmptyResourceError) Error() string {
	return fmt.Sprintf("%s is empty", e.Resource)
}

// ConfirmationError is a rejected or already processed payment confirmation.
type ConfirmationError struct {
	SessionID string
	Message   string
	Err       error
}

func (e *ConfirmationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = "payment confirmation failed"
	}
	return fmt.Sprintf("confirm session %s: %s", e.SessionID, msg)
}

func (e *ConfirmationError) Unwrap() error { return e.Err }

// NotFoundError is a 404 for a specific resource.
type NotFoundError struct {
	Op      string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: not found", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// ServerError is a 5xx or an undecodable response.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error (status %d): %s", e.Op, e.Status, e.Message)
}

// IsNetwork returns true if err is or wraps a NetworkError.
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUnauthenticated returns true if err is or wraps an UnauthenticatedError.
func IsUnauthenticated(err error) bool {
	var target *UnauthenticatedError
	return errors.As(err, &target)
}

// IsEmptyResource returns true if err is or wraps an EmptyResourceError.
func IsEmptyResource(err error) bool {
	var target *EmptyResourceError
	return errors.As(err, &target)
}

// IsConfirmation returns true if err is or wraps a ConfirmationError.
func IsConfirmation(err error) bool {
	var target *ConfirmationError
	return errors.As(err, &target)
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsTransient reports whether retrying the same action may succeed.
// Everything else needs the user to go elsewhere (log in, fill the cart, ...).
func IsTransient(err error) bool {
	if IsNetwork(err) {
		return true
	}
	var srv *ServerError
	return errors.As(err, &srv)
}
