package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("api: not found")
	ErrUnauthorized = errors.New("api: unauthorized")
)

// codeRouteNotFound is what the store answers for a path it does not serve,
// as opposed to "not_found" for a missing resource.
const codeRouteNotFound = "route_not_found"

// Error is a non-2xx answer from the store.
type Error struct {
	Status int
	Code   string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api: HTTP %d: %s", e.Status, e.Code)
}

// Is lets callers match with errors.Is(err, api.ErrNotFound).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound && e.Code != codeRouteNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// RouteMissing reports whether the store does not offer the endpoint at all.
func (e *Error) RouteMissing() bool {
	switch e.Status {
	case http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return true
	case http.StatusNotFound:
		return e.Code == codeRouteNotFound || e.Code == ""
	}
	return false
}

// IsRouteMissing reports whether err is an *Error for an unsupported endpoint.
func IsRouteMissing(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.RouteMissing()
}
