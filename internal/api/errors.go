package api

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError is returned for transport failures and non-2xx responses.
type NetworkError struct {
	Op      string
	Status  int
	Message string
	Code    string
	Err     error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": request failed"
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not a response error.
func StatusOf(err error) int {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Status
	}
	return 0
}

// IsUnauthorized reports whether the server rejected the session token.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports whether the server answered 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details"`
}
