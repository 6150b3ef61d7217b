package carbon

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoToken is returned by calls that need a credential when none is held.
	ErrNoToken = errors.New("not logged in")
	// ErrMissingToken means a login response carried no token.
	ErrMissingToken = errors.New("login response did not contain a token")
)

// APIError is any non-2xx answer from the platform. Its message is the response body,
// verbatim, because that is what the platform wants the user to read.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	// Title is the <title> of an HTML error page (proxies, gateways), if any.
	Title string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsAuthFailure reports whether err is the platform rejecting the credential.
func IsAuthFailure(err error) bool {
	if errors.Is(err, ErrNoToken) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0 for transport failures.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
