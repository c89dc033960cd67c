package sharepoint

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// Error types for SharePoint REST responses.
var (
	// ErrUnauthorised indicates the token or credentials were rejected.
	ErrUnauthorised = errors.New("sharepoint: unauthorised")

	// ErrForbidden indicates the principal lacks permission on the list.
	ErrForbidden = errors.New("sharepoint: forbidden")

	// ErrNotFound usually means the target list title does not exist.
	ErrNotFound = errors.New("sharepoint: not found")

	// ErrRateLimited indicates the request was throttled.
	ErrRateLimited = errors.New("sharepoint: rate limited")

	// ErrBadRequest indicates a malformed item, e.g. an unknown field name.
	ErrBadRequest = errors.New("sharepoint: bad request")

	// ErrServerError indicates a server-side failure.
	ErrServerError = errors.New("sharepoint: server error")
)

// WrapError converts an HTTP status code to an appropriate error.
func WrapError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// statusPattern finds an HTTP status line such as "404 Not Found" in gosip
// error text ("404 Not Found :: {...}"), wrapped or not.
var statusPattern = regexp.MustCompile(`\b([1-5][0-9]{2}) ([A-Z][A-Za-z -]*)`)

// classify attaches a sentinel to gosip errors carrying a response status.
func classify(err error) error {
	msg := err.Error()
	for _, m := range statusPattern.FindAllStringSubmatch(msg, -1) {
		code, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		text := http.StatusText(code)
		if text == "" || !strings.HasPrefix(m[2], text) {
			continue
		}
		if sentinel := WrapError(code); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
		return err
	}
	return err
}
