package ranger

import (
	"errors"
	"fmt"
)

// Kind classifies the failures the vectored range-read core can produce.
type Kind int

const (
	// InvalidServerResponse covers every way a server's multipart/byteranges
	// answer can fail to match RFC 7233: missing/malformed boundary, a
	// malformed part header, a part header exceeding the line-count guard,
	// or a part whose Content-Range disagrees with the range it was asked
	// for.
	InvalidServerResponse Kind = iota
	// HTTPCodeError covers a status code outside {200, 206}.
	HTTPCodeError
	// Transport covers errors surfaced unchanged from the HTTP collaborator.
	Transport
)

func (k Kind) String() string {
	switch k {
	case InvalidServerResponse:
		return "invalid server response"
	case HTTPCodeError:
		return "unexpected http status"
	case Transport:
		return "transport error"
	default:
		return "unknown"
	}
}

// RangeError is the error type returned by every fatal path in the core.
// It carries the Kind so callers can branch with errors.Is/errors.As without
// string-matching, and wraps the underlying cause (if any) for errors.Unwrap.
type RangeError struct {
	Kind    Kind
	Scope   string
	Message string
	Code    int // HTTP status code, populated for Kind == HTTPCodeError
	Err     error
}

func (e *RangeError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (http %d)", e.Scope, e.Message, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Scope, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Scope, e.Message)
}

func (e *RangeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &RangeError{Kind: k}) match any RangeError of the
// same Kind by comparing Kind values instead of pointer identity.
func (e *RangeError) Is(target error) bool {
	var other *RangeError
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

const scope = "ranger.httpiovec"

func errInvalidMultipart(message string) error {
	return &RangeError{Kind: InvalidServerResponse, Scope: scope, Message: message}
}

func errPartTooLong() error {
	return errInvalidMultipart("multi-part header too long")
}

func errBadBoundary(boundary string) error {
	return errInvalidMultipart("invalid boundary for multipart response: " + boundary)
}

func errRangeMismatch(reqOffset, reqSize, ansOffset, ansSize uint64) error {
	return errInvalidMultipart(fmt.Sprintf(
		"invalid server answer for multi part, request offset:%d size:%d, answer offset:%d size:%d",
		reqOffset, reqSize, ansOffset, ansSize))
}

func errHTTPCode(code int) error {
	return &RangeError{Kind: HTTPCodeError, Scope: scope, Message: "unexpected http response code", Code: code}
}

func errTransport(err error) error {
	return &RangeError{Kind: Transport, Scope: scope, Message: "transport error", Err: err}
}
