package types

import "errors"

// Error taxonomy shared across all components. Handlers match with errors.Is
// and translate to HTTP status codes / wire error events.
var (
	// ErrNotFound - a room, user or connection id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrForbidden - the caller is not a member of a private room.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidContent - empty or oversized message content, or an otherwise
	// malformed request body.
	ErrInvalidContent = errors.New("invalid content")

	// ErrUpstream - the backing store or an external call failed. Never caused
	// by caller input.
	ErrUpstream = errors.New("upstream failure")
)

const (
	ErrorCodeNotFound       = "not_found"
	ErrorCodeForbidden      = "forbidden"
	ErrorCodeInvalidContent = "invalid_content"
	ErrorCodeUpstream       = "upstream_failure"
	ErrorCodeInternal       = "internal"
)

// ErrorCode maps an error to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrorCodeNotFound
	case errors.Is(err, ErrForbidden):
		return ErrorCodeForbidden
	case errors.Is(err, ErrInvalidContent):
		return ErrorCodeInvalidContent
	case errors.Is(err, ErrUpstream):
		return ErrorCodeUpstream
	}
	return ErrorCodeInternal
}
