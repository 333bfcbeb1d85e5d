package domain

import "errors"

var (
	// ErrMalformedInput marks upstream data that could not be parsed.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUpstreamFetchFailed marks a failed datasource call.
	ErrUpstreamFetchFailed = errors.New("upstream fetch failed")
	// ErrInvalidQuery marks a caller mistake such as a missing user.
	ErrInvalidQuery = errors.New("invalid query")
	ErrNotTracked   = errors.New("user is not tracked")
)
