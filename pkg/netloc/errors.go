package netloc

import "errors"

// ErrInvalidHost is returned for empty or malformed hosts.
var ErrInvalidHost = errors.New("invalid host")
