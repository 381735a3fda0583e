package client

import "errors"

// ErrNotFound reports that the target of a query or mutation does not
// exist on the server.
var ErrNotFound = errors.New("not found")

// ErrRejected reports that the server refused the request (validation
// or constraint failure).
var ErrRejected = errors.New("request rejected")
