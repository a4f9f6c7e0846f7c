// internal/middleware/errors.go
package middleware

import "errors"

var errMalformedHeader = errors.New("malformed authorization header")
