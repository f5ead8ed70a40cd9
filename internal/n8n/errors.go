package n8n

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured means an operation was called before a credential
	// was saved. Callers are expected to check the session state first.
	ErrNotConfigured = errors.New("n8n: session is not configured")

	ErrMalformedResponse = errors.New("n8n: malformed response body")
)

// TransportError reports a request that never got an HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("n8n: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError reports a non-2xx response. The body is not inspected,
// so authorization failures look the same as any other status.
type HTTPStatusError struct {
	Code int
	Text string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("error %d: %s", e.Code, e.Text)
}
