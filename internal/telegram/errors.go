package telegram

import "fmt"

// TransportError reports a failed call to the Telegram API: connection
// errors, timeouts, or an API-level rejection of an outgoing message.
type TransportError struct {
	Method string // API method that failed, e.g. "getUpdates"
	Err    error  // underlying error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("telegram %s: %v", e.Method, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
