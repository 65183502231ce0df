// Package resource holds the business-rule error type shared by the
// form and button-panel managers.
package resource

// Error carries a machine-readable code, an HTTP status, and an optional
// payload merged into the error response body (e.g. retry_in seconds for
// cooldown rejections).
type Error struct {
	Code    string
	Message string
	Status  int
	Payload map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a business-rule error with the given code and status.
func NewError(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// WithPayload attaches extra response fields to the error.
func (e *Error) WithPayload(payload map[string]any) *Error {
	e.Payload = payload
	return e
}
