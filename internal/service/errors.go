package service

// UserError is a business-rule rejection whose message is written for the
// end user. Handlers map it to HTTP 400.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func newUserError(message string) *UserError {
	return &UserError{Message: message}
}
