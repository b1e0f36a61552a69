package errors

import "net/http"

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func (e *ErrorWithStatusCode) Unwrap() error {
	return e.Err
}

func WithStatus(status int, message string, err error) *ErrorWithStatusCode {
	return &ErrorWithStatusCode{Message: message, StatusCode: status, Err: err}
}

func BadRequest(message string) *ErrorWithStatusCode {
	return WithStatus(http.StatusBadRequest, message, nil)
}

func NotFound(message string) *ErrorWithStatusCode {
	return WithStatus(http.StatusNotFound, message, nil)
}
