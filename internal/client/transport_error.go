package client

import (
	"fmt"
	"net/http"
)

// transportError classifies the raw outcome of a single HTTP exchange. It
// never leaves the package: translate maps it to the public *Error.
type transportError interface {
	error
	transportError()
}

var (
	_ transportError = (*httpNotFoundError)(nil)
	_ transportError = (*httpStatusError)(nil)
	_ transportError = (*jsonDecodeError)(nil)
	_ transportError = (*unknownError)(nil)
)

// httpNotFoundError is a 404 response.
type httpNotFoundError struct {
	Body []byte
}

func (*httpNotFoundError) transportError() {}

func (e *httpNotFoundError) Error() string {
	return "http 404: " + http.StatusText(http.StatusNotFound)
}

// httpStatusError is any non-2xx response other than 404.
type httpStatusError struct {
	Status int
	Body   []byte
}

func (*httpStatusError) transportError() {}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, http.StatusText(e.Status))
}

// jsonDecodeError is a 2xx response whose body the decoder rejected.
type jsonDecodeError struct {
	Err error
}

func (*jsonDecodeError) transportError() {}

func (e *jsonDecodeError) Error() string {
	return "decode response: " + e.Err.Error()
}

func (e *jsonDecodeError) Unwrap() error { return e.Err }

// unknownError is a failure before a response was received: the request
// could not be built, the transport failed, or the body could not be read.
// Body holds whatever was read before the failure.
type unknownError struct {
	Err  error
	Body []byte
}

func (*unknownError) transportError() {}

func (e *unknownError) Error() string {
	return e.Err.Error()
}

func (e *unknownError) Unwrap() error { return e.Err }
