// Package ibeerr is the cutout core's error taxonomy: every fallible
// operation in core/coords, core/wcs, core/pixelbox, core/header,
// core/fitsio, core/sink and core/cutout returns one of these instead of
// a bare error, so a host can map a failure straight to an HTTP status
// without re-deriving it from the error message.
//
// See:
// https://blog.questionable.services/article/http-handler-error-handling-revisited/
// https://golang.org/pkg/net/http/#Handler
package ibeerr

import (
	"fmt"
	"net/http"
)

// Error represents a cutout-core error. It provides a method for an
// HTTP-style status code and embeds the built-in error interface.
type Error interface {
	error
	Status() int
}

// StatusError represents an error with an associated HTTP status code.
type StatusError struct {
	Code int
	Err  error
}

// Error allows StatusError to satisfy the error interface.
func (se StatusError) Error() string {
	return se.Err.Error()
}

// Status returns the HTTP status code to report for this error.
func (se StatusError) Status() int {
	return se.Code
}

// Unwrap lets errors.Is/errors.As see through a StatusError.
func (se StatusError) Unwrap() error {
	return se.Err
}

// The five classes this core recognises.

// BadRequest - malformed input: unparsable coordinates, bad units, wrong
// pair arity, negative size, out-of-range declination, or a WCS pixel/sky
// conversion that has no valid mapping for the given point.
func BadRequest(err error) StatusError {
	return StatusError{Code: http.StatusBadRequest, Err: err}
}

// NotFound - the requested image file (local or S3 object) does not exist.
func NotFound(id string) StatusError {
	return StatusError{Code: http.StatusNotFound, Err: fmt.Errorf("%v not found", id)}
}

// LengthRequired - a streaming request whose host could not determine a
// Content-Length in advance and whose downstream transport demands one.
func LengthRequired(err error) StatusError {
	return StatusError{Code: http.StatusLengthRequired, Err: err}
}

// EntityTooLarge - the requested cutout (or the file it comes from) is
// larger than a configured limit.
func EntityTooLarge(err error) StatusError {
	return StatusError{Code: http.StatusRequestEntityTooLarge, Err: err}
}

// Internal - anything the core cannot attribute to a malformed request:
// an unbuildable WCS, an unsupported image shape, a cutout that does not
// overlap the image, an image-library fault, or a sink write failure.
func Internal(err error) StatusError {
	return StatusError{Code: http.StatusInternalServerError, Err: err}
}

// Make wraps err in a StatusError carrying an arbitrary HTTP status code.
// Mainly so call sites building one-off statuses don't need a field-name
// free StatusError{} literal.
func Make(code int, err error) StatusError {
	return StatusError{Code: code, Err: err}
}

// Internalf and BadRequestf are convenience constructors so call sites
// don't need a separate fmt.Errorf before wrapping.
func Internalf(format string, a ...interface{}) StatusError {
	return Internal(fmt.Errorf(format, a...))
}

func BadRequestf(format string, a ...interface{}) StatusError {
	return BadRequest(fmt.Errorf(format, a...))
}
