package shared

import (
	"errors"
	"fmt"
)

// RequestError is used when we want a specific error message and StatusCode.
// Routers return the message of the innermost RequestError to the caller, so
// only wrap errors whose text is safe to show. Extra detail for logs should be
// joined alongside it with errors.Join.
type RequestError struct {
	StatusCode int
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status %d: err %v", r.StatusCode, r.Err)
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

// Message is the client facing text of the error
func (r *RequestError) Message() string {
	if r.Err == nil {
		return "internal server error"
	}
	return r.Err.Error()
}

func NewBadRequest(err error) *RequestError {
	return &RequestError{StatusCode: 400, Err: err}
}

func NewInternal(err error) *RequestError {
	return &RequestError{StatusCode: 500, Err: err}
}

var (
	ErrMissingAuth   = &RequestError{Err: errors.New("missing authorization header"), StatusCode: 401}
	ErrInvalidFormat = &RequestError{Err: errors.New("invalid authentication format"), StatusCode: 401}

	ErrInternalServerError = &RequestError{Err: errors.New("internal server error"), StatusCode: 500}
	ErrInvalidRequest      = &RequestError{Err: errors.New("invalid request body"), StatusCode: 400}
	ErrInvalidMessageID    = &RequestError{Err: errors.New("Invalid message ID format"), StatusCode: 400}
	ErrMessageNotFound     = &RequestError{Err: errors.New("Message not found"), StatusCode: 404}
	ErrNoResponses         = &RequestError{Err: errors.New("No responses found for this message"), StatusCode: 400}

	ErrProviderChat  = &MetricsError{Msg: "chat completion request failed", Code: "provider_chat_err"}
	ErrProviderImage = &MetricsError{Msg: "image generation request failed", Code: "provider_image_err"}
	ErrNoImage       = &MetricsError{Msg: "provider returned no image", Code: "provider_no_image"}
	ErrStorageRead   = &MetricsError{Msg: "failed reading from message store", Code: "storage_read_err"}
	ErrStorageWrite  = &MetricsError{Msg: "failed writing to message store", Code: "storage_write_err"}
)

type MetricsError struct {
	Msg  string
	Code string
}

func (m *MetricsError) Error() string {
	return m.String()
}

func (m *MetricsError) String() string {
	return m.Msg
}
