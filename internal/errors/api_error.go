package errors

import (
	"encoding/json"
	"net/http"
)

// APIError is the client-facing error shape, rendered in the OpenAI
// error envelope.
type APIError struct {
	HTTPStatus int
	Code       string
	Type       string
	Message    string
}

// OpenAIError mirrors OpenAI's error envelope.
type OpenAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func New(httpStatus int, code, errType, message string) *APIError {
	return &APIError{HTTPStatus: httpStatus, Code: code, Type: errType, Message: message}
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) ToJSON() []byte {
	var out OpenAIError
	out.Error.Message = e.Message
	out.Error.Type = e.Type
	out.Error.Code = e.Code
	b, err := json.Marshal(out)
	if err != nil {
		return []byte(`{"error":{"message":"internal error","type":"server_error"}}`)
	}
	return b
}

// IsRetryable reports whether the error may succeed on a different
// credential or a later attempt.
func (e *APIError) IsRetryable() bool {
	switch e.HTTPStatus {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
