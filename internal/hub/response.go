package hub

import (
	"time"

	"mcphub/internal/api"
)

// Response is the uniform JSON envelope of every hub API reply.
type Response struct {
	Success   bool           `json:"success"`
	Data      interface{}    `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// ResponseError is the error half of the envelope.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse wraps a payload in the envelope.
func SuccessResponse(data interface{}) Response {
	return Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// FormatErrorResponse converts any error into the uniform wire shape.
func FormatErrorResponse(err error) Response {
	return Response{
		Success: false,
		Error: &ResponseError{
			Code:    api.ErrorCode(err),
			Message: err.Error(),
		},
		Timestamp: time.Now(),
	}
}
