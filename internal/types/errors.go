package types

import "errors"

// Error taxonomy shared by the toolkit boundary and the adapter. Driver
// implementations wrap these with context; callers match with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrOutOfRange       = errors.New("value out of range")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrTimeout          = errors.New("timeout")
	ErrRuntime          = errors.New("runtime error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrDuplicateName    = errors.New("duplicate instance name")
	ErrNotFound         = errors.New("not found")
	ErrNotGettable      = errors.New("parameter is not gettable")
	ErrNotSettable      = errors.New("parameter is not settable")
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds a consistent API error payload.
// details can be string, map, struct, etc.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// ErrorCode maps an error of the taxonomy to a stable API error code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrOutOfRange):
		return "OUT_OF_RANGE"
	case errors.Is(err, ErrIndexOutOfRange):
		return "INDEX_OUT_OF_RANGE"
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrInvalidOperation):
		return "INVALID_OPERATION"
	case errors.Is(err, ErrDuplicateName):
		return "DUPLICATE_NAME"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNotGettable), errors.Is(err, ErrNotSettable):
		return "ACCESS_DENIED"
	case errors.Is(err, ErrRuntime):
		return "RUNTIME_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
