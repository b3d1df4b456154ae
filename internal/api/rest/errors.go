package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/KevinKickass/OpenInstrumentCore/internal/types"
	"github.com/gin-gonic/gin"
)

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrOutOfRange),
		errors.Is(err, types.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotGettable), errors.Is(err, types.ErrNotSettable):
		return http.StatusMethodNotAllowed
	case errors.Is(err, types.ErrInvalidOperation), errors.Is(err, types.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, types.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), types.NewErrorResponse(types.ErrorCode(err), message, err.Error()))
}

func badRequest(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, types.NewErrorResponse("BAD_REQUEST", message, err.Error()))
}

// parseDuration parses a Go duration string, falling back to def when
// the string is empty.
func parseDuration(value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	return time.ParseDuration(value)
}

func indexParam(c *gin.Context) (int, error) {
	return strconv.Atoi(c.Param("index"))
}
