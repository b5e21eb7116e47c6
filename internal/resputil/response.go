package resputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelier-edu/atelier/pkg/apperr"
)

// Response is the uniform envelope of every endpoint.
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{
		Code: OK,
		Data: data,
		Msg:  "",
	})
}

// HTTPError responds with an explicit HTTP status.
func HTTPError(c *gin.Context, status int, msg string, code ErrorCode) {
	c.JSON(status, Response[any]{
		Code: code,
		Data: nil,
		Msg:  msg,
	})
}

// Error responds with the status implied by the error code.
func Error(c *gin.Context, msg string, code ErrorCode) {
	HTTPError(c, statusOf(code), msg, code)
}

func BadRequestError(c *gin.Context, msg string) {
	HTTPError(c, http.StatusBadRequest, msg, InvalidRequest)
}

// WrapServiceError maps a service-layer error onto the response envelope,
// keyed by its apperr kind.
func WrapServiceError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		HTTPError(c, http.StatusBadRequest, err.Error(), InvalidRequest)
	case apperr.KindNotFound:
		HTTPError(c, http.StatusNotFound, err.Error(), NotFound)
	case apperr.KindConflict:
		HTTPError(c, http.StatusConflict, err.Error(), Conflict)
	case apperr.KindForbidden:
		HTTPError(c, http.StatusForbidden, err.Error(), UserNotAllowed)
	case apperr.KindUpstream:
		HTTPError(c, http.StatusServiceUnavailable, err.Error(), UpstreamUnavailable)
	default:
		HTTPError(c, http.StatusInternalServerError, err.Error(), NotSpecified)
	}
}

func statusOf(code ErrorCode) int {
	switch code {
	case InvalidRequest:
		return http.StatusBadRequest
	case TokenExpired, TokenInvalid, InvalidCredentials:
		return http.StatusUnauthorized
	case TooManyAttempts:
		return http.StatusTooManyRequests
	case UserNotAllowed:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case UpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
