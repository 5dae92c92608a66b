package resp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/apperr"
)

// Envelope is the unified response structure for ALL API endpoints.
type Envelope struct {
	Status      string `json:"status"`      // success | error
	Code        int    `json:"code"`        // usually HTTP status code
	Description string `json:"description"` // human readable
	Data        any    `json:"data"`        // object | array | null
}

// ErrorData is the data of an error envelope produced from a typed error.
type ErrorData struct {
	Kind    apperr.Kind    `json:"kind"`
	Details map[string]any `json:"details,omitempty"`
}

func Success(c *gin.Context, httpCode int, description string, data any) {
	c.JSON(httpCode, Envelope{
		Status:      "success",
		Code:        httpCode,
		Description: description,
		Data:        data,
	})
}

func OK(c *gin.Context, data any) {
	Success(c, http.StatusOK, "ok", data)
}

func Created(c *gin.Context, data any) {
	Success(c, http.StatusCreated, "created", data)
}

func Error(c *gin.Context, httpCode int, description string) {
	c.JSON(httpCode, Envelope{
		Status:      "error",
		Code:        httpCode,
		Description: description,
		Data:        nil,
	})
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, httpCode int, description string) {
	Error(c, httpCode, description)
	c.Abort()
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindInvalidTransition: http.StatusConflict,
	apperr.KindRideAlreadyTaken:  http.StatusConflict,
	apperr.KindInsufficientFunds: http.StatusUnprocessableEntity,
	apperr.KindFraudSuspension:   http.StatusForbidden,
	apperr.KindAccountBlocked:    http.StatusForbidden,
	apperr.KindDuplicateUser:     http.StatusConflict,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindMaintenance:       http.StatusServiceUnavailable,
	apperr.KindConfiguration:     http.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status; unknown kinds are 500.
func StatusFor(kind apperr.Kind) int {
	if code, ok := kindStatus[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// FromError writes err as an error envelope. Typed errors keep their kind and details;
// anything else is logged and reported as an internal error.
func FromError(c *gin.Context, logger *zap.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		Error(c, http.StatusInternalServerError, "internal error")
		return
	}

	code := StatusFor(e.Kind)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
	c.JSON(code, Envelope{
		Status:      "error",
		Code:        code,
		Description: e.Message,
		Data:        ErrorData{Kind: e.Kind, Details: e.Details},
	})
}
