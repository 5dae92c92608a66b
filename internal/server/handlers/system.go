package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/server/resp"
)

func Health(c *gin.Context) {
	resp.OK(c, gin.H{"status": "ok"})
}

type ErrorKindItem struct {
	Kind apperr.Kind `json:"kind"`
	Code int         `json:"code"`
}

var errorKinds = []apperr.Kind{
	apperr.KindValidation,
	apperr.KindNotFound,
	apperr.KindInvalidTransition,
	apperr.KindRideAlreadyTaken,
	apperr.KindInsufficientFunds,
	apperr.KindFraudSuspension,
	apperr.KindAccountBlocked,
	apperr.KindDuplicateUser,
	apperr.KindForbidden,
	apperr.KindUnauthorized,
	apperr.KindMaintenance,
	apperr.KindConfiguration,
}

// ErrorKinds lists every error kind a client can receive with its HTTP status.
func ErrorKinds(c *gin.Context) {
	items := make([]ErrorKindItem, 0, len(errorKinds))
	for _, k := range errorKinds {
		items = append(items, ErrorKindItem{Kind: k, Code: resp.StatusFor(k)})
	}
	resp.Success(c, http.StatusOK, "ok", items)
}
