package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/dispatch"
	"github.com/okadago/backend/internal/registry"
	"github.com/okadago/backend/internal/server/mw"
	"github.com/okadago/backend/internal/server/resp"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 1000
)

type AccountHandler struct {
	logger   *zap.Logger
	registry *registry.Registry
	engine   *dispatch.Engine
}

func NewAccountHandler(logger *zap.Logger, reg *registry.Registry, engine *dispatch.Engine) *AccountHandler {
	return &AccountHandler{logger: logger, registry: reg, engine: engine}
}

func (h *AccountHandler) Me(c *gin.Context) {
	u, err := h.registry.GetUser(c.Request.Context(), mw.UserID(c))
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, u)
}

func (h *AccountHandler) MyActivity(c *gin.Context) {
	h.activity(c, mw.UserID(c))
}

// UserActivity is the admin view of another user's audit trail.
func (h *AccountHandler) UserActivity(c *gin.Context) {
	h.activity(c, c.Param("id"))
}

func (h *AccountHandler) activity(c *gin.Context, userID string) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	recs, err := h.registry.GetUserActivity(c.Request.Context(), userID, limit)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, nonNil(recs))
}

type onlineReq struct {
	Online *bool `json:"online" binding:"required"`
}

func (h *AccountHandler) SetOnline(c *gin.Context) {
	var req onlineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	u, err := h.registry.SetOnline(c.Request.Context(), mw.UserID(c), *req.Online)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, u)
}

type amountReq struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (h *AccountHandler) Withdraw(c *gin.Context) {
	var req amountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	u, tx, err := h.engine.WithdrawFunds(c.Request.Context(), mw.UserID(c), req.Amount)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.Created(c, gin.H{"wallet_balance": u.WalletBalance, "transaction": tx})
}

func (h *AccountHandler) Fund(c *gin.Context) {
	var req amountReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	u, err := h.registry.FundWallet(c.Request.Context(), mw.UserID(c), req.Amount)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"wallet_balance": u.WalletBalance})
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultActivityLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxActivityLimit {
		resp.Error(c, http.StatusBadRequest, "limit must be between 1 and 1000")
		return 0, false
	}
	return n, true
}
