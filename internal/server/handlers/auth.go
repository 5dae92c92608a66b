package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/registry"
	"github.com/okadago/backend/internal/server/mw"
	"github.com/okadago/backend/internal/server/resp"
)

type AuthHandler struct {
	logger   *zap.Logger
	registry *registry.Registry
}

func NewAuthHandler(logger *zap.Logger, reg *registry.Registry) *AuthHandler {
	return &AuthHandler{logger: logger, registry: reg}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req registry.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	u, err := h.registry.Signup(c.Request.Context(), req)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.Created(c, u)
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	u, tokens, err := h.registry.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"user": u, "tokens": tokens})
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	tokens, err := h.registry.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"tokens": tokens})
}

// Logout revokes every refresh token of the authenticated user.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.registry.Logout(c.Request.Context(), mw.UserID(c)); err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"event": "logged_out"})
}
