package handlers

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/apperr"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/registry"
	"github.com/okadago/backend/internal/server/mw"
	"github.com/okadago/backend/internal/server/resp"
	"github.com/okadago/backend/internal/settings"
)

type AdminHandler struct {
	logger   *zap.Logger
	registry *registry.Registry
	settings settings.Admin
}

func NewAdminHandler(logger *zap.Logger, reg *registry.Registry, st settings.Admin) *AdminHandler {
	return &AdminHandler{logger: logger, registry: reg, settings: st}
}

// RecruitDriver creates a driver account. The temporary password is only ever shown here.
func (h *AdminHandler) RecruitDriver(c *gin.Context) {
	var req registry.RecruitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	u, password, err := h.registry.RecruitDriver(c.Request.Context(), mw.UserID(c), req)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.Created(c, gin.H{"driver": u, "temporary_password": password})
}

type statusReq struct {
	Status domain.AccountStatus `json:"status" binding:"required"`
	Reason string               `json:"reason"`
}

func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	u, err := h.registry.UpdateUserStatus(c.Request.Context(), mw.UserID(c), c.Param("id"), req.Status, req.Reason)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, u)
}

func (h *AdminHandler) OnlineDrivers(c *gin.Context) {
	drivers, err := h.registry.ListOnlineDrivers(c.Request.Context())
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, nonNil(drivers))
}

func (h *AdminHandler) GetPricing(c *gin.Context) {
	p, err := h.settings.Pricing(c.Request.Context())
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, p)
}

func (h *AdminHandler) PutPricing(c *gin.Context) {
	var p domain.PricingTable
	if err := c.ShouldBindJSON(&p); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := settings.ValidatePricing(p); err != nil {
		resp.FromError(c, h.logger, apperr.Validation(err.Error()))
		return
	}
	if err := h.settings.SetPricing(c.Request.Context(), p); err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	h.logger.Info("pricing updated", zap.String("actor_id", mw.UserID(c)))
	resp.OK(c, p)
}

type maintenanceReq struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *AdminHandler) SetMaintenance(c *gin.Context) {
	var req maintenanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.settings.SetMaintenance(c.Request.Context(), *req.Enabled); err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	h.logger.Info("maintenance mode changed", zap.Bool("enabled", *req.Enabled), zap.String("actor_id", mw.UserID(c)))
	resp.OK(c, gin.H{"maintenance_mode": *req.Enabled})
}

func (h *AdminHandler) BlockIP(c *gin.Context) {
	ip, ok := ipParam(c)
	if !ok {
		return
	}
	if err := h.settings.BlockIP(c.Request.Context(), ip); err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"ip": ip, "blocked": true})
}

func (h *AdminHandler) UnblockIP(c *gin.Context) {
	ip, ok := ipParam(c)
	if !ok {
		return
	}
	if err := h.settings.UnblockIP(c.Request.Context(), ip); err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"ip": ip, "blocked": false})
}

func ipParam(c *gin.Context) (string, bool) {
	ip := net.ParseIP(c.Param("ip"))
	if ip == nil {
		resp.Error(c, http.StatusBadRequest, "invalid ip address")
		return "", false
	}
	return ip.String(), true
}
