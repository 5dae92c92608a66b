package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/dispatch"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/server/mw"
	"github.com/okadago/backend/internal/server/resp"
)

type RideHandler struct {
	logger *zap.Logger
	engine *dispatch.Engine
}

func NewRideHandler(logger *zap.Logger, engine *dispatch.Engine) *RideHandler {
	return &RideHandler{logger: logger, engine: engine}
}

// Create books a ride for the authenticated user.
func (h *RideHandler) Create(c *gin.Context) {
	var req dispatch.CreateRideInput
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	req.PassengerID = mw.UserID(c)
	ride, err := h.engine.CreateRide(c.Request.Context(), req)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.Created(c, ride)
}

func (h *RideHandler) Active(c *gin.Context) {
	rides, err := h.engine.ListActiveRides(c.Request.Context(), mw.Role(c), mw.UserID(c))
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, nonNil(rides))
}

// Offers lists the PENDING rides the driver has not rejected.
func (h *RideHandler) Offers(c *gin.Context) {
	rides, err := h.engine.ListOfferableRides(c.Request.Context(), mw.UserID(c))
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, nonNil(rides))
}

func (h *RideHandler) Accept(c *gin.Context) {
	ride, err := h.engine.AcceptRide(c.Request.Context(), c.Param("id"), mw.UserID(c))
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, ride)
}

func (h *RideHandler) Reject(c *gin.Context) {
	ride, err := h.engine.RejectRide(c.Request.Context(), c.Param("id"), mw.UserID(c))
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, ride)
}

type advanceReq struct {
	Status domain.RideStatus `json:"status" binding:"required"`
	Reason string            `json:"reason"`
}

func (h *RideHandler) Advance(c *gin.Context) {
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	ride, err := h.engine.AdvanceStatus(c.Request.Context(), dispatch.AdvanceInput{
		RideID:  c.Param("id"),
		Status:  req.Status,
		ActorID: mw.UserID(c),
		Reason:  req.Reason,
	})
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, ride)
}

type assignReq struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// Assign is the admin override of Accept.
func (h *RideHandler) Assign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	ride, err := h.engine.ManualAssign(c.Request.Context(), mw.UserID(c), c.Param("id"), req.DriverID)
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, ride)
}

func (h *RideHandler) Stats(c *gin.Context) {
	stats, err := h.engine.GetDashboardStats(c.Request.Context())
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, stats)
}

// nonNil keeps empty lists as [] rather than null in responses.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
