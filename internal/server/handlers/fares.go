package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/dispatch"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/fare"
	"github.com/okadago/backend/internal/server/resp"
)

type FareHandler struct {
	logger *zap.Logger
	fares  *fare.Calculator
}

func NewFareHandler(logger *zap.Logger, fares *fare.Calculator) *FareHandler {
	return &FareHandler{logger: logger, fares: fares}
}

type quoteReq struct {
	Type         domain.RideType    `form:"type"`
	VehicleType  domain.VehicleType `form:"vehicle_type"`
	DistanceKm   float64            `form:"distance_km"`
	ParcelWeight string             `form:"parcel_weight"`
	Interstate   bool               `form:"interstate"`
}

// Quote prices a trip without booking it. RIDE quotes use the vehicle tariff; LOGISTICS
// quotes use the parcel tariff on the estimated weight.
func (h *FareHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindQuery(&req); err != nil {
		resp.Error(c, http.StatusBadRequest, "invalid query")
		return
	}
	if req.Type == "" {
		req.Type = domain.RideTypeRide
	}

	var (
		price float64
		err   error
	)
	switch req.Type {
	case domain.RideTypeRide:
		if !req.VehicleType.Valid() {
			resp.Error(c, http.StatusBadRequest, "vehicle_type must be OKADA, KEKE, MINIBUS or TRUCK")
			return
		}
		price, err = h.fares.CalculateFare(c.Request.Context(), req.VehicleType, req.DistanceKm)
	case domain.RideTypeLogistics:
		weight := dispatch.EstimateWeightKg(req.Type, req.ParcelWeight)
		price, err = h.fares.QuoteLogistics(c.Request.Context(), weight, req.DistanceKm, req.Interstate)
	default:
		resp.Error(c, http.StatusBadRequest, "type must be RIDE or LOGISTICS")
		return
	}
	if err != nil {
		resp.FromError(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{
		"type":        req.Type,
		"distance_km": req.DistanceKm,
		"price":       price,
		"currency":    "NGN",
		"formatted":   "₦" + strconv.FormatFloat(price, 'f', 0, 64),
	})
}
