package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/config"
	"github.com/okadago/backend/internal/dispatch"
	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/events"
	"github.com/okadago/backend/internal/fare"
	"github.com/okadago/backend/internal/registry"
	"github.com/okadago/backend/internal/security"
	"github.com/okadago/backend/internal/server/handlers"
	"github.com/okadago/backend/internal/server/mw"
	"github.com/okadago/backend/internal/server/swaggerui"
	"github.com/okadago/backend/internal/settings"
)

// Deps are the services behind the HTTP API. Redis is optional; without it there is no
// rate limiting.
type Deps struct {
	Registry *registry.Registry
	Engine   *dispatch.Engine
	Settings settings.Admin
	Fares    *fare.Calculator
	JWT      *security.JWTManager
	Hub      *events.Hub
	Redis    *redis.Client
}

func NewRouter(cfg config.Config, deps Deps, logger *zap.Logger) http.Handler {
	if cfg.App.Local() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		logger.Warn("invalid trusted proxies, trusting none", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(mw.RequestID())
	r.Use(mw.Recovery(logger))
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.SecurityHeaders())
	r.Use(cors.New(corsConfig(cfg.App.CORSOrigins)))
	r.Use(mw.ClientIP())
	if deps.Redis != nil && cfg.Security.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(deps.Redis, cfg.Security.RateLimitRPS, logger))
	}

	r.GET("/health", handlers.Health)
	swaggerui.Register(r)

	authH := handlers.NewAuthHandler(logger, deps.Registry)
	rideH := handlers.NewRideHandler(logger, deps.Engine)
	accountH := handlers.NewAccountHandler(logger, deps.Registry, deps.Engine)
	adminH := handlers.NewAdminHandler(logger, deps.Registry, deps.Settings)
	fareH := handlers.NewFareHandler(logger, deps.Fares)

	v1 := r.Group("/v1")
	v1.GET("/status-codes", handlers.ErrorKinds)
	v1.POST("/auth/signup", authH.Signup)
	v1.POST("/auth/login", authH.Login)
	v1.POST("/auth/refresh", authH.Refresh)
	v1.GET("/fares/quote", fareH.Quote)

	authed := v1.Group("")
	authed.Use(mw.RequireAuth(deps.JWT))
	authed.POST("/auth/logout", authH.Logout)
	authed.GET("/me", accountH.Me)
	authed.GET("/me/activity", accountH.MyActivity)
	authed.POST("/rides", rideH.Create)
	authed.GET("/rides/active", rideH.Active)
	authed.POST("/rides/:id/status", rideH.Advance)
	authed.POST("/wallet/fund", accountH.Fund)
	if deps.Hub != nil {
		wsH := handlers.NewWSHandler(logger, deps.Hub, cfg.App.CORSOrigins)
		authed.GET("/ws", wsH.Subscribe)
	}

	driver := authed.Group("")
	driver.Use(mw.RequireRole(domain.RoleDriver))
	driver.GET("/rides/offers", rideH.Offers)
	driver.POST("/rides/:id/accept", rideH.Accept)
	driver.POST("/rides/:id/reject", rideH.Reject)
	driver.PUT("/drivers/me/online", accountH.SetOnline)
	driver.POST("/wallet/withdraw", accountH.Withdraw)

	admin := authed.Group("/admin")
	admin.Use(mw.RequireRole(domain.RoleAdmin, domain.RoleStaff))
	admin.POST("/drivers", adminH.RecruitDriver)
	admin.GET("/drivers/online", adminH.OnlineDrivers)
	admin.POST("/rides/:id/assign", rideH.Assign)
	admin.PATCH("/users/:id/status", adminH.UpdateUserStatus)
	admin.GET("/users/:id/activity", accountH.UserActivity)
	admin.GET("/stats", rideH.Stats)

	settingsG := admin.Group("/settings")
	settingsG.Use(mw.RequireRole(domain.RoleAdmin))
	settingsG.GET("/pricing", adminH.GetPricing)
	settingsG.PUT("/pricing", adminH.PutPricing)
	settingsG.PUT("/maintenance", adminH.SetMaintenance)
	settingsG.POST("/blocked-ips/:ip", adminH.BlockIP)
	settingsG.DELETE("/blocked-ips/:ip", adminH.UnblockIP)

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", mw.HeaderRequestID},
		ExposeHeaders: []string{mw.HeaderRequestID},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
