package mw

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/okadago/backend/internal/activity"
	"github.com/okadago/backend/internal/server/resp"
)

const CtxRequestID = "request_id"

// RequestID keeps a valid incoming X-Request-ID and generates one otherwise.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if id, err := uuid.Parse(rid); err == nil {
			rid = id.String()
		} else {
			rid = uuid.Must(uuid.NewV7()).String()
		}
		c.Set(CtxRequestID, rid)
		c.Header(HeaderRequestID, rid)
		c.Next()
	}
}

// ClientIP stores the caller's address in the request context, where activity records
// and the IP blocklist read it.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(activity.WithIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}

const (
	rateLimitKeyPrefix = "ratelimit:"
	rateLimitWindow    = time.Second
)

// RateLimit caps requests per second per client IP with a Redis counter shared by every
// instance. Requests over the cap get 429; when Redis is unreachable requests pass.
func RateLimit(rdb *redis.Client, limitPerSec int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKeyPrefix + c.ClientIP()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := rdb.Expire(ctx, key, rateLimitWindow).Err(); err != nil {
				logger.Warn("rate limit expire", zap.String("key", key), zap.Error(err))
			}
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limitPerSec))
		if count > int64(limitPerSec) {
			// Счётчик без TTL (упал EXPIRE) иначе блокировал бы IP навсегда.
			if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl < 0 {
				rdb.Expire(ctx, key, rateLimitWindow)
			}
			c.Header("Retry-After", "1")
			resp.Abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func abortInternal(c *gin.Context) {
	resp.Abort(c, http.StatusInternalServerError, "internal server error")
}
