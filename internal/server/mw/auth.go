package mw

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/okadago/backend/internal/domain"
	"github.com/okadago/backend/internal/security"
	"github.com/okadago/backend/internal/server/resp"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// RequireAuth accepts an access token as "Authorization: Bearer <jwt>". Browsers cannot set
// headers on a websocket handshake, so a ?token= query parameter is accepted as well.
func RequireAuth(jwtm *security.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("token"))
		}
		if raw == "" {
			resp.Abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, role, err := jwtm.ParseAccess(raw)
		if err != nil {
			resp.Abort(c, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		c.Set(CtxUserID, userID)
		c.Set(CtxRole, role)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, Role(c)) {
			resp.Abort(c, http.StatusForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(CtxUserID) }

func Role(c *gin.Context) domain.Role {
	role, _ := c.Get(CtxRole)
	r, _ := role.(domain.Role)
	return r
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
