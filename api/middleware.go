package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"shipbooking/internal/identity"
)

const ctxIdentityKey = "identity"

type IdentityProvider interface {
	Verify(token string) (*identity.Identity, error)
}

type QuotaGate interface {
	Allow(ctx context.Context, userID int64) (allowed bool, remaining int64, err error)
}

func RequireIdentity(provider IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
			return
		}

		ident, err := provider.Verify(strings.TrimSpace(header[len("Bearer "):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ctxIdentityKey, ident)
		c.Next()
	}
}

// CheckQuota gates booking creation. The decision is consumed as-is;
// BookingService never re-checks it.
func CheckQuota(gate QuotaGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if gate == nil {
			c.Next()
			return
		}

		ident, ok := callerIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
			return
		}

		allowed, remaining, err := gate.Allow(c.Request.Context(), ident.UserID)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", ident.UserID).Msg("quota check failed")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "quota check unavailable, please retry"})
			return
		}
		c.Header("X-Quota-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "monthly booking quota exhausted"})
			return
		}
		c.Next()
	}
}

func callerIdentity(c *gin.Context) (*identity.Identity, bool) {
	v, exists := c.Get(ctxIdentityKey)
	if !exists {
		return nil, false
	}
	ident, ok := v.(*identity.Identity)
	return ident, ok
}
