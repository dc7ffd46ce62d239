package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/lettingworks/tenancy-admin/internal/auth"
)

const (
	staffClaimsKey = "staffClaims"
	stdClaimsKey   = "stdClaims"
)

// Auth validates staff bearer tokens on admin routes.
type Auth struct {
	Verifier *auth.Verifier
}

// RequireStaff ensures the request carries a valid staff token.
func (m *Auth) RequireStaff(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": "Authorization header required."})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": "Bearer token required."})
		return
	}

	claims, staff, err := m.Verifier.Verify(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": "Invalid access token."})
		return
	}

	c.Set(stdClaimsKey, claims)
	c.Set(staffClaimsKey, staff)
	c.Next()
}

// GetStaffClaims exposes the staff identity to handlers and middleware.
func GetStaffClaims(c *gin.Context) (*auth.StaffClaims, bool) {
	value, ok := c.Get(staffClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*auth.StaffClaims)
	return claims, ok
}

// GetStdClaims returns the standard JWT claims set.
func GetStdClaims(c *gin.Context) (*gojwt.Claims, bool) {
	value, ok := c.Get(stdClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*gojwt.Claims)
	return claims, ok
}
