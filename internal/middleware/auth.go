package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/pkg/auth"
)

const (
	ContextStaffID    = "staff_id"
	ContextStaffEmail = "staff_email"
	ContextStaffRole  = "staff_role"
)

type AuthMiddleware struct {
	validator *auth.Validator
}

func NewAuthMiddleware(validator *auth.Validator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the bearer token and sets the staff identity in the
// request context. Every mutating operation downstream reads the actor from
// these keys.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "missing authorization header",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid authorization format",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		claims, err := m.validator.Validate(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid token",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		c.Set(ContextStaffID, claims.StaffID.String())
		c.Set(ContextStaffEmail, claims.Email)
		c.Set(ContextStaffRole, string(claims.Role))
		c.Next()
	}
}

// RequireRole restricts a route group to the given staff roles.
func (m *AuthMiddleware) RequireRole(roles ...model.StaffRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actual := model.StaffRole(c.GetString(ContextStaffRole))
		for _, role := range roles {
			if actual == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
			Code:    http.StatusForbidden,
			Message: "insufficient role",
			TraceID: c.GetString(ContextRequestID),
		})
	}
}

// StaffID returns the authenticated staff id set by Authenticate.
func StaffID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.GetString(ContextStaffID))
}
