package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/internal/model"
	"github.com/intisalud/hospital-api/pkg/auth"
)

const authTestSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func mintStaffToken(t *testing.T, staffID uuid.UUID, role model.StaffRole) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"staff_id": staffID.String(),
		"email":    "elena.vargas@hospital.test",
		"role":     string(role),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(authTestSecret))
	require.NoError(t, err)
	return token
}

func authTestRouter(roles ...model.StaffRole) (*gin.Engine, *gin.Context) {
	m := NewAuthMiddleware(auth.NewValidator(authTestSecret))

	var captured gin.Context
	r := gin.New()
	handlers := []gin.HandlerFunc{m.Authenticate()}
	if len(roles) > 0 {
		handlers = append(handlers, m.RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		captured = *c.Copy()
		c.Status(http.StatusNoContent)
	})
	r.GET("/protected", handlers...)
	return r, &captured
}

func TestAuthenticateSetsIdentity(t *testing.T) {
	r, captured := authTestRouter()
	staffID := uuid.New()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+mintStaffToken(t, staffID, model.StaffRolePhysician))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, staffID.String(), captured.GetString(ContextStaffID))
	assert.Equal(t, "elena.vargas@hospital.test", captured.GetString(ContextStaffEmail))
	assert.Equal(t, string(model.StaffRolePhysician), captured.GetString(ContextStaffRole))

	parsed, err := StaffID(captured)
	require.NoError(t, err)
	assert.Equal(t, staffID, parsed)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	r, _ := authTestRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	r, _ := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid authorization format")
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	r, _ := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestRequireRoleAllowsListedRoles(t *testing.T) {
	r, _ := authTestRouter(model.StaffRolePhysician, model.StaffRoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+mintStaffToken(t, uuid.New(), model.StaffRolePhysician))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequireRoleRejectsOtherRoles(t *testing.T) {
	r, _ := authTestRouter(model.StaffRoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+mintStaffToken(t, uuid.New(), model.StaffRoleNurse))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient role")
}
