package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carecoord/carecoord/internal/auth"
)

func TestCarePlanMutationsAreCaregiverOnly(t *testing.T) {
	enf, err := InitCasbinEnforcer()
	require.NoError(t, err)

	cases := []struct {
		role    string
		obj     string
		act     string
		allowed bool
	}{
		{auth.RoleCaregiver, "/api/medications", "POST", true},
		{auth.RolePatient, "/api/medications", "POST", false},
		{auth.RoleCaregiver, "/api/medications/:id", "PUT", true},
		{auth.RolePatient, "/api/medications/:id", "PUT", false},
		{auth.RolePatient, "/api/medications/:id", "DELETE", false},
		{auth.RoleCaregiver, "/api/tasks", "POST", true},
		{auth.RolePatient, "/api/tasks", "POST", false},
		{auth.RolePatient, "/api/tasks/:id", "DELETE", false},
		{auth.RoleCaregiver, "/api/notifications/medication/:id", "POST", true},
		{auth.RolePatient, "/api/notifications/medication/:id", "POST", false},
		{auth.RolePatient, "/api/notifications/task/:id", "POST", false},
		{auth.RolePatient, "/api/notifications/:id", "DELETE", false},
		{auth.RoleCaregiver, "/api/patients/link", "POST", true},
		{auth.RolePatient, "/api/patients/link", "POST", false},
		{auth.RolePatient, "/api/games/stats", "POST", true},
		{auth.RoleCaregiver, "/api/games/stats", "POST", false},
	}
	for _, tc := range cases {
		allowed, err := enf.Enforce(tc.role, tc.obj, tc.act)
		require.NoError(t, err)
		assert.Equal(t, tc.allowed, allowed, "%s %s %s", tc.role, tc.act, tc.obj)
	}
}

func TestRoleMiddlewareBlocksPatientFromCreatingMedications(t *testing.T) {
	e := echo.New()
	handler := RoleMiddleware(func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	})

	invoke := func(role string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/medications", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/medications")
		c.Set("user", &auth.JWTClaims{Role: role})
		require.NoError(t, handler(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, invoke(auth.RoleCaregiver))
	assert.Equal(t, http.StatusForbidden, invoke(auth.RolePatient))
}

func TestRoleMiddlewareRequiresClaims(t *testing.T) {
	e := echo.New()
	handler := RoleMiddleware(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/medications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/medications")

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
