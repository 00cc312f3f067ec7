package middleware

import (
	"net/http"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/util"
	"github.com/labstack/echo/v4"

	"github.com/carecoord/carecoord/internal/auth"
)

var (
	enforcer     *casbin.Enforcer
	enforcerOnce sync.Once
)

const rbacModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act`

// InitCasbinEnforcer builds the Casbin enforcer singleton with the model and
// policies defined in code. Objects are Echo route patterns, matched with
// keyMatch2. Routes without a matching policy are open to any authenticated
// user.
func InitCasbinEnforcer() (*casbin.Enforcer, error) {
	var err error
	enforcerOnce.Do(func() {
		m, errM := model.NewModelFromString(rbacModel)
		if errM != nil {
			err = errM
			return
		}
		enforcer, err = casbin.NewEnforcer(m)
		if err != nil {
			return
		}
		enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

		// Caregiver-only: linking patients to their account.
		enforcer.AddPolicy("caregiver", "/api/patients/link", "POST")
		enforcer.AddPolicy("caregiver", "/api/patients", "GET")
		// Caregiver-only: managing the care plan. Patients read, mark doses
		// and complete tasks; only caregivers create, edit or remove entries.
		enforcer.AddPolicy("caregiver", "/api/medications", "POST")
		enforcer.AddPolicy("caregiver", "/api/medications/:id", "PUT")
		enforcer.AddPolicy("caregiver", "/api/medications/:id", "DELETE")
		enforcer.AddPolicy("caregiver", "/api/tasks", "POST")
		enforcer.AddPolicy("caregiver", "/api/tasks/:id", "PUT")
		enforcer.AddPolicy("caregiver", "/api/tasks/:id", "DELETE")
		enforcer.AddPolicy("caregiver", "/api/notifications/medication/:id", "POST")
		enforcer.AddPolicy("caregiver", "/api/notifications/task/:id", "POST")
		enforcer.AddPolicy("caregiver", "/api/notifications/:id", "DELETE")
		// Patient-only: recording their own game sessions.
		enforcer.AddPolicy("patient", "/api/games/stats", "POST")
	})
	return enforcer, err
}

// RoleMiddleware gates a route on the Casbin policies above. Apply it only to
// role-restricted routes.
func RoleMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get("user").(*auth.JWTClaims)
		if !ok || claims == nil {
			return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Missing user claims"})
		}
		enf, err := InitCasbinEnforcer()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "RBAC system error"})
		}
		allowed, err := enf.Enforce(claims.Role, c.Path(), c.Request().Method)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "RBAC system error"})
		}
		if !allowed {
			return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Insufficient permissions"})
		}
		return next(c)
	}
}
