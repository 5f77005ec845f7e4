package api

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/zap"

	"github.com/civicreport/civic-report-api/models"
)

// Objects and actions checked by the permission table
const (
	ObjReport      = "report"
	ObjDashboard   = "dashboard"
	ObjVillage     = "village"
	ObjEvent       = "event"
	ObjFeedback    = "feedback"
	ObjLeaderboard = "leaderboard"

	ActCreate       = "create"
	ActRead         = "read"
	ActReadAll      = "read-all"
	ActAssign       = "assign"
	ActUpdateStatus = "update-status"
	ActUpdate       = "update"
	ActCitizen      = "citizen"
	ActWorker       = "worker"
	ActDepartment   = "department"
	ActDistrict     = "district"
	ActState        = "state"
)

// ErrForbidden is returned when a role may not perform an action
var ErrForbidden = errors.New("forbidden")

// Permission is one row of the role permission table
type Permission struct {
	Role   string
	Object string
	Action string
}

var everyone = []string{
	models.RoleCitizen,
	models.RoleWorker,
	models.RoleDepartmentAdmin,
	models.RoleDistrictAdmin,
	models.RoleStateAdmin,
	models.RoleVillageAdmin,
}

var admins = []string{
	models.RoleDepartmentAdmin,
	models.RoleDistrictAdmin,
	models.RoleStateAdmin,
	models.RoleVillageAdmin,
}

// PermissionTable lists every role/object/action the API allows. Roles are flat:
// a state-admin holds exactly the rows listed for it.
var PermissionTable = buildPermissionTable()

func buildPermissionTable() []Permission {
	var table []Permission
	grant := func(obj, act string, roles ...string) {
		for _, r := range roles {
			table = append(table, Permission{Role: r, Object: obj, Action: act})
		}
	}

	grant(ObjReport, ActCreate, models.RoleCitizen, models.RoleVillageAdmin, models.RoleWorker)
	grant(ObjReport, ActRead, everyone...)
	grant(ObjReport, ActReadAll, admins...)
	grant(ObjReport, ActAssign, models.RoleDepartmentAdmin, models.RoleStateAdmin)
	grant(ObjReport, ActUpdateStatus, models.RoleWorker, models.RoleDepartmentAdmin, models.RoleStateAdmin)

	grant(ObjDashboard, ActCitizen, models.RoleCitizen, models.RoleVillageAdmin)
	grant(ObjDashboard, ActWorker, models.RoleWorker)
	grant(ObjDashboard, ActDepartment, models.RoleDepartmentAdmin)
	grant(ObjDashboard, ActDistrict, models.RoleDistrictAdmin)
	grant(ObjDashboard, ActState, models.RoleStateAdmin)

	grant(ObjVillage, ActRead, everyone...)
	grant(ObjVillage, ActUpdate, models.RoleVillageAdmin, models.RoleStateAdmin)
	grant(ObjVillage, ActCreate, models.RoleStateAdmin)

	grant(ObjEvent, ActRead, everyone...)
	grant(ObjEvent, ActCreate, models.RoleVillageAdmin, models.RoleDistrictAdmin, models.RoleStateAdmin)

	grant(ObjFeedback, ActCreate, everyone...)
	grant(ObjFeedback, ActReadAll, admins...)

	grant(ObjLeaderboard, ActRead, everyone...)
	return table
}

const permissionModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

var (
	enforcer     *casbin.Enforcer
	enforcerOnce sync.Once
	enforcerErr  error
)

// NewEnforcer loads a permission table into a casbin enforcer
func NewEnforcer(table []Permission) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(permissionModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse permission model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	rules := make([][]string, 0, len(table))
	for _, p := range table {
		rules = append(rules, []string{p.Role, p.Object, p.Action})
	}
	if _, err := e.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("failed to load permission table: %w", err)
	}
	return e, nil
}

func permissionEnforcer() (*casbin.Enforcer, error) {
	enforcerOnce.Do(func() {
		enforcer, enforcerErr = NewEnforcer(PermissionTable)
	})
	return enforcer, enforcerErr
}

// Authorize returns ErrForbidden unless role may perform act on obj
func Authorize(role, obj, act string) error {
	e, err := permissionEnforcer()
	if err != nil {
		return err
	}
	allowed, err := e.Enforce(role, obj, act)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s may not %s %s", ErrForbidden, role, act, obj)
	}
	return nil
}

// RequirePermission rejects callers whose role may not perform act on obj.
// It must run after the Authenticator middleware.
func RequirePermission(obj, act string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "unauthorized"}`))
				return
			}
			if err := Authorize(p.Role, obj, act); err != nil {
				if !errors.Is(err, ErrForbidden) {
					zap.S().Errorw("permission check failed", "error", err)
				}
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
