package httpapi

import (
	"net/http"

	"tillpoint.org/internal/auth"
	"tillpoint.org/internal/obs"
	"tillpoint.org/internal/rbac"
)

// requireModule gates a route on the caller's capabilities for one
// catalog module. An empty action derives it from the HTTP verb per
// request. The distinction matters: an unauthenticated caller gets 401,
// an authenticated caller without the capability gets 403.
func (a *API) requireModule(moduleKey string, action rbac.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				obs.AuthFailure("missing")
				writeError(w, r, http.StatusUnauthorized, auth.ErrMissingToken.Message)
				return
			}
			if principal.IsSuperAdmin() {
				next.ServeHTTP(w, r)
				return
			}

			mod, ok := a.catalog.Lookup(moduleKey)
			if !ok {
				// A route bound to a module the catalog does not know is
				// a deployment bug, not a caller mistake.
				obs.Logger().Printf(`{"type":"error","msg":"authorization module not configured","module":%q}`, moduleKey)
				writeError(w, r, http.StatusInternalServerError, "Permission module is not configured")
				return
			}

			act := action
			if act == "" {
				act = rbac.ActionForMethod(r.Method)
			}
			required := mod.Required(act)
			if len(required) == 0 {
				obs.AuthzDenial(moduleKey, string(act))
				writeError(w, r, http.StatusForbidden, "Action is not available for this module")
				return
			}
			if !principal.HasAll(required) {
				obs.AuthzDenial(moduleKey, string(act))
				writeError(w, r, http.StatusForbidden, "Permission denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
