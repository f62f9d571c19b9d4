package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tillpoint.org/internal/audit"
	"tillpoint.org/internal/auth"
	"tillpoint.org/internal/rbac"
)

func (a *API) handlePermissionDefinitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"permissions": a.catalog.Definitions(),
	})
}

// handleModuleSummaries renders the full catalog with the caller's
// capability triple per module, which is what the back-office UI draws
// its navigation from.
func (a *API) handleModuleSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, auth.ErrMissingToken.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"modules": rbac.Summarize(a.catalog, principal.Permissions),
	})
}

type roleMatrixResponse struct {
	RoleID  string               `json:"role_id"`
	Slugs   []string             `json:"permissions"`
	Modules []rbac.ModuleSummary `json:"modules"`
}

type roleMatrixRequest struct {
	Entries []rbac.MatrixEntry `json:"entries"`
}

// handleRoleMatrix serves /v1/roles/{id}/matrix: GET renders the role's
// current matrix, PUT replaces the role's grants with the slugs the
// submitted matrix implies.
func (a *API) handleRoleMatrix(w http.ResponseWriter, r *http.Request) {
	roleID, ok := roleMatrixPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	role, err := a.directory.FindRole(r.Context(), roleID)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "Role not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.renderRoleMatrix(w, r, role)
	case http.MethodPut:
		a.replaceRoleMatrix(w, r, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) renderRoleMatrix(w http.ResponseWriter, r *http.Request, role *auth.Role) {
	slugs, err := a.directory.RolePermissions(r.Context(), role.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	owned := rbac.NewSlugSet(slugs)
	writeJSON(w, http.StatusOK, roleMatrixResponse{
		RoleID:  role.ID,
		Slugs:   slugs,
		Modules: rbac.Summarize(a.catalog, owned),
	})
}

func (a *API) replaceRoleMatrix(w http.ResponseWriter, r *http.Request, role *auth.Role) {
	if role.Slug == rbac.RoleSuperAdmin {
		writeError(w, r, http.StatusForbidden, "The super admin role cannot be edited")
		return
	}
	var req roleMatrixRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	slugs := rbac.SlugsFromMatrix(a.catalog, req.Entries)
	if err := a.directory.SetRolePermissions(r.Context(), role.ID, slugs); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	_ = audit.LogEvent(r.Context(), "rbac.matrix_updated", map[string]any{
		"role_id":     role.ID,
		"role_slug":   role.Slug,
		"permissions": len(slugs),
	})
	writeJSON(w, http.StatusOK, roleMatrixResponse{
		RoleID:  role.ID,
		Slugs:   slugs,
		Modules: rbac.Summarize(a.catalog, rbac.NewSlugSet(slugs)),
	})
}

// roleMatrixPath extracts the role id from /v1/roles/{id}/matrix.
func roleMatrixPath(path string) (string, bool) {
	rest, ok := strings.CutPrefix(path, "/v1/roles/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/matrix")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
