package httpapi

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"tillpoint.org/internal/audit"
	"tillpoint.org/internal/auth"
	"tillpoint.org/internal/rbac"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name"`
}

type loginResponse struct {
	auth.TokenBundle
	User *auth.User `json:"user"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	bundle, user, err := a.auth.Login(r.Context(), req.Email, req.Password, req.DeviceName)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			_ = audit.LogEvent(r.Context(), "auth.login_failed", map[string]any{
				"email": strings.TrimSpace(strings.ToLower(req.Email)),
			})
			writeError(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": user.ID,
		"device":  strings.TrimSpace(req.DeviceName),
	})
	writeJSON(w, http.StatusOK, loginResponse{TokenBundle: bundle, User: user})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	bundle, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		var ae *auth.AuthError
		if errors.As(err, &ae) {
			writeError(w, r, http.StatusUnauthorized, ae.Message)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"token_id": bundle.TokenID,
	})
	writeJSON(w, http.StatusOK, bundle)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok || principal.Session == nil {
		writeError(w, r, http.StatusUnauthorized, auth.ErrMissingToken.Message)
		return
	}
	if err := a.auth.Revoke(r.Context(), principal.Session); err != nil {
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"session_id": principal.Session.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

type meResponse struct {
	User        *auth.User           `json:"user"`
	Role        *auth.Role           `json:"role,omitempty"`
	Permissions []string             `json:"permissions"`
	Modules     []rbac.ModuleSummary `json:"modules"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, auth.ErrMissingToken.Message)
		return
	}

	slugs := make([]string, 0, len(principal.Permissions))
	for slug := range principal.Permissions {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	writeJSON(w, http.StatusOK, meResponse{
		User:        principal.User,
		Role:        principal.Role,
		Permissions: slugs,
		Modules:     rbac.Summarize(a.catalog, principal.Permissions),
	})
}
