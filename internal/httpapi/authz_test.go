package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tillpoint.org/internal/rbac"
)

// gate builds an authenticated route protected by requireModule, so the
// two gates are exercised exactly as they compose in production.
func gate(env *testEnv, moduleKey string, action rbac.Action) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	return env.api.withAuth(env.api.requireModule(moduleKey, action)(ok))
}

func serve(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(""))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestModuleGateDerivesActionFromVerb(t *testing.T) {
	env := newTestEnv(t)
	// product.read and product.create, but not product.update: view is
	// satisfied, write is not because write demands every slug in its set.
	roleID := env.addRole(t, "clerk", []string{"product.read", "product.create"})
	env.addUser(t, "kate@example.com", "pw123456", roleID)
	bundle := env.login(t, "kate@example.com", "pw123456")

	h := gate(env, "catalog", "")

	if rec := serve(h, http.MethodGet, "/v1/catalog/products", bundle.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("GET: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := serve(h, http.MethodPost, "/v1/catalog/products", bundle.AccessToken); rec.Code != http.StatusForbidden {
		t.Fatalf("POST: expected 403, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec := serve(h, http.MethodDelete, "/v1/catalog/products", bundle.AccessToken); rec.Code != http.StatusForbidden {
		t.Fatalf("DELETE: expected 403, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestModuleGateFullCapability(t *testing.T) {
	env := newTestEnv(t)
	roleID := env.addRole(t, "manager", []string{
		"product.read", "product.create", "product.update", "product.delete",
	})
	env.addUser(t, "kate@example.com", "pw123456", roleID)
	bundle := env.login(t, "kate@example.com", "pw123456")

	h := gate(env, "catalog", "")
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		if rec := serve(h, method, "/v1/catalog/products", bundle.AccessToken); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", method, rec.Code, rec.Body.String())
		}
	}
}

func TestModuleGateUnauthenticatedIs401(t *testing.T) {
	env := newTestEnv(t)
	h := gate(env, "catalog", "")
	rec := serve(h, http.MethodGet, "/v1/catalog/products", "")
	wantMessage(t, rec, http.StatusUnauthorized, "Missing access token")
}

func TestModuleGateSuperAdminBypass(t *testing.T) {
	env := newTestEnv(t)
	// No grants at all; the role slug alone opens every gate.
	roleID := env.addRole(t, "super_admin", nil)
	env.addUser(t, "root@example.com", "pw123456", roleID)
	bundle := env.login(t, "root@example.com", "pw123456")

	h := gate(env, "catalog", "")
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		if rec := serve(h, method, "/v1/catalog/products", bundle.AccessToken); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected bypass, got %d (%s)", method, rec.Code, rec.Body.String())
		}
	}
}

func TestModuleGateUnknownModuleIs500(t *testing.T) {
	env := newTestEnv(t)
	roleID := env.addRole(t, "clerk", []string{"product.read"})
	env.addUser(t, "kate@example.com", "pw123456", roleID)
	bundle := env.login(t, "kate@example.com", "pw123456")

	h := gate(env, "warehouse_robots", "")
	rec := serve(h, http.MethodGet, "/v1/robots", bundle.AccessToken)
	wantMessage(t, rec, http.StatusInternalServerError, "Permission module is not configured")
}

func TestModuleGateEmptyActionSetNeverSatisfiable(t *testing.T) {
	env := newTestEnv(t)
	// reports defines no write or delete set; even a caller holding every
	// report slug is refused.
	roleID := env.addRole(t, "analyst", []string{"report.read"})
	env.addUser(t, "kate@example.com", "pw123456", roleID)
	bundle := env.login(t, "kate@example.com", "pw123456")

	h := gate(env, "reports", "")
	if rec := serve(h, http.MethodGet, "/v1/reports", bundle.AccessToken); rec.Code != http.StatusOK {
		t.Fatalf("GET: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec := serve(h, http.MethodDelete, "/v1/reports", bundle.AccessToken)
	wantMessage(t, rec, http.StatusForbidden, "Action is not available for this module")
}

func TestRoleMatrixRequiresUserManagement(t *testing.T) {
	env := newTestEnv(t)
	clerkRole := env.addRole(t, "clerk", []string{"product.read"})
	env.addUser(t, "kate@example.com", "pw123456", clerkRole)
	bundle := env.login(t, "kate@example.com", "pw123456")

	rec := env.do(t, http.MethodGet, "/v1/roles/"+clerkRole+"/matrix", bundle.AccessToken, "")
	wantMessage(t, rec, http.StatusForbidden, "Permission denied")
}

func TestRoleMatrixRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	adminRole := env.addRole(t, "admin", []string{"user.read", "role.read", "user.create", "user.update", "role.create", "role.update"})
	env.addUser(t, "admin@example.com", "pw123456", adminRole)
	clerkRole := env.addRole(t, "clerk", nil)
	bundle := env.login(t, "admin@example.com", "pw123456")

	// delete=true cascades down to write and view for the module.
	body := `{"entries":[{"module":"catalog","delete":true},{"module":"ghost_module","view":true}]}`
	rec := env.do(t, http.MethodPut, "/v1/roles/"+clerkRole+"/matrix", bundle.AccessToken, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp roleMatrixResponse
	decodeBody(t, rec, &resp)
	want := []string{"product.create", "product.delete", "product.read", "product.update"}
	if len(resp.Slugs) != len(want) {
		t.Fatalf("expected slugs %v, got %v", want, resp.Slugs)
	}
	for i, slug := range want {
		if resp.Slugs[i] != slug {
			t.Fatalf("expected slugs %v, got %v", want, resp.Slugs)
		}
	}

	rec = env.do(t, http.MethodGet, "/v1/roles/"+clerkRole+"/matrix", bundle.AccessToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &resp)
	for _, m := range resp.Modules {
		if m.Key == "catalog" {
			if !m.Capabilities.View || !m.Capabilities.Write || !m.Capabilities.Delete {
				t.Fatalf("expected full catalog capabilities, got %+v", m.Capabilities)
			}
		}
	}
}

func TestRoleMatrixSuperAdminRoleImmutable(t *testing.T) {
	env := newTestEnv(t)
	adminRole := env.addRole(t, "admin", []string{"user.read", "role.read", "user.create", "user.update", "role.create", "role.update"})
	env.addUser(t, "admin@example.com", "pw123456", adminRole)
	rootRole := env.addRole(t, "super_admin", nil)
	bundle := env.login(t, "admin@example.com", "pw123456")

	body := `{"entries":[{"module":"catalog","view":true}]}`
	rec := env.do(t, http.MethodPut, "/v1/roles/"+rootRole+"/matrix", bundle.AccessToken, body)
	wantMessage(t, rec, http.StatusForbidden, "The super admin role cannot be edited")
}

func TestRoleMatrixUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	adminRole := env.addRole(t, "admin", []string{"user.read", "role.read", "user.create", "user.update", "role.create", "role.update"})
	env.addUser(t, "admin@example.com", "pw123456", adminRole)
	bundle := env.login(t, "admin@example.com", "pw123456")

	rec := env.do(t, http.MethodGet, "/v1/roles/nope/matrix", bundle.AccessToken, "")
	wantMessage(t, rec, http.StatusNotFound, "Role not found")
}
