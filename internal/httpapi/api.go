package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"tillpoint.org/internal/auth"
	"tillpoint.org/internal/obs"
	"tillpoint.org/internal/rbac"
)

const serviceName = "tillpoint-api"

// ReadyProbe is a simple readiness check (pings the DB when present).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the collaborators and tunables the API needs.
type Options struct {
	Auth      *auth.Service
	Directory auth.Directory
	Catalog   *rbac.Catalog
	Ready     ReadyProbe
	Version   string

	LoginRatePerSecond int
	LoginRateBurst     int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	directory  auth.Directory
	catalog    *rbac.Catalog
	readyProbe ReadyProbe
	version    string
}

// New wires all routes. Authorization is attached per route; the
// authentication gate wraps the whole mux in Handler.
func New(opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       opts.Auth,
		directory:  opts.Directory,
		catalog:    opts.Catalog,
		readyProbe: opts.Ready,
		version:    opts.Version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	perSecond, burst := opts.LoginRatePerSecond, opts.LoginRateBurst
	if perSecond <= 0 {
		perSecond = 2
	}
	if burst <= 0 {
		burst = 5
	}
	a.mux.Handle("/v1/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), burst, perSecond))
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	userMgmt := "user_management"
	a.mux.Handle("/v1/permissions",
		a.requireModule(userMgmt, "view")(http.HandlerFunc(a.handlePermissionDefinitions)))
	a.mux.Handle("/v1/permissions/modules",
		a.requireModule(userMgmt, "view")(http.HandlerFunc(a.handleModuleSummaries)))
	// Action derived from the HTTP verb: GET reads the matrix, PUT
	// rewrites it.
	a.mux.Handle("/v1/roles/",
		a.requireModule(userMgmt, "")(http.HandlerFunc(a.handleRoleMatrix)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = RequestID(h)
	h = SecurityHeaders(h)
	h = MaxBodyBytes(h, 1<<20)
	h = Logging(h)
	return h
}

// --- Probes ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
