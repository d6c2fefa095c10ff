// Package httpapi is the HTTP layer over the signed-link service: link
// issuance for authenticated owners, token-validated download resolution,
// and the usual health/metrics plumbing.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/auth"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/obs"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/store/pg"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/token"
)

// DocumentStore is the slice of the document store the link endpoints need.
type DocumentStore interface {
	GetDocument(ctx context.Context, id int64) (pg.Document, error)
}

// ReadyProbe checks readiness (e.g. a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the collaborators the API composes.
type Config struct {
	Links     *token.Service
	Sessions  *auth.Service
	Documents DocumentStore
	Ready     ReadyProbe
	Version   string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	links      *token.Service
	sessions   *auth.Service
	docs       DocumentStore
	readyProbe ReadyProbe
	version    string
}

// New wires routes onto a fresh mux.
func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		links:      cfg.Links,
		sessions:   cfg.Sessions,
		docs:       cfg.Documents,
		readyProbe: cfg.Ready,
		version:    cfg.Version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	a.mux.HandleFunc("POST /v1/documents/{id}/link", a.IssueLink)
	a.mux.HandleFunc("GET /v1/download", a.Download)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the mux wrapped with authentication, request IDs,
// logging, security headers and metrics.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = RequestID(h)
	h = Logging(h)
	h = SecurityHeaders(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "benefits-navigator-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "benefits-navigator-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}
