// Package httpapi exposes the society services as a JSON API over chi.
// Handlers decode the request, call one service method with the principal
// from the context and encode the result.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/auth"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/middleware"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the handlers' collaborators.
type Services struct {
	Auth      *service.AuthService
	Societies *service.SocietyService
	Tenancy   *service.TenancyService
	Notices   *service.NoticeService
	Bills     *service.BillService
}

// Server holds the HTTP handlers.
type Server struct {
	svc            Services
	jwtManager     *auth.JWTManager
	metrics        *metrics.Metrics
	health         Pinger
	maxUploadBytes int64
}

// New creates a Server. health may be nil.
func New(svc Services, jwtManager *auth.JWTManager, m *metrics.Metrics, health Pinger, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Server{svc: svc, jwtManager: jwtManager, metrics: m, health: health, maxUploadBytes: maxUploadBytes}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(s.metrics))

	r.Get("/healthz", s.healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.jwtManager, s.svc.Auth))

			r.Get("/me", s.me)

			r.Post("/societies", s.createSociety)
			r.Get("/societies", s.listSocieties)
			r.Post("/societies/{id}/admins", s.addAdmin)

			r.Post("/members", s.createMember)
			r.Get("/users", s.listUsers)

			r.Post("/buildings", s.createBuilding)
			r.Get("/buildings", s.listBuildings)

			r.Post("/flats", s.createFlat)
			r.Get("/flats", s.listFlats)
			r.Get("/flats/{id}/agreements", s.listAgreements)
			r.Get("/flats/{id}/tenant", s.currentTenant)

			r.Post("/tenants", s.createTenant)
			r.Patch("/tenants/{id}", s.updateTenant)
			r.Put("/tenants/{id}/status", s.setTenantStatus)

			r.Post("/agreements", s.createAgreement)

			r.Post("/documents", s.uploadDocument)
			r.Get("/documents", s.listDocuments)

			r.Get("/notices", s.listNotices)
			r.Post("/notices", s.createNotice)
			r.Get("/notices/count", s.countNotices)
			r.Post("/notices/{id}/read", s.markNoticeRead)
			r.Delete("/notices/{id}", s.deleteNotice)

			r.Post("/bills", s.createBill)
			r.Get("/bills", s.listBills)
			r.Post("/bills/shared", s.raiseShared)
			r.Post("/bills/{id}/pay", s.markPaid)
			r.Post("/bills/{id}/verify", s.verifyPayment)
			r.Put("/bills/{id}/status", s.advanceComplaint)
			r.Get("/bills/{id}/events", s.billEvents)

			r.Get("/dues", s.dues)
			r.Get("/audit", s.listAudit)
		})
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			slog.Error("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// principal returns the authenticated principal. Routes are mounted behind
// middleware.Authenticate, so it is always present.
func principal(r *http.Request) models.Principal {
	p, _ := middleware.PrincipalFrom(r.Context())
	return p
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Invalid("malformed request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps err onto a status code. Internal errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInactiveUser):
		status = http.StatusUnauthorized
	default:
		status = apperr.Status(err)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = apperr.Public(err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
