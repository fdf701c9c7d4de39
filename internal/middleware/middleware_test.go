package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/societyhub/internal/auth"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/models"
)

type stubLoader map[string]models.Principal

func (s stubLoader) LoadPrincipal(_ context.Context, userID string) (models.Principal, error) {
	if userID == "inactive" {
		return models.Principal{}, auth.ErrInactiveUser
	}
	p, ok := s[userID]
	if !ok {
		return models.Principal{}, auth.ErrInvalidToken
	}
	return p, nil
}

func echoPrincipal(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		http.Error(w, "no principal", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(string(p.Role) + ":" + p.ID))
}

func TestAuthenticate(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	loader := stubLoader{"u1": {ID: "u1", Role: models.RoleOwner, SocietyID: "s1"}}
	handler := Authenticate(jwtManager, loader)(http.HandlerFunc(echoPrincipal))

	token := func(id string) string {
		tok, err := jwtManager.Generate(&models.User{ID: id, Role: models.RoleOwner})
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "authorization token required"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "invalid or expired token"},
		{"bad token", "Bearer nope", http.StatusUnauthorized, "invalid or expired token"},
		{"inactive user", "Bearer " + token("inactive"), http.StatusUnauthorized, "account is inactive"},
		{"unknown user", "Bearer " + token("ghost"), http.StatusUnauthorized, "invalid or expired token"},
		{"valid", "Bearer " + token("u1"), http.StatusOK, "owner:u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	m := metrics.New()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	loader := stubLoader{"u1": {ID: "u1", Role: models.RoleTenant}}

	r := chi.NewRouter()
	r.Use(Logging(m))
	r.With(Authenticate(jwtManager, loader)).Get("/v1/bills/{id}", echoPrincipal)

	tok, err := jwtManager.Generate(&models.User{ID: "u1"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/v1/bills/b-42", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	logged := buf.String()
	assert.Contains(t, logged, `"route":"/v1/bills/{id}"`)
	assert.Contains(t, logged, `"user_id":"u1"`)
	assert.Contains(t, logged, `"status":200`)

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(scrape.Body.String(),
		`societyhub_http_request_duration_seconds_count{method="GET",route="/v1/bills/{id}",status="200"} 1`))
}
