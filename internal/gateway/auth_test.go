package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	both := AuthConfig{BearerToken: "my-token", BasicUser: "admin", BasicPass: "pass"}
	tests := []struct {
		name  string
		cfg   AuthConfig
		setup func(r *http.Request)
		want  int
	}{
		{"valid bearer", AuthConfig{BearerToken: "secret"}, func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }, http.StatusOK},
		{"wrong bearer", AuthConfig{BearerToken: "secret"}, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"valid basic", AuthConfig{BasicUser: "admin", BasicPass: "pass"}, func(r *http.Request) { r.SetBasicAuth("admin", "pass") }, http.StatusOK},
		{"wrong basic", AuthConfig{BasicUser: "admin", BasicPass: "pass"}, func(r *http.Request) { r.SetBasicAuth("admin", "wrong") }, http.StatusUnauthorized},
		{"no header", AuthConfig{BearerToken: "secret"}, func(*http.Request) {}, http.StatusUnauthorized},
		{"bearer with both configured", both, func(r *http.Request) { r.Header.Set("Authorization", "Bearer my-token") }, http.StatusOK},
		{"basic with both configured", both, func(r *http.Request) { r.SetBasicAuth("admin", "pass") }, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			authMiddleware(tt.cfg, nil)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  AuthConfig
		want bool
	}{
		{"empty", AuthConfig{}, false},
		{"bearer only", AuthConfig{BearerToken: "tok"}, true},
		{"basic complete", AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{"basic partial user", AuthConfig{BasicUser: "u"}, false},
		{"basic partial pass", AuthConfig{BasicPass: "p"}, false},
	}

	for _, tt := range tests {
		if got := tt.cfg.IsConfigured(); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
