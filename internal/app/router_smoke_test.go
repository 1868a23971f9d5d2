package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// These routes never reach the database when called without a session, so a
// nil *sql.DB is enough to exercise the wiring.
func TestRouterSmokePublicRoutes(t *testing.T) {
	router := NewRouter(Config{
		CSRFEnforced:        false,
		AuthRateLimitPerMin: 60,
	}, nil)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{name: "healthz", method: http.MethodGet, target: "/healthz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, target: "/metrics", wantStatus: http.StatusOK},
		{name: "auth_me_unauthorized", method: http.MethodGet, target: "/api/v1/auth/me", wantStatus: http.StatusUnauthorized},
		{name: "login_invalid_body", method: http.MethodPost, target: "/api/v1/auth/login", wantStatus: http.StatusBadRequest},
		{name: "bootstrap_denied_without_token", method: http.MethodPost, target: "/api/v1/bootstrap/init", body: `{"token":"x","username":"a","full_name":"A","password":"longenough"}`, wantStatus: http.StatusForbidden},
		{name: "submissions_unauthorized", method: http.MethodPost, target: "/api/v1/submissions", wantStatus: http.StatusUnauthorized},
		{name: "reports_unauthorized", method: http.MethodGet, target: "/api/v1/reports/vendors", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body *strings.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, tc.target, body)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.wantStatus {
				t.Fatalf("%s %s: got status %d, want %d", tc.method, tc.target, w.Code, tc.wantStatus)
			}
		})
	}
}
