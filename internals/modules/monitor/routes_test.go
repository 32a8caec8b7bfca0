package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	middle "sentinel/internals/middleware"
)

// denyAll stands in for the auth middleware and rejects everything, so a
// handler that still runs must be on an unguarded route.
func denyAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

func TestOnlyMutatingRoutesRequireAuth(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc, validator.New())
	router := Routes(h, middle.Middleware(denyAll))

	m, err := svc.CreateMonitor(context.Background(), httpCmd("api"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	guarded := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/"},
		{http.MethodPut, "/" + m.ID.String()},
		{http.MethodPatch, "/" + m.ID.String()},
		{http.MethodDelete, "/" + m.ID.String()},
	}
	for _, tc := range guarded {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`)))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401 without a token", tc.method, tc.path, rec.Code)
		}
	}

	open := []string{
		"/",
		"/" + m.ID.String(),
		"/" + m.ID.String() + "/status",
		"/" + m.ID.String() + "/history",
		"/" + m.ID.String() + "/stats",
	}
	for _, path := range open {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code == http.StatusUnauthorized {
			t.Errorf("GET %s = 401, read routes must not require a token", path)
		}
	}
}
