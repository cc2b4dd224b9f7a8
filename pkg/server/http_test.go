package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wagate/pkg/config"
)

func TestNewEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := NewEngine(config.App{Name: "wagate-test", Secret: "s"}, config.Allows{}, Deps{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/sessions", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/sessions/alpha/webhooks", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/ws", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/auth/login", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s %s = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}

func TestCorsConfig(t *testing.T) {
	def := corsConfig(config.Allows{})
	if len(def.AllowOrigins) != 1 || def.AllowOrigins[0] != "*" {
		t.Fatalf("default origins = %v", def.AllowOrigins)
	}
	custom := corsConfig(config.Allows{Origins: []string{"https://dash.example"}, Methods: []string{http.MethodGet}})
	if custom.AllowOrigins[0] != "https://dash.example" || len(custom.AllowMethods) != 1 {
		t.Fatalf("custom = %+v", custom)
	}
}
