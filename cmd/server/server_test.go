package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
	"github.com/codr1/ShotSpot/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "ShotSpot"
	return cfg
}

func TestRoutesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, rt := range allRoutes() {
		if rt.Handler == nil {
			t.Fatalf("%s has no handler", rt.Pattern())
		}
		if rt.Summary == "" {
			t.Fatalf("%s has no summary", rt.Pattern())
		}
		if seen[rt.Pattern()] {
			t.Fatalf("duplicate route %s", rt.Pattern())
		}
		seen[rt.Pattern()] = true
	}
}

func TestRegisteredRoutesAreGuarded(t *testing.T) {
	mux := http.NewServeMux()
	if err := registerRoutes(mux, testConfig()); err != nil {
		t.Fatalf("register routes: %v", err)
	}

	cases := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/api/clubs", http.StatusUnauthorized},
		{http.MethodPost, "/api/games", http.StatusUnauthorized},
		{http.MethodGet, "/api/users", http.StatusUnauthorized},
		{http.MethodDelete, "/api/clubs", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/nope", http.StatusNotFound},
		{http.MethodGet, "/openapi.json", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, nil))
			if rec.Code != tc.want {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	routes := allRoutes()
	spec, err := apidoc.NewSpec("ShotSpot API", apiVersion, "test", routes)
	if err != nil {
		t.Fatalf("build document: %v", err)
	}
	handler, err := apidoc.Handler(spec)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, rt := range routes {
		ops, ok := doc.Paths[rt.Path]
		if !ok {
			t.Fatalf("document is missing %s", rt.Path)
		}
		if _, ok := ops[map[string]string{
			http.MethodGet:    "get",
			http.MethodPost:   "post",
			http.MethodPut:    "put",
			http.MethodDelete: "delete",
		}[rt.Method]]; !ok {
			t.Fatalf("document is missing %s", rt.Pattern())
		}
	}
}
