package apidoc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

type widgetRequest struct {
	Name string `json:"name" validate:"required"`
}

type widgetResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func noop(w http.ResponseWriter, r *http.Request) {}

func testRoutes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/health", Summary: "Health check", Handler: noop, Response: widgetResponse{}},
		{Method: http.MethodPost, Path: "/api/widgets", Summary: "Create widget", Access: Coach, Handler: noop,
			Request: widgetRequest{}, Response: widgetResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/widgets/{id}/parts/{part_id}", Summary: "Get part", Access: Authenticated,
			Handler: noop, Response: widgetResponse{}},
		{Method: http.MethodGet, Path: "/api/widgets/{public_id}/download", Summary: "Download widget", Access: Authenticated,
			Handler: noop, ContentType: "text/csv"},
	}
}

func TestPathParams(t *testing.T) {
	rt := Route{Method: http.MethodGet, Path: "/api/games/{id}/shots/{shot_id}"}
	if got := rt.PathParams(); !reflect.DeepEqual(got, []string{"id", "shot_id"}) {
		t.Fatalf("path params: got %v", got)
	}
	if rt.Pattern() != "GET /api/games/{id}/shots/{shot_id}" {
		t.Fatalf("pattern: got %q", rt.Pattern())
	}
	if len((Route{Path: "/api/clubs"}).PathParams()) != 0 {
		t.Fatalf("expected no params")
	}
}

func TestNewSpecDocumentsRoutes(t *testing.T) {
	spec, err := NewSpec("Widgets", "1.0.0", "Widget API", testRoutes())
	if err != nil {
		t.Fatalf("build document: %v", err)
	}

	handler, err := Handler(spec)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: got %q", ct)
	}

	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]struct {
			Tags      []string                   `json:"tags"`
			Security  []map[string][]string      `json:"security"`
			Responses map[string]json.RawMessage `json:"responses"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Info.Title != "Widgets" {
		t.Fatalf("title: got %q", doc.Info.Title)
	}

	health, ok := doc.Paths["/health"]["get"]
	if !ok {
		t.Fatalf("missing /health")
	}
	if len(health.Security) != 0 {
		t.Fatalf("public route should not require security")
	}
	if health.Tags[0] != "system" {
		t.Fatalf("health tag: got %v", health.Tags)
	}

	create, ok := doc.Paths["/api/widgets"]["post"]
	if !ok {
		t.Fatalf("missing POST /api/widgets")
	}
	for _, code := range []string{"201", "400", "401", "403"} {
		if _, ok := create.Responses[code]; !ok {
			t.Fatalf("create widget missing %s response", code)
		}
	}
	if len(create.Security) != 1 {
		t.Fatalf("expected bearer security on create")
	}
	if create.Tags[0] != "widgets" {
		t.Fatalf("create tag: got %v", create.Tags)
	}

	part, ok := doc.Paths["/api/widgets/{id}/parts/{part_id}"]["get"]
	if !ok {
		t.Fatalf("missing part route")
	}
	if _, ok := part.Responses["404"]; !ok {
		t.Fatalf("parameterised route should document 404")
	}
	if _, ok := part.Responses["403"]; ok {
		t.Fatalf("authenticated route should not document 403")
	}
}

func TestUIServesIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	UI("Widgets", "/openapi.json", "/docs/").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/openapi.json") {
		t.Fatalf("index does not reference the document")
	}
}
