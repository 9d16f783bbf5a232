// Package apidoc holds the route table shared by the server mux and the
// OpenAPI document. Each handler package exposes its routes as []Route; the
// server registers them behind the guard named by Access and NewSpec reflects
// the same entries into an OpenAPI 3 document.
package apidoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/swaggest/swgui/v5emb"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
)

// Access is the guard a route is registered behind.
type Access int

const (
	Public Access = iota
	Authenticated
	Coach
	Admin
)

func (a Access) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case Coach:
		return "coach"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

const securityName = "bearerAuth"

type Route struct {
	Method  string
	Path    string
	Summary string
	Access  Access
	Handler http.HandlerFunc

	// Request and Response are zero values of the body types; nil means no
	// body. Status defaults to 200.
	Request  any
	Response any
	Status   int
	// ContentType overrides application/json for the success response.
	ContentType string
}

// Pattern is the ServeMux pattern for the route.
func (rt Route) Pattern() string {
	return rt.Method + " " + rt.Path
}

func (rt Route) successStatus() int {
	if rt.Status != 0 {
		return rt.Status
	}
	return http.StatusOK
}

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// PathParams lists the {placeholders} of the route path in order.
func (rt Route) PathParams() []string {
	matches := placeholder.FindAllStringSubmatch(rt.Path, -1)
	params := make([]string, 0, len(matches))
	for _, m := range matches {
		params = append(params, m[1])
	}
	return params
}

// pathStruct builds a struct type carrying one `path` tagged field per
// placeholder so the reflector can document path parameters.
func pathStruct(params []string) any {
	if len(params) == 0 {
		return nil
	}
	fields := make([]reflect.StructField, 0, len(params))
	for i, name := range params {
		typ := reflect.TypeOf(int64(0))
		if name == "public_id" || name == "action" {
			typ = reflect.TypeOf("")
		}
		fields = append(fields, reflect.StructField{
			Name: fmt.Sprintf("Param%d", i),
			Type: typ,
			Tag:  reflect.StructTag(fmt.Sprintf(`path:"%s"`, name)),
		})
	}
	return reflect.New(reflect.StructOf(fields)).Elem().Interface()
}

func tagFor(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/")
	if trimmed == path {
		return "system"
	}
	tag, _, _ := strings.Cut(trimmed, "/")
	return tag
}

// NewSpec reflects routes into an OpenAPI document. Operations that fail to
// reflect are left out and reported in the returned error; the document is
// usable either way.
func NewSpec(title, version, description string, routes []Route) (*openapi3.Spec, error) {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = title
	r.Spec.Info.Version = version
	r.Spec.Info.WithDescription(description)
	r.Spec.SetHTTPBearerTokenSecurity(securityName, "JWT", "Token returned by POST /api/auth/login")

	var errs []error
	for _, rt := range routes {
		op, err := r.NewOperationContext(rt.Method, rt.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.Pattern(), err))
			continue
		}
		op.SetSummary(rt.Summary)
		op.SetTags(tagFor(rt.Path))
		if rt.Access != Public {
			op.SetDescription("Requires a " + rt.Access.String() + " bearer token.")
			op.AddSecurity(securityName)
		}

		params := rt.PathParams()
		if ps := pathStruct(params); ps != nil {
			op.AddReqStructure(ps)
		}
		if rt.Request != nil {
			op.AddReqStructure(rt.Request)
			op.AddRespStructure(apiutil.ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
		}

		switch {
		case rt.ContentType != "":
			op.AddRespStructure(nil, openapi.WithHTTPStatus(rt.successStatus()), openapi.WithContentType(rt.ContentType))
		default:
			op.AddRespStructure(rt.Response, openapi.WithHTTPStatus(rt.successStatus()))
		}

		if rt.Access != Public {
			op.AddRespStructure(apiutil.ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
		}
		if rt.Access == Coach || rt.Access == Admin {
			op.AddRespStructure(apiutil.ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
		}
		if len(params) > 0 {
			op.AddRespStructure(apiutil.ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
		}

		if err := r.AddOperation(op); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rt.Pattern(), err))
		}
	}

	return r.Spec, errors.Join(errs...)
}

// Handler serves the pre-rendered document.
func Handler(spec *openapi3.Spec) (http.HandlerFunc, error) {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("error encoding openapi document: %w", err)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}, nil
}

// UI serves Swagger UI under basePath, reading the document from specPath.
func UI(title, specPath, basePath string) http.Handler {
	return v5emb.New(title, specPath, basePath)
}
