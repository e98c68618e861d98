// Package openapi publishes an OpenAPI 3.0 document built from the routes
// registered on the server.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Operation documents one route. Key it by "METHOD /path" with echo's
// ":param" syntax.
type Operation struct {
	Summary     string
	Tag         string
	Role        string // required caller role, informational
	RequestBody string // component schema name
	Response    string // component schema name for 200
	Query       []string
}

type Generator struct {
	title   string
	version string
	ops     map[string]Operation
	schemas map[string]interface{}
	routes  []*echo.Route
}

func NewGenerator(title, version string) *Generator {
	return &Generator{
		title:   title,
		version: version,
		ops:     make(map[string]Operation),
		schemas: map[string]interface{}{"Error": errorSchema()},
	}
}

// Describe attaches documentation to routes by key.
func (g *Generator) Describe(ops map[string]Operation) {
	for k, op := range ops {
		g.ops[k] = op
	}
}

// AddSchemas registers component schemas.
func (g *Generator) AddSchemas(schemas map[string]interface{}) {
	for k, v := range schemas {
		g.schemas[k] = v
	}
}

// AddRoutes includes every route whose path starts with prefix. The
// not-found catch-alls echo registers for group middleware are skipped.
func (g *Generator) AddRoutes(routes []*echo.Route, prefix string) {
	for _, r := range routes {
		if !strings.HasPrefix(r.Path, prefix) || strings.Contains(r.Path, "*") {
			continue
		}
		switch r.Method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			g.routes = append(g.routes, r)
		}
	}
}

// GenerateSpec produces the OpenAPI 3.0 spec as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]map[string]interface{})

	routes := append([]*echo.Route(nil), g.routes...)
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})

	for _, r := range routes {
		path, params := openAPIPath(r.Path)
		op := g.ops[r.Method+" "+r.Path]

		var parameters []map[string]interface{}
		for _, p := range params {
			parameters = append(parameters, map[string]interface{}{
				"name": p, "in": "path", "required": true,
				"schema": map[string]string{"type": "string", "format": "uuid"},
			})
		}
		for _, q := range op.Query {
			parameters = append(parameters, map[string]interface{}{
				"name": q, "in": "query", "schema": map[string]string{"type": "string"},
			})
		}

		entry := map[string]interface{}{
			"operationId": operationID(r.Method, r.Path),
			"responses":   responses(op.Response),
		}
		if op.Summary != "" {
			entry["summary"] = op.Summary
		}
		if op.Tag != "" {
			entry["tags"] = []string{op.Tag}
		}
		if op.Role != "" {
			entry["x-required-role"] = op.Role
		}
		if len(parameters) > 0 {
			entry["parameters"] = parameters
		}
		if op.RequestBody != "" {
			entry["requestBody"] = map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{"schema": ref(op.RequestBody)},
				},
			}
		}

		if paths[path] == nil {
			paths[path] = make(map[string]interface{})
		}
		paths[path][strings.ToLower(r.Method)] = entry
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   g.title,
			"version": g.version,
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": g.schemas,
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]string{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"security": []map[string][]string{{"bearerAuth": {}}},
	}
}

// RegisterRoutes serves the document at /openapi.json.
func (g *Generator) RegisterRoutes(e *echo.Echo) {
	e.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}

// openAPIPath turns "/a/:id" into "/a/{id}" and returns the parameter names.
func openAPIPath(p string) (string, []string) {
	segments := strings.Split(p, "/")
	var params []string
	for i, s := range segments {
		if strings.HasPrefix(s, ":") {
			params = append(params, s[1:])
			segments[i] = "{" + s[1:] + "}"
		}
	}
	return strings.Join(segments, "/"), params
}

func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))
	for _, s := range strings.Split(path, "/") {
		s = strings.TrimPrefix(s, ":")
		if s == "" || s == "api" || s == "v1" {
			continue
		}
		for _, part := range strings.Split(s, "-") {
			if part != "" {
				b.WriteString(strings.ToUpper(part[:1]) + part[1:])
			}
		}
	}
	return b.String()
}

func responses(okSchema string) map[string]interface{} {
	ok := map[string]interface{}{"description": "Success"}
	if okSchema != "" {
		ok["content"] = map[string]interface{}{
			"application/json": map[string]interface{}{"schema": ref(okSchema)},
		}
	}
	errResp := func(desc string) map[string]interface{} {
		return map[string]interface{}{
			"description": desc,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{"schema": ref("Error")},
			},
		}
	}
	return map[string]interface{}{
		"200": ok,
		"400": errResp("Validation failed"),
		"401": errResp("Missing or invalid credentials"),
		"403": errResp("Caller lacks the required role or assignment"),
		"404": errResp("Test request not found"),
		"409": errResp("Transition not allowed from the current status"),
	}
}

func ref(name string) map[string]string {
	return map[string]string{"$ref": "#/components/schemas/" + name}
}

func errorSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"error", "message"},
		"properties": map[string]interface{}{
			"error": map[string]interface{}{
				"type": "string",
				"enum": []string{"not_found", "unauthorized", "invalid_transition", "validation", "internal"},
			},
			"message":        map[string]string{"type": "string"},
			"current_status": map[string]string{"type": "string"},
			"target_status":  map[string]string{"type": "string"},
			"fields": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"field":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
					},
				},
			},
		},
	}
}
