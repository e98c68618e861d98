package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestGenerator() (*Generator, *echo.Echo) {
	e := echo.New()
	noop := func(c echo.Context) error { return nil }
	e.GET("/api/v1/testrequests/:id", noop)
	e.PUT("/api/v1/labrequests/update/:id", noop)
	e.GET("/api/v1/labrequests/to-be-tested", noop)
	e.GET("/health", noop)

	g := NewGenerator("Test API", "1.0.0")
	g.Describe(map[string]Operation{
		"PUT /api/v1/labrequests/update/:id": {
			Summary: "Record lab result", Tag: "lab", Role: "tester",
			RequestBody: "LabResultInput", Response: "TestRequest",
		},
	})
	g.AddSchemas(map[string]interface{}{"LabResultInput": map[string]string{"type": "object"}})
	g.AddRoutes(e.Routes(), "/api/")
	return g, e
}

func TestGenerateSpec_Structure(t *testing.T) {
	g, _ := newTestGenerator()

	spec := g.GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}
	info := spec["info"].(map[string]interface{})
	if info["title"] != "Test API" || info["version"] != "1.0.0" {
		t.Errorf("unexpected info %v", info)
	}

	paths := spec["paths"].(map[string]map[string]interface{})
	if len(paths) != 3 {
		t.Errorf("expected 3 api paths, got %d", len(paths))
	}
	if _, ok := paths["/health"]; ok {
		t.Error("routes outside the prefix should be excluded")
	}
	if _, ok := paths["/api/v1/testrequests/{id}"]["get"]; !ok {
		t.Error("expected :id converted to {id}")
	}
}

func TestGenerateSpec_DescribedOperation(t *testing.T) {
	g, _ := newTestGenerator()
	paths := g.GenerateSpec()["paths"].(map[string]map[string]interface{})

	op := paths["/api/v1/labrequests/update/{id}"]["put"].(map[string]interface{})
	if op["summary"] != "Record lab result" {
		t.Errorf("summary = %v", op["summary"])
	}
	if op["x-required-role"] != "tester" {
		t.Errorf("role = %v", op["x-required-role"])
	}
	if op["operationId"] != "putLabrequestsUpdateId" {
		t.Errorf("operationId = %v", op["operationId"])
	}
	if _, ok := op["requestBody"]; !ok {
		t.Error("expected request body")
	}
	params := op["parameters"].([]map[string]interface{})
	if len(params) != 1 || params[0]["name"] != "id" {
		t.Errorf("unexpected params %v", params)
	}
	resp := op["responses"].(map[string]interface{})
	for _, code := range []string{"200", "400", "403", "404", "409"} {
		if _, ok := resp[code]; !ok {
			t.Errorf("missing %s response", code)
		}
	}
}

func TestOpenAPIPath(t *testing.T) {
	p, params := openAPIPath("/api/v1/consultations/assign/:id")
	if p != "/api/v1/consultations/assign/{id}" {
		t.Errorf("path = %s", p)
	}
	if len(params) != 1 || params[0] != "id" {
		t.Errorf("params = %v", params)
	}
}

func TestRegisterRoutes_ServesJSON(t *testing.T) {
	g, e := newTestGenerator()
	g.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	schemas := doc["components"].(map[string]interface{})["schemas"].(map[string]interface{})
	if _, ok := schemas["Error"]; !ok {
		t.Error("expected Error schema")
	}
}

func TestAddRoutes_SkipsGroupCatchAlls(t *testing.T) {
	e := echo.New()
	noop := func(c echo.Context) error { return nil }
	grp := e.Group("/api/v1/labrequests", func(next echo.HandlerFunc) echo.HandlerFunc { return next })
	grp.GET("/to-be-tested", noop)

	g := NewGenerator("Test API", "1.0.0")
	g.AddRoutes(e.Routes(), "/api/")

	paths := g.GenerateSpec()["paths"].(map[string]map[string]interface{})
	if len(paths) != 1 {
		t.Errorf("expected only the real route, got %v", paths)
	}
}
