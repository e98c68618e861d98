package testrequest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/upstac/upstac/internal/platform/auth"
)

func newTestHandler() (*Handler, *Service, *mockRequestRepo, *echo.Echo) {
	svc, repo := newTestService()
	h := NewHandler(svc, NewQueryService(repo))
	e := echo.New()
	e.Use(auth.DevAuthMiddleware())
	h.RegisterRoutes(e.Group("/api/v1"))
	return h, svc, repo, e
}

func doRequest(e *echo.Echo, method, path, user, role, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(auth.DevUserHeader, user)
	}
	if role != "" {
		req.Header.Set(auth.DevRoleHeader, role)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHandler_TesterFlow(t *testing.T) {
	_, _, repo, e := newTestHandler()
	id := seedRequest(repo, "A").ID.String()

	rec := doRequest(e, http.MethodGet, "/api/v1/labrequests/to-be-tested", "tester-a", "tester", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("to-be-tested: %d %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["total"].(float64) != 1 {
		t.Errorf("to-be-tested total = %v", body["total"])
	}

	rec = doRequest(e, http.MethodPut, "/api/v1/labrequests/assign/"+id, "tester-a", "tester", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", rec.Code, rec.Body.String())
	}
	if etag := rec.Header().Get("ETag"); etag != `W/"2"` {
		t.Errorf("ETag = %q", etag)
	}

	rec = doRequest(e, http.MethodPut, "/api/v1/labrequests/update/"+id, "tester-a", "tester",
		`{"blood_pressure":"120/80","result":"POSITIVE"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != string(StatusLabTestCompleted) {
		t.Errorf("status = %v", body["status"])
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/labrequests", "tester-a", "tester", "")
	if body := decodeBody(t, rec); body["total"].(float64) != 1 {
		t.Errorf("my lab requests total = %v", body["total"])
	}
}

func TestHandler_DoctorFlow(t *testing.T) {
	_, svc, repo, e := newTestHandler()
	id := seedRequest(repo, "A").ID
	advance(svc, id, StatusLabTestCompleted)

	rec := doRequest(e, http.MethodGet, "/api/v1/consultations/in-queue", "doc-1", "doctor", "")
	if body := decodeBody(t, rec); body["total"].(float64) != 1 {
		t.Fatalf("in-queue total = %v", body["total"])
	}

	rec = doRequest(e, http.MethodPut, "/api/v1/consultations/assign/"+id.String(), "doc-1", "doctor", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("assign: %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(e, http.MethodPut, "/api/v1/consultations/update/"+id.String(), "doc-1", "doctor",
		`{"suggestion":"HOSPITALIZED","comments":"admit","hospitalization":{"facility":"City","bed_count":1}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != string(StatusCompleted) {
		t.Errorf("status = %v", body["status"])
	}
	consultation := body["consultation"].(map[string]interface{})
	if consultation["suggestion"] != "HOSPITALIZED" {
		t.Errorf("consultation = %v", consultation)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/consultations", "doc-1", "doctor", "")
	if body := decodeBody(t, rec); body["total"].(float64) != 1 {
		t.Errorf("my consultations total = %v", body["total"])
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	_, svc, repo, e := newTestHandler()
	initiated := seedRequest(repo, "A").ID.String()
	inProgress := seedRequest(repo, "B").ID
	advance(svc, inProgress, StatusLabTestInProgress)
	consulting := seedRequest(repo, "C").ID
	advance(svc, consulting, StatusDoctorConsultationInProgress)

	tests := []struct {
		name, method, path, user, role, body string
		code                                 int
		kind                                 string
	}{
		{"unknown id", http.MethodPut, "/api/v1/labrequests/assign/" + uuid.NewString(), "t", "tester", "", http.StatusNotFound, "not_found"},
		{"bad id", http.MethodPut, "/api/v1/labrequests/assign/xyz", "t", "tester", "", http.StatusBadRequest, "validation"},
		{"route role", http.MethodPut, "/api/v1/labrequests/assign/" + initiated, "d", "doctor", "", http.StatusForbidden, ""},
		{"no roles", http.MethodGet, "/api/v1/testrequests/" + initiated, "x", "", "", http.StatusForbidden, ""},
		{"early consultation", http.MethodPut, "/api/v1/consultations/assign/" + initiated, "d", "doctor", "", http.StatusConflict, "invalid_transition"},
		{"other tester", http.MethodPut, "/api/v1/labrequests/update/" + inProgress.String(), "tester-b", "tester", `{"result":"NEGATIVE"}`, http.StatusForbidden, "unauthorized"},
		{"bad payload", http.MethodPut, "/api/v1/labrequests/update/" + inProgress.String(), testerA.ID, "tester", `{"result":"MAYBE"}`, http.StatusBadRequest, "validation"},
		{"hospitalized without detail", http.MethodPut, "/api/v1/consultations/update/" + consulting.String(), doctorC.ID, "doctor", `{"suggestion":"HOSPITALIZED"}`, http.StatusBadRequest, "validation"},
		{"malformed json", http.MethodPut, "/api/v1/labrequests/update/" + inProgress.String(), testerA.ID, "tester", `{"result":`, http.StatusBadRequest, "bad_request"},
		{"missing status filter", http.MethodGet, "/api/v1/testrequests", "t", "tester", "", http.StatusBadRequest, "validation"},
		{"bad status filter", http.MethodGet, "/api/v1/testrequests?status=DONE", "t", "tester", "", http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(e, tt.method, tt.path, tt.user, tt.role, tt.body)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tt.code, rec.Body.String())
			}
			if tt.kind == "" {
				return
			}
			body := decodeBody(t, rec)
			if body["error"] != tt.kind {
				t.Errorf("error kind = %v, want %s", body["error"], tt.kind)
			}
		})
	}
}

func TestHandler_InvalidTransitionBodyCarriesContext(t *testing.T) {
	_, _, repo, e := newTestHandler()
	id := seedRequest(repo, "A").ID.String()

	rec := doRequest(e, http.MethodPut, "/api/v1/consultations/assign/"+id, "d", "doctor", "")
	body := decodeBody(t, rec)
	if body["current_status"] != string(StatusInitiated) || body["target_status"] != string(StatusDoctorConsultationInProgress) {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_ReadEndpoints(t *testing.T) {
	_, svc, repo, e := newTestHandler()
	id := seedRequest(repo, "A").ID
	advance(svc, id, StatusLabTestCompleted)
	seedRequest(repo, "B")

	rec := doRequest(e, http.MethodGet, "/api/v1/testrequests?status=lab_test_completed", "d", "doctor", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["total"].(float64) != 1 {
		t.Errorf("total = %v", body["total"])
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/testrequests/"+id.String(), "t", "tester", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	if etag := rec.Header().Get("ETag"); etag != `W/"3"` {
		t.Errorf("ETag = %q", etag)
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/testrequests", "t", "tester", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing status: %d", rec.Code)
	}
}

func TestHandler_EmptyListIsArray(t *testing.T) {
	_, _, _, e := newTestHandler()
	rec := doRequest(e, http.MethodGet, "/api/v1/consultations/in-queue", "d", "doctor", "")
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestActorFromContext(t *testing.T) {
	tests := []struct {
		roles []string
		want  Role
	}{
		{[]string{"tester"}, RoleTester},
		{[]string{"DOCTOR"}, RoleDoctor},
		{[]string{"admin"}, RoleOther},
		{nil, RoleOther},
	}
	for _, tt := range tests {
		ctx := auth.WithUser(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "u1", "User One", tt.roles)
		a := ActorFromContext(ctx)
		if a.Role != tt.want || a.ID != "u1" || a.Name != "User One" {
			t.Errorf("ActorFromContext(%v) = %+v", tt.roles, a)
		}
	}
}
