package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext_Defaults(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	p := FromContext(c)

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_Values(t *testing.T) {
	tests := []struct {
		query         string
		limit, offset int
	}{
		{"?limit=50&offset=10", 50, 10},
		{"?limit=1000", MaxLimit, 0},
		{"?limit=-3&offset=-7", DefaultLimit, 0},
		{"?limit=abc&offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), httptest.NewRecorder())

		p := FromContext(c)

		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("%s: got limit=%d offset=%d, want %d/%d", tt.query, p.Limit, p.Offset, tt.limit, tt.offset)
		}
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 5, 2, 0)
	if !resp.HasMore {
		t.Error("expected has_more with 5 total and first page of 2")
	}
	last := NewResponse([]string{"e"}, 5, 2, 4)
	if last.HasMore {
		t.Error("expected no more on last page")
	}
}

func TestParams_Offsets(t *testing.T) {
	p := Params{Limit: 10, Offset: 5}
	if p.NextOffset() != 15 {
		t.Errorf("next offset = %d", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("previous offset should clamp to 0, got %d", p.PreviousOffset())
	}
	if !p.HasPrevious() {
		t.Error("offset 5 has a previous page")
	}
	if p.HasNext(15) {
		t.Error("no next page at exactly total")
	}
}

func TestParams_LinkHeader(t *testing.T) {
	u, _ := url.Parse("/api/v1/testrequests?status=INITIATED&limit=10&offset=10")
	p := Params{Limit: 10, Offset: 10}

	link := p.LinkHeader(u, 35)

	if !strings.Contains(link, `</api/v1/testrequests?limit=10&offset=20&status=INITIATED>; rel="next"`) {
		t.Errorf("missing next link: %s", link)
	}
	if !strings.Contains(link, `</api/v1/testrequests?limit=10&offset=0&status=INITIATED>; rel="prev"`) {
		t.Errorf("missing prev link: %s", link)
	}
}

func TestParams_LinkHeader_SinglePage(t *testing.T) {
	u, _ := url.Parse("/api/v1/labrequests")
	if link := (Params{Limit: 20}).LinkHeader(u, 3); link != "" {
		t.Errorf("expected no link header, got %q", link)
	}
}

func TestWrite(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/labrequests?limit=1", nil), rec)

	if err := Write(c, http.StatusOK, FromContext(c), []int{1}, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Header().Get("Link"), `rel="next"`) {
		t.Errorf("expected next link, got %q", rec.Header().Get("Link"))
	}
	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 2 || body.Limit != 1 || !body.HasMore {
		t.Errorf("unexpected envelope %+v", body)
	}
}
