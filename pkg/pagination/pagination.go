// Package pagination parses limit/offset query parameters and shapes list
// responses.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext reads ?limit= and ?offset=. Missing or invalid values fall back
// to DefaultLimit and 0, and the limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Response wraps a paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset never goes below zero.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// LinkHeader builds an RFC 8288 Link value with next and prev relations for
// the request URL. Other query parameters (such as ?status=) are preserved.
// It returns "" when there is no other page.
func (p Params) LinkHeader(u *url.URL, total int) string {
	var links []string
	page := func(offset int, rel string) string {
		q := u.Query()
		q.Set("limit", strconv.Itoa(p.Limit))
		q.Set("offset", strconv.Itoa(offset))
		return fmt.Sprintf(`<%s?%s>; rel="%s"`, u.Path, q.Encode(), rel)
	}
	if p.HasNext(total) {
		links = append(links, page(p.NextOffset(), "next"))
	}
	if p.HasPrevious() {
		links = append(links, page(p.PreviousOffset(), "prev"))
	}
	return strings.Join(links, ", ")
}

// Write sets the Link header and sends the list envelope.
func Write(c echo.Context, status int, p Params, data interface{}, total int) error {
	if link := p.LinkHeader(c.Request().URL, total); link != "" {
		c.Response().Header().Set("Link", link)
	}
	return c.JSON(status, NewResponse(data, total, p.Limit, p.Offset))
}
