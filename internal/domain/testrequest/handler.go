package testrequest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/upstac/upstac/internal/platform/auth"
	"github.com/upstac/upstac/pkg/pagination"
)

// Role names as they appear in tokens.
const (
	authRoleTester = "tester"
	authRoleDoctor = "doctor"
)

type Handler struct {
	svc   *Service
	query *QueryService
}

func NewHandler(svc *Service, query *QueryService) *Handler {
	return &Handler{svc: svc, query: query}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	tester := api.Group("/labrequests", auth.RequireRole(authRoleTester))
	tester.GET("/to-be-tested", h.ListToBeTested)
	tester.GET("", h.ListMyLabRequests)
	tester.PUT("/assign/:id", h.AssignForLabTest)
	tester.PUT("/update/:id", h.UpdateLabTest)

	doctor := api.Group("/consultations", auth.RequireRole(authRoleDoctor))
	doctor.GET("/in-queue", h.ListInQueue)
	doctor.GET("", h.ListMyConsultations)
	doctor.PUT("/assign/:id", h.AssignForConsultation)
	doctor.PUT("/update/:id", h.UpdateConsultation)

	read := api.Group("/testrequests", auth.RequireRole(authRoleTester, authRoleDoctor))
	read.GET("", h.ListByStatus)
	read.GET("/:id", h.GetTestRequest)
}

// ActorFromContext builds the workflow actor from the authenticated identity.
// A user holding both roles acts as a tester.
func ActorFromContext(ctx context.Context) Actor {
	a := Actor{
		ID:   auth.UserIDFromContext(ctx),
		Name: auth.UserNameFromContext(ctx),
		Role: RoleOther,
	}
	roles := auth.RolesFromContext(ctx)
	switch {
	case auth.HasAnyRole(roles, authRoleTester):
		a.Role = RoleTester
	case auth.HasAnyRole(roles, authRoleDoctor):
		a.Role = RoleDoctor
	}
	return a
}

// actorFor picks the role the route acts under, so a user holding both roles
// is treated as a doctor on the consultation routes.
func actorFor(c echo.Context, role Role) Actor {
	a := ActorFromContext(c.Request().Context())
	if auth.HasAnyRole(auth.RolesFromContext(c.Request().Context()), strings.ToLower(string(role))) {
		a.Role = role
	}
	return a
}

// -- tester --

func (h *Handler) ListToBeTested(c echo.Context) error {
	return h.listStatus(c, StatusInitiated)
}

func (h *Handler) ListMyLabRequests(c echo.Context) error {
	pg := pagination.FromContext(c)
	tester := actorFor(c, RoleTester)
	items, total, err := h.query.FindByTester(c.Request().Context(), tester.ID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return pagination.Write(c, http.StatusOK, pg, nonNil(items), total)
}

func (h *Handler) AssignForLabTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.AssignForLabTest(c.Request().Context(), id, actorFor(c, RoleTester))
	if err != nil {
		return httpError(err)
	}
	return respond(c, r)
}

func (h *Handler) UpdateLabTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in LabResultInput
	if err := c.Bind(&in); err != nil {
		return bindError(err)
	}
	r, err := h.svc.UpdateLabTest(c.Request().Context(), id, in, actorFor(c, RoleTester))
	if err != nil {
		return httpError(err)
	}
	return respond(c, r)
}

// -- doctor --

func (h *Handler) ListInQueue(c echo.Context) error {
	return h.listStatus(c, StatusLabTestCompleted)
}

func (h *Handler) ListMyConsultations(c echo.Context) error {
	pg := pagination.FromContext(c)
	doctor := actorFor(c, RoleDoctor)
	items, total, err := h.query.FindByDoctor(c.Request().Context(), doctor.ID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return pagination.Write(c, http.StatusOK, pg, nonNil(items), total)
}

func (h *Handler) AssignForConsultation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.AssignForConsultation(c.Request().Context(), id, actorFor(c, RoleDoctor))
	if err != nil {
		return httpError(err)
	}
	return respond(c, r)
}

func (h *Handler) UpdateConsultation(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var in ConsultationInput
	if err := c.Bind(&in); err != nil {
		return bindError(err)
	}
	r, err := h.svc.UpdateConsultation(c.Request().Context(), id, in, actorFor(c, RoleDoctor))
	if err != nil {
		return httpError(err)
	}
	return respond(c, r)
}

// -- shared reads --

func (h *Handler) ListByStatus(c echo.Context) error {
	raw := c.QueryParam("status")
	if raw == "" {
		return httpError(&ValidationError{Fields: []FieldError{{Field: "status", Message: "is required"}}})
	}
	status, err := ParseStatus(raw)
	if err != nil {
		return httpError(&ValidationError{Fields: []FieldError{{Field: "status", Message: "is not a known status"}}})
	}
	return h.listStatus(c, status)
}

func (h *Handler) GetTestRequest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.query.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return respond(c, r)
}

func (h *Handler) listStatus(c echo.Context, status Status) error {
	pg := pagination.FromContext(c)
	items, total, err := h.query.FindByStatus(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return pagination.Write(c, http.StatusOK, pg, nonNil(items), total)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, httpError(&ValidationError{Fields: []FieldError{{Field: "id", Message: "must be a UUID"}}})
	}
	return id, nil
}

// bindError keeps the 413 from the body limit and reports anything else as a
// malformed body.
func bindError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
		return he
	}
	return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
		"error":   "bad_request",
		"message": "malformed request body",
	}).SetInternal(err)
}

func respond(c echo.Context, r *Request) error {
	c.Response().Header().Set("ETag", fmt.Sprintf(`W/"%d"`, r.VersionID))
	c.Response().Header().Set("Last-Modified", r.UpdatedAt.UTC().Format(http.TimeFormat))
	return c.JSON(http.StatusOK, r)
}

func nonNil(items []*Request) []*Request {
	if items == nil {
		return []*Request{}
	}
	return items
}

// httpError maps workflow errors onto status codes. The body keeps the
// structured context so clients can tell why a move was refused.
func httpError(err error) error {
	body := map[string]interface{}{
		"error":   ErrorKind(err),
		"message": err.Error(),
	}

	var (
		notFound *NotFoundError
		unauth   *UnauthorizedError
		invalid  *InvalidTransitionError
		verr     *ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		body["id"] = notFound.ID
		return echo.NewHTTPError(http.StatusNotFound, body)
	case errors.As(err, &unauth):
		body["required_role"] = unauth.Required
		body["actual_role"] = unauth.Actual
		return echo.NewHTTPError(http.StatusForbidden, body)
	case errors.As(err, &invalid):
		body["current_status"] = invalid.Current
		body["target_status"] = invalid.Target
		return echo.NewHTTPError(http.StatusConflict, body)
	case errors.As(err, &verr):
		body["fields"] = verr.Fields
		return echo.NewHTTPError(http.StatusBadRequest, body)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, map[string]interface{}{
		"error":   "internal",
		"message": "internal server error",
	}).SetInternal(err)
}
