package prescription

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carelink/carelink/internal/platform/apperr"
	"github.com/carelink/carelink/internal/platform/auth"
	"github.com/carelink/carelink/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePatient, auth.RoleLHW, auth.RolePharmacist))
	read.GET("/prescriptions", h.List)
	read.GET("/prescriptions/:id", h.Get)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/prescriptions", h.Create)
	doctor.POST("/prescriptions/:id/cancel", h.Cancel)

	pharmacy := api.Group("", auth.RequireRole(auth.RolePharmacist))
	pharmacy.POST("/prescriptions/:id/dispense", h.Dispense)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/prescriptions/:id/expire", h.Expire)
}

func session(c echo.Context) auth.Session {
	return auth.SessionFromContext(c.Request().Context())
}

func (h *Handler) Create(c echo.Context) error {
	var d Draft
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&d); err != nil {
		return err
	}
	p, err := h.svc.Create(c.Request().Context(), session(c), d)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), session(c), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	var f Filter
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if raw := c.QueryParam("consultation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid consultation_id")
		}
		f.ConsultationID = &id
	}
	if st := c.QueryParam("status"); st != "" {
		f.Status = &st
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), session(c), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

func (h *Handler) transition(c echo.Context, action string) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Transition(c.Request().Context(), session(c), id, action)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Dispense(c echo.Context) error { return h.transition(c, "dispense") }
func (h *Handler) Cancel(c echo.Context) error   { return h.transition(c, "cancel") }
func (h *Handler) Expire(c echo.Context) error   { return h.transition(c, "expire") }
