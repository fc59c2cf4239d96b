package consultation

import (
	"errors"
	"net/http"
	"strconv"

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
	read.GET("/consultations", h.List)
	read.GET("/consultations/:id", h.Get)
	read.GET("/consultations/by-appointment/:appointmentId", h.GetByAppointment)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/consultations", h.Create)
	doctor.GET("/consultations/prescribable", h.Prescribable)
	doctor.PATCH("/consultations/:id/status", h.UpdateStatus)
}

func session(c echo.Context) auth.Session {
	return auth.SessionFromContext(c.Request().Context())
}

func parseUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cons, err := h.svc.Create(c.Request().Context(), session(c), req)
	if err != nil {
		var ce *apperr.ConflictError
		if errors.As(err, &ce) && ce.Location != "" {
			c.Response().Header().Set(echo.HeaderLocation, ce.Location)
		}
		return apperr.HTTP(err)
	}
	c.Response().Header().Set(echo.HeaderLocation, Location(cons.ID))
	return c.JSON(http.StatusCreated, cons)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	cons, err := h.svc.Get(c.Request().Context(), session(c), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) GetByAppointment(c echo.Context) error {
	id, err := parseUUID(c, "appointmentId")
	if err != nil {
		return err
	}
	cons, err := h.svc.GetByAppointment(c.Request().Context(), session(c), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cons)
}

func (h *Handler) List(c echo.Context) error {
	var f Filter
	for _, p := range []struct {
		name string
		dst  **uuid.UUID
	}{
		{"patient_id", &f.PatientID},
		{"doctor_id", &f.DoctorID},
		{"appointment_id", &f.AppointmentID},
	} {
		raw := c.QueryParam(p.name)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid "+p.name)
		}
		*p.dst = &id
	}
	if st := c.QueryParam("consultation_status"); st != "" {
		f.Status = &st
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), session(c), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).WithLinks(c.Request().URL))
}

// Prescribable lists the caller's consultations that accept prescriptions.
// Admins pass ?doctor_id=.
func (h *Handler) Prescribable(c echo.Context) error {
	sess := session(c)
	doctorID := sess.UserID
	if raw := c.QueryParam("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		doctorID = id
	}
	diagnostics, _ := strconv.ParseBool(c.QueryParam("diagnostics"))

	sel, err := h.svc.Prescribable(c.Request().Context(), sess, doctorID, diagnostics)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, sel)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cons, err := h.svc.UpdateStatus(c.Request().Context(), session(c), id, req.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, cons)
}
