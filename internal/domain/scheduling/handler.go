package scheduling

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/civil"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse))
	read.GET("/appointments", h.ListAppointments)
	read.GET("/appointments/:id", h.GetAppointment)

	intake := api.Group("", auth.RequireRole(auth.RoleNurse, auth.RoleDoctor))
	intake.GET("/appointments/checked-in", h.ListCheckedIn)

	status := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleNurse))
	status.PUT("/appointments/:id/status", h.UpdateStatus)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/appointments", h.CreateAppointment)
	admin.PUT("/appointments/:id", h.UpdateAppointment)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAppointment(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.UpdateAppointment(c.Request().Context(), &a); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithNext(c.Request().URL))
}

func (h *Handler) ListCheckedIn(c echo.Context) error {
	var date civil.Date
	if raw := c.QueryParam("date"); raw != "" {
		d, err := civil.ParseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		date = d
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCheckedIn(c.Request().Context(), date, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithNext(c.Request().URL))
}

func filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apperr.Validation("invalid patient_id")
		}
		f.PatientID = &id
	}
	if raw := c.QueryParam("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, apperr.Validation("invalid doctor_id")
		}
		f.DoctorID = &id
	}
	f.DoctorName = c.QueryParam("doctor_name")
	if raw := c.QueryParam("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if raw := c.QueryParam("date"); raw != "" {
		d, err := civil.ParseDate(raw)
		if err != nil {
			return f, apperr.Validation("%s", err.Error())
		}
		f.Date = d
	}
	return f, nil
}
