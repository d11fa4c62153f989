package clinical

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
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
	read.GET("/appointments/:id/vitals", h.GetVitals)
	read.GET("/diagnoses", h.ListDiagnoses)
	read.GET("/diagnoses/:id", h.GetDiagnosis)
	read.GET("/prescriptions", h.ListPrescriptions)
	read.GET("/prescriptions/:id", h.GetPrescription)

	nurse := api.Group("", auth.RequireRole(auth.RoleNurse))
	nurse.PUT("/appointments/:id/vitals", h.RecordVitals)

	doctor := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctor.POST("/diagnoses", h.CreateDiagnosis)
	doctor.PUT("/diagnoses/:id", h.UpdateDiagnosis)
	doctor.DELETE("/diagnoses/:id", h.DeleteDiagnosis)
	doctor.POST("/prescriptions", h.CreatePrescription)
	doctor.PUT("/prescriptions/:id", h.UpdatePrescription)
	doctor.DELETE("/prescriptions/:id", h.DeletePrescription)
}

// actor returns the signed-in staff id, or nil for the anonymous dev admin.
func actor(c echo.Context, role auth.Role) *uuid.UUID {
	s := auth.SessionFromContext(c.Request().Context())
	if s == nil || s.Role != role || s.StaffID == uuid.Nil {
		return nil
	}
	id := s.StaffID
	return &id
}

func paramID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func filterFromQuery(c echo.Context) (RecordFilter, error) {
	var f RecordFilter
	if raw := c.QueryParam("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if raw := c.QueryParam("appointment_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment_id")
		}
		f.AppointmentID = &id
	}
	return f, nil
}

// -- Vital Signs --

func (h *Handler) GetVitals(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetVitals(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) RecordVitals(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var v VitalSigns
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v.RecordedBy = actor(c, auth.RoleNurse)
	result, err := h.svc.RecordOrUpdateVitals(c.Request().Context(), id, &v)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, result)
}

// -- Diagnosis --

func (h *Handler) CreateDiagnosis(c echo.Context) error {
	var d Diagnosis
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if doc := actor(c, auth.RoleDoctor); doc != nil {
		d.DoctorID = doc
	}
	if err := h.svc.CreateDiagnosis(c.Request().Context(), &d); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDiagnosis(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDiagnosis(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDiagnosis(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var d Diagnosis
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d.ID = id
	if doc := actor(c, auth.RoleDoctor); doc != nil {
		d.DoctorID = doc
	}
	if err := h.svc.UpdateDiagnosis(c.Request().Context(), &d); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDiagnosis(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteDiagnosis(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDiagnoses(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDiagnoses(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithNext(c.Request().URL))
}

// -- Prescription --

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if doc := actor(c, auth.RoleDoctor); doc != nil {
		p.DoctorID = doc
	}
	if err := h.svc.CreatePrescription(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePrescription(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if doc := actor(c, auth.RoleDoctor); doc != nil {
		p.DoctorID = doc
	}
	if err := h.svc.UpdatePrescription(c.Request().Context(), &p); err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeletePrescription(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPrescriptions(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg).WithNext(c.Request().URL))
}
