package reporting

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	reports := api.Group("/reports", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	reports.GET("/disease-trends", h.DiseaseTrends)
	reports.GET("/disease-trends/distribution", h.Distribution)
	reports.GET("/measures", h.ListMeasures)
	reports.GET("/measures/:id/evaluate", h.EvaluateMeasure)

	admin := api.Group("/reports", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/dashboard", h.Dashboard)
}

func (h *Handler) DiseaseTrends(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.DiseaseTrends(c.Request().Context()))
}

type distributionResponse struct {
	Arcs     []Arc `json:"arcs"`
	Degraded bool  `json:"degraded,omitempty"`
}

// Distribution accepts cx, cy and r query parameters for the target
// viewport; the default is a radius-90 pie in a 200x200 box.
func (h *Handler) Distribution(c echo.Context) error {
	cx, err := floatParam(c, "cx", 100)
	if err != nil {
		return err
	}
	cy, err := floatParam(c, "cy", 100)
	if err != nil {
		return err
	}
	r, err := floatParam(c, "r", 90)
	if err != nil {
		return err
	}
	if r <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "r must be positive")
	}
	arcs, degraded := h.svc.Distribution(c.Request().Context(), cx, cy, r)
	return c.JSON(http.StatusOK, distributionResponse{Arcs: arcs, Degraded: degraded})
}

func (h *Handler) Dashboard(c echo.Context) error {
	d, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	report, err := h.svc.EvaluateMeasure(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, report)
}

func floatParam(c echo.Context, name string, def float64) (float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return v, nil
}
