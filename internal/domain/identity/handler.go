package identity

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/careslot/careslot/internal/platform/apperr"
	"github.com/careslot/careslot/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	me := api.Group("/me", auth.RequireRole(auth.RolePatient))
	me.GET("/profiles", h.ListProfiles)
	me.POST("/profiles", h.CreateDependent)
}

func (h *Handler) ListProfiles(c echo.Context) error {
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)
	if _, err := h.svc.EnsureSelfProfile(ctx, userID); err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	items, err := h.svc.ListProfiles(ctx, userID)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

type createDependentRequest struct {
	Name        string     `json:"name"`
	Relation    string     `json:"relation"`
	DateOfBirth *time.Time `json:"date_of_birth"`
}

func (h *Handler) CreateDependent(c echo.Context) error {
	var req createDependentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	p, err := h.svc.CreateDependent(ctx, auth.UserIDFromContext(ctx), req.Name, req.Relation, req.DateOfBirth)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusCreated, p)
}
