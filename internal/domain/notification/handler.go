package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careslot/careslot/internal/platform/apperr"
	"github.com/careslot/careslot/internal/platform/auth"
	"github.com/careslot/careslot/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/notifications", auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.List)
	g.PUT("/:id/read", h.MarkRead)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	hospitalID := auth.HospitalIDFromContext(ctx)
	if hospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusForbidden, "no hospital associated with caller")
	}
	pg := pagination.FromContext(c)
	unreadOnly := c.QueryParam("unread") == "true"
	items, total, err := h.svc.List(ctx, hospitalID, unreadOnly, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	hospitalID := auth.HospitalIDFromContext(ctx)
	if hospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusForbidden, "no hospital associated with caller")
	}
	if err := h.svc.MarkRead(ctx, id, hospitalID); err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "read"})
}
