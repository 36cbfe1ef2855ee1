package scheduling

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
	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/doctors/:doctorId/slots", h.CreateSlots)
	admin.PUT("/slots/:id", h.UpdateSlot)
	admin.DELETE("/slots/:id", h.DeleteSlot)
	admin.GET("/hospitals/:id/bookings", h.ListHospitalBookings)

	api.GET("/doctors/:doctorId/slots", h.ListSlots)

	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.POST("/slots/:id/hold", h.HoldSlot)
	patient.POST("/slots/:id/book", h.BookSlot)
	patient.POST("/bookings/:id/confirm", h.ConfirmBooking)
	patient.POST("/bookings/:id/payment-confirm", h.PaymentConfirm)
	patient.GET("/bookings", h.ListBookings)

	api.POST("/bookings/:id/cancel", h.CancelBooking)
}

// -- Slots --

type createSlotsRequest struct {
	Slots []SlotInput `json:"slots"`
}

func (h *Handler) CreateSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var req createSlotsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	created, err := h.svc.CreateSlots(ctx, auth.HospitalIDFromContext(ctx), doctorID, req.Slots)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": created})
}

func (h *Handler) ListSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	var f SlotFilter
	switch c.QueryParam("active") {
	case "true":
		t := true
		f.Active = &t
	case "false":
		t := false
		f.Active = &t
	}
	if m := c.QueryParam("mode"); m != "" {
		f.Mode = ConsultationMode(m)
		if !f.Mode.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid mode")
		}
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListSlots(c.Request().Context(), doctorID, f, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateSlot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in SlotInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	slot, err := h.svc.UpdateSlot(ctx, auth.HospitalIDFromContext(ctx), id, in)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, slot)
}

func (h *Handler) DeleteSlot(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if err := h.svc.DeleteSlot(ctx, auth.HospitalIDFromContext(ctx), id); err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// -- Bookings --

type bookRequest struct {
	PatientProfileID *uuid.UUID `json:"patient_profile_id"`
}

func (h *Handler) HoldSlot(c echo.Context) error {
	return h.createBooking(c, true)
}

func (h *Handler) BookSlot(c echo.Context) error {
	return h.createBooking(c, false)
}

func (h *Handler) createBooking(c echo.Context, hold bool) error {
	slotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	userID := auth.UserIDFromContext(ctx)

	var b *Booking
	if hold {
		b, err = h.svc.HoldSlot(ctx, userID, slotID, req.PatientProfileID)
	} else {
		b, err = h.svc.BookSlot(ctx, userID, slotID, req.PatientProfileID)
	}
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	if hold {
		return c.JSON(http.StatusCreated, map[string]interface{}{
			"booking_id": b.ID,
			"expires_at": b.ExpiresAt,
		})
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) ConfirmBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	b, err := h.svc.ConfirmBooking(ctx, auth.UserIDFromContext(ctx), id)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, b)
}

type paymentConfirmRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (h *Handler) PaymentConfirm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req paymentConfirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	b, err := h.svc.ConfirmBookingWithPayment(ctx, auth.UserIDFromContext(ctx), id,
		req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) CancelBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	b, err := h.svc.CancelBooking(ctx, auth.UserIDFromContext(ctx), auth.HospitalIDFromContext(ctx), id)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBookings(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUserBookings(ctx, auth.UserIDFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListHospitalBookings(c echo.Context) error {
	hospitalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if auth.HospitalIDFromContext(ctx) != hospitalID {
		return echo.NewHTTPError(http.StatusForbidden, "bookings belong to another hospital")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListHospitalBookings(ctx, hospitalID, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(apperr.Status(err), apperr.Body(err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
