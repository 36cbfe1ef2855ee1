package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careslot/careslot/internal/platform/auth"
)

func adminRequest(fx *fixture, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, uuid.New())
	ctx = context.WithValue(ctx, auth.UserRoleKey, auth.RoleAdmin)
	ctx = context.WithValue(ctx, auth.HospitalIDKey, fx.hospital.ID)
	rec := httptest.NewRecorder()
	return e.NewContext(req.WithContext(ctx), rec), rec
}

func patientRequest(fx *fixture, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, fx.user.ID)
	ctx = context.WithValue(ctx, auth.UserRoleKey, auth.RolePatient)
	rec := httptest.NewRecorder()
	return e.NewContext(req.WithContext(ctx), rec), rec
}

func TestHandlerCreateSlots(t *testing.T) {
	fx := newFixture(t)
	h := NewHandler(fx.svc)

	body := fmt.Sprintf(`{"slots":[{"start_time":%q,"end_time":%q,"consultation_mode":"ONLINE"}]}`,
		fx.now.Add(time.Hour).Format(time.RFC3339),
		fx.now.Add(90*time.Minute).Format(time.RFC3339))

	c, rec := adminRequest(fx, http.MethodPost, "/", body)
	c.SetParamNames("doctorId")
	c.SetParamValues(fx.doctor.ID.String())

	if err := h.CreateSlots(c); err != nil {
		t.Fatalf("CreateSlots handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []TimeSlot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 1 || !resp.Data[0].IsActive {
		t.Errorf("response data = %+v, want one active slot", resp.Data)
	}
}

func TestHandlerCreateSlots_OverlapEnvelope(t *testing.T) {
	fx := newFixture(t)
	h := NewHandler(fx.svc)
	fx.addSlot(time.Hour, time.Hour, true)

	body := fmt.Sprintf(`{"slots":[{"start_time":%q,"end_time":%q,"consultation_mode":"ONLINE"}]}`,
		fx.now.Add(90*time.Minute).Format(time.RFC3339),
		fx.now.Add(2*time.Hour).Format(time.RFC3339))

	c, rec := adminRequest(fx, http.MethodPost, "/", body)
	c.SetParamNames("doctorId")
	c.SetParamValues(fx.doctor.ID.String())

	if err := h.CreateSlots(c); err != nil {
		t.Fatalf("CreateSlots handler: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	var resp struct {
		Error struct {
			Code   string `json:"code"`
			Detail struct {
				Overlaps []json.RawMessage `json:"overlaps"`
			} `json:"detail"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != "OVERLAP" || len(resp.Error.Detail.Overlaps) != 1 {
		t.Errorf("error = %+v, want OVERLAP with one conflict", resp.Error)
	}
}

func TestHandlerHoldSlot(t *testing.T) {
	fx := newFixture(t)
	h := NewHandler(fx.svc)
	slot := fx.addSlot(time.Hour, time.Hour, true)

	c, rec := patientRequest(fx, http.MethodPost, "/", `{}`)
	c.SetParamNames("id")
	c.SetParamValues(slot.ID.String())

	if err := h.HoldSlot(c); err != nil {
		t.Fatalf("HoldSlot handler: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		BookingID uuid.UUID  `json:"booking_id"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BookingID == uuid.Nil || resp.ExpiresAt == nil {
		t.Errorf("response = %+v, want booking_id and expires_at", resp)
	}
}

func TestHandlerConfirm_ExpiredHold(t *testing.T) {
	fx := newFixture(t)
	h := NewHandler(fx.svc)
	slot := fx.addSlot(time.Hour, time.Hour, true)
	b, err := fx.svc.HoldSlot(context.Background(), fx.user.ID, slot.ID, nil)
	if err != nil {
		t.Fatalf("HoldSlot: %v", err)
	}
	fx.now = fx.now.Add(11 * time.Minute)

	c, rec := patientRequest(fx, http.MethodPost, "/", ``)
	c.SetParamNames("id")
	c.SetParamValues(b.ID.String())

	if err := h.ConfirmBooking(c); err != nil {
		t.Fatalf("ConfirmBooking handler: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "BOOKING_EXPIRED") {
		t.Errorf("body = %s, want BOOKING_EXPIRED code", rec.Body.String())
	}
}

func TestHandlerInvalidID(t *testing.T) {
	fx := newFixture(t)
	h := NewHandler(fx.svc)

	c, _ := patientRequest(fx, http.MethodPost, "/", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.HoldSlot(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("err = %v, want 400 HTTPError", err)
	}
}
