package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/careslot/internal/platform/apperr"
	"github.com/careslot/careslot/internal/platform/cache"
	"github.com/careslot/careslot/internal/platform/db"
	"github.com/careslot/careslot/internal/platform/payments"
)

// Collaborator lookups from the directory and identity domains. Adapters are
// wired in main so this package stays decoupled from their packages.

var (
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrHospitalNotFound = errors.New("hospital not found")
	ErrUserNotFound     = errors.New("user not found")
)

type DoctorInfo struct {
	ID         uuid.UUID
	HospitalID uuid.UUID
	Name       string
	Mode       ConsultationMode
	Active     bool
}

type HospitalInfo struct {
	ID     uuid.UUID
	Name   string
	Mode   ConsultationMode
	Active bool
}

type UserInfo struct {
	ID   uuid.UUID
	Name string
}

type Directory interface {
	Doctor(ctx context.Context, id uuid.UUID) (*DoctorInfo, error)
	Hospital(ctx context.Context, id uuid.UUID) (*HospitalInfo, error)
}

type UserLookup interface {
	User(ctx context.Context, id uuid.UUID) (*UserInfo, error)
}

type ProfileStore interface {
	// EnsureSelf returns the id of the user's own patient profile, creating
	// it on first use.
	EnsureSelf(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	Owns(ctx context.Context, userID, profileID uuid.UUID) (bool, error)
}

type NotificationSink interface {
	Notify(ctx context.Context, hospitalID, bookingID uuid.UUID, title, body string) error
}

type Deps struct {
	Slots    SlotRepository
	Bookings BookingRepository
	Tx       db.TxRunner

	Directory Directory
	Users     UserLookup
	Profiles  ProfileStore
	Notifier  NotificationSink

	Verifier *payments.Verifier
	Cache    *cache.Cache
	Logger   zerolog.Logger

	HoldTTL          time.Duration
	PaymentDevBypass bool
}

type Service struct {
	slots    SlotRepository
	bookings BookingRepository
	tx       db.TxRunner

	dir      Directory
	users    UserLookup
	profiles ProfileStore
	notifier NotificationSink

	verifier  *payments.Verifier
	cache     *cache.Cache
	log       zerolog.Logger
	holdTTL   time.Duration
	devBypass bool

	now func() time.Time
}

func NewService(d Deps) *Service {
	if d.HoldTTL <= 0 {
		d.HoldTTL = 10 * time.Minute
	}
	return &Service{
		slots:     d.Slots,
		bookings:  d.Bookings,
		tx:        d.Tx,
		dir:       d.Directory,
		users:     d.Users,
		profiles:  d.Profiles,
		notifier:  d.Notifier,
		verifier:  d.Verifier,
		cache:     d.Cache,
		log:       d.Logger,
		holdTTL:   d.HoldTTL,
		devBypass: d.PaymentDevBypass,
		now:       time.Now,
	}
}

// -- Slots --

// CreateSlots validates and creates a batch of slots for a doctor. The whole
// batch fails on the first violation, reporting the offending index. Overlap
// against existing active slots is checked once before the transaction and
// again inside it; the in-transaction check is authoritative.
func (s *Service) CreateSlots(ctx context.Context, hospitalID, doctorID uuid.UUID, inputs []SlotInput) ([]*TimeSlot, error) {
	doctor, err := s.doctorInfo(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.HospitalID != hospitalID {
		return nil, apperr.Forbidden("NOT_OWNER", "doctor belongs to another hospital")
	}
	hospital, err := s.hospitalInfo(ctx, doctor.HospitalID)
	if err != nil {
		return nil, err
	}

	if len(inputs) == 0 {
		return nil, apperr.Validation("EMPTY_BATCH", "at least one slot is required")
	}
	if len(inputs) > MaxBatchSize {
		return nil, apperr.Validation("BATCH_TOO_LARGE",
			fmt.Sprintf("at most %d slots per request", MaxBatchSize))
	}

	now := s.now()
	for i, in := range inputs {
		if err := validateSlotInput(in, hospital.Mode, now); err != nil {
			return nil, err.WithDetail(map[string]interface{}{"index": i})
		}
	}
	for i := range inputs {
		for j := i + 1; j < len(inputs); j++ {
			if inputs[i].StartTime.Before(inputs[j].EndTime) && inputs[i].EndTime.After(inputs[j].StartTime) {
				return nil, apperr.Conflict("OVERLAP", "requested slots overlap each other").
					WithDetail(map[string]interface{}{"indexes": []int{i, j}})
			}
		}
	}

	minStart, maxEnd := inputs[0].StartTime, inputs[0].EndTime
	for _, in := range inputs[1:] {
		if in.StartTime.Before(minStart) {
			minStart = in.StartTime
		}
		if in.EndTime.After(maxEnd) {
			maxEnd = in.EndTime
		}
	}

	if err := s.checkOverlap(ctx, doctorID, uuid.Nil, inputs, minStart, maxEnd); err != nil {
		return nil, err
	}

	slots := make([]*TimeSlot, len(inputs))
	for i, in := range inputs {
		slots[i] = &TimeSlot{
			DoctorID:   doctorID,
			HospitalID: doctor.HospitalID,
			StartTime:  in.StartTime,
			EndTime:    in.EndTime,
			Mode:       in.Mode,
			IsActive:   true,
		}
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkOverlap(ctx, doctorID, uuid.Nil, inputs, minStart, maxEnd); err != nil {
			return err
		}
		if err := s.slots.CreateBatch(ctx, slots); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSlots(doctorID)
	return slots, nil
}

// checkOverlap queries active slots inside the batch's bounding interval and
// rejects when any of them intersects a requested slot. excludeID skips the
// slot being updated.
func (s *Service) checkOverlap(ctx context.Context, doctorID, excludeID uuid.UUID, inputs []SlotInput, minStart, maxEnd time.Time) error {
	existing, err := s.slots.FindOverlapping(ctx, doctorID, minStart, maxEnd)
	if err != nil {
		return apperr.Internal(err)
	}
	var conflicts []map[string]interface{}
	for _, e := range existing {
		if e.ID == excludeID {
			continue
		}
		for _, in := range inputs {
			if e.Overlaps(in.StartTime, in.EndTime) {
				conflicts = append(conflicts, map[string]interface{}{
					"slot_id":    e.ID,
					"start_time": e.StartTime,
					"end_time":   e.EndTime,
				})
				break
			}
		}
	}
	if len(conflicts) > 0 {
		return apperr.Conflict("OVERLAP", "requested time overlaps existing slots").
			WithDetail(map[string]interface{}{"overlaps": conflicts})
	}
	return nil
}

func validateSlotInput(in SlotInput, ceiling ConsultationMode, now time.Time) *apperr.Error {
	if !in.Mode.Valid() {
		return apperr.Validation("INVALID_MODE", "consultation_mode must be ONLINE, OFFLINE or BOTH")
	}
	if !ModeAllows(ceiling, in.Mode) {
		return apperr.Validation("MODE_NOT_ALLOWED",
			fmt.Sprintf("hospital mode %s does not allow %s slots", ceiling, in.Mode))
	}
	if !in.EndTime.After(in.StartTime) {
		return apperr.Validation("INVALID_RANGE", "end_time must be after start_time")
	}
	if in.EndTime.Sub(in.StartTime) > MaxSlotDuration {
		return apperr.Validation("DURATION_TOO_LONG", "slot may not exceed 12 hours")
	}
	if in.EndTime.Before(now.Add(-PastGrace)) {
		return apperr.Validation("PAST_SLOT", "slot lies entirely in the past")
	}
	return nil
}

type slotPage struct {
	Items []*TimeSlot
	Total int
}

func (s *Service) ListSlots(ctx context.Context, doctorID uuid.UUID, f SlotFilter, limit, offset int) ([]*TimeSlot, int, error) {
	key := slotCacheKey(doctorID, f, limit, offset)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			page := v.(slotPage)
			return page.Items, page.Total, nil
		}
	}

	if _, err := s.doctorInfo(ctx, doctorID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.slots.ListByDoctor(ctx, doctorID, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	if s.cache != nil {
		s.cache.Set(key, slotPage{Items: items, Total: total})
	}
	return items, total, nil
}

func slotCacheKey(doctorID uuid.UUID, f SlotFilter, limit, offset int) string {
	active := "any"
	if f.Active != nil {
		active = fmt.Sprintf("%t", *f.Active)
	}
	return fmt.Sprintf("slots:%s:%s:%s:%d:%d", doctorID, active, f.Mode, limit, offset)
}

func (s *Service) invalidateSlots(doctorID uuid.UUID) {
	if s.cache != nil {
		s.cache.InvalidatePrefix("slots:" + doctorID.String())
	}
}

func (s *Service) UpdateSlot(ctx context.Context, hospitalID, slotID uuid.UUID, in SlotInput) (*TimeSlot, error) {
	slot, err := s.getSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.HospitalID != hospitalID {
		return nil, apperr.Forbidden("NOT_OWNER", "slot belongs to another hospital")
	}

	now := s.now()
	hospital, err := s.hospitalInfo(ctx, slot.HospitalID)
	if err != nil {
		return nil, err
	}
	if verr := validateSlotInput(in, hospital.Mode, now); verr != nil {
		return nil, verr
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Booking check runs inside the transaction so a hold committed
		// after the handler loaded the slot still blocks the update.
		if existing, err := s.bookings.GetBySlotID(ctx, slotID); err == nil {
			if existing.Blocks(now) {
				return apperr.Conflict("SLOT_BOOKED", "slot has a booking")
			}
		} else if !errors.Is(err, ErrBookingNotFound) {
			return apperr.Internal(err)
		}
		if err := s.checkOverlap(ctx, slot.DoctorID, slot.ID, []SlotInput{in}, in.StartTime, in.EndTime); err != nil {
			return err
		}
		slot.StartTime = in.StartTime
		slot.EndTime = in.EndTime
		slot.Mode = in.Mode
		if err := s.slots.Update(ctx, slot); err != nil {
			if errors.Is(err, ErrSlotNotFound) {
				return apperr.NotFound("SLOT_NOT_FOUND", "slot not found")
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSlots(slot.DoctorID)
	return slot, nil
}

func (s *Service) DeleteSlot(ctx context.Context, hospitalID, slotID uuid.UUID) error {
	slot, err := s.getSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.HospitalID != hospitalID {
		return apperr.Forbidden("NOT_OWNER", "slot belongs to another hospital")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		booked, err := s.bookings.HasAnyForSlot(ctx, slotID)
		if err != nil {
			return apperr.Internal(err)
		}
		if booked {
			return apperr.Conflict("SLOT_BOOKED", "slot has booking history")
		}
		if err := s.slots.Delete(ctx, slotID); err != nil {
			if errors.Is(err, ErrSlotNotFound) {
				return apperr.NotFound("SLOT_NOT_FOUND", "slot not found")
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateSlots(slot.DoctorID)
	return nil
}

// -- Bookings --

// BookSlot books an active slot immediately as CONFIRMED.
func (s *Service) BookSlot(ctx context.Context, userID, slotID uuid.UUID, profileID *uuid.UUID) (*Booking, error) {
	return s.book(ctx, userID, slotID, profileID, false)
}

// HoldSlot places a HOLD on a slot for the configured TTL. An expired hold on
// the slot does not block; it is cancelled inside the same transaction.
func (s *Service) HoldSlot(ctx context.Context, userID, slotID uuid.UUID, profileID *uuid.UUID) (*Booking, error) {
	return s.book(ctx, userID, slotID, profileID, true)
}

func (s *Service) book(ctx context.Context, userID, slotID uuid.UUID, profileID *uuid.UUID, hold bool) (*Booking, error) {
	now := s.now()
	var created *Booking
	var doctorID uuid.UUID

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		slot, err := s.getSlot(ctx, slotID)
		if err != nil {
			return err
		}
		doctorID = slot.DoctorID

		existing, err := s.bookings.GetBySlotID(ctx, slotID)
		if err != nil && !errors.Is(err, ErrBookingNotFound) {
			return apperr.Internal(err)
		}

		if existing != nil && existing.Blocks(now) {
			return apperr.Conflict("ALREADY_BOOKED", "slot is already booked")
		}

		if !hold {
			// Direct booking requires the slot to be live. An expired hold
			// leaves the slot inactive until the sweep catches up.
			if !slot.IsActive {
				return apperr.Validation("SLOT_INACTIVE", "slot is not active")
			}
		} else {
			switch {
			case existing != nil:
				// Expired hold. Cancel it so the slot's uniqueness
				// constraint admits the new row.
				ok, err := s.bookings.UpdateStatus(ctx, existing.ID, StatusHold, StatusCancelled)
				if err != nil {
					return apperr.Internal(err)
				}
				if !ok {
					return apperr.Conflict("ALREADY_BOOKED", "slot is already booked")
				}
			case !slot.IsActive:
				return apperr.Conflict("SLOT_INACTIVE", "slot is not active")
			}
		}

		var pid uuid.UUID
		if profileID == nil {
			pid, err = s.profiles.EnsureSelf(ctx, userID)
			if err != nil {
				return asAppErr(err)
			}
		} else {
			owns, err := s.profiles.Owns(ctx, userID, *profileID)
			if err != nil {
				return asAppErr(err)
			}
			if !owns {
				return apperr.Forbidden("PROFILE_NOT_OWNED", "patient profile does not belong to caller")
			}
			pid = *profileID
		}

		user, err := s.users.User(ctx, userID)
		if errors.Is(err, ErrUserNotFound) {
			return apperr.NotFound("USER_NOT_FOUND", "user not found")
		}
		if err != nil {
			return asAppErr(err)
		}
		doctor, err := s.doctorInfo(ctx, slot.DoctorID)
		if err != nil {
			return err
		}
		hospital, err := s.hospitalInfo(ctx, slot.HospitalID)
		if err != nil {
			return err
		}

		b := &Booking{
			SlotID:           slotID,
			UserID:           userID,
			PatientProfileID: pid,
			DoctorID:         slot.DoctorID,
			HospitalID:       slot.HospitalID,
			StartTime:        slot.StartTime,
			EndTime:          slot.EndTime,
			UserName:         user.Name,
			DoctorName:       doctor.Name,
			HospitalName:     hospital.Name,
		}
		title := "Slot booked"
		if hold {
			b.Status = StatusHold
			exp := now.Add(s.holdTTL)
			b.ExpiresAt = &exp
			title = "Slot held"
		} else {
			b.Status = StatusConfirmed
		}

		if err := s.bookings.Create(ctx, b); err != nil {
			if errors.Is(err, ErrSlotTaken) {
				s.log.Warn().
					Str("slot_id", slotID.String()).
					Str("user_id", userID.String()).
					Msg("booking insert lost race on slot uniqueness")
				return apperr.Conflict("CONFLICT", "slot was booked by another request")
			}
			return apperr.Internal(err)
		}
		if err := s.slots.SetActive(ctx, slotID, false); err != nil {
			return apperr.Internal(err)
		}

		body := fmt.Sprintf("%s %s %s with %s",
			user.Name, actionWord(hold), slot.StartTime.Format(time.RFC3339), doctor.Name)
		if err := s.notifier.Notify(ctx, slot.HospitalID, b.ID, title, body); err != nil {
			return apperr.Internal(err)
		}

		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSlots(doctorID)
	return created, nil
}

func actionWord(hold bool) string {
	if hold {
		return "held"
	}
	return "booked"
}

// ConfirmBooking promotes the caller's HOLD to CONFIRMED. An expired hold is
// cancelled on the spot and reported as BOOKING_EXPIRED; its slot is released
// by the sweep.
func (s *Service) ConfirmBooking(ctx context.Context, userID, bookingID uuid.UUID) (*Booking, error) {
	return s.confirm(ctx, userID, bookingID, "")
}

// ConfirmBookingWithPayment verifies the payment signature before confirming
// and records the payment order on the booking. The dev bypass skips
// verification only when explicitly configured; the verifier itself always
// fails closed.
func (s *Service) ConfirmBookingWithPayment(ctx context.Context, userID, bookingID uuid.UUID, orderID, paymentID, signature string) (*Booking, error) {
	if !s.devBypass {
		if s.verifier == nil || !s.verifier.Verify(orderID, paymentID, signature) {
			return nil, apperr.Validation("INVALID_SIGNATURE", "payment signature verification failed")
		}
	}
	if orderID == "" {
		return nil, apperr.Validation("INVALID_SIGNATURE", "order_id is required")
	}
	return s.confirm(ctx, userID, bookingID, orderID)
}

func (s *Service) confirm(ctx context.Context, userID, bookingID uuid.UUID, orderID string) (*Booking, error) {
	var out *Booking
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.getBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return apperr.Forbidden("NOT_OWNER", "booking belongs to another user")
		}
		switch b.Status {
		case StatusConfirmed:
			return apperr.Conflict("ALREADY_CONFIRMED", "booking is already confirmed")
		case StatusCancelled:
			return apperr.Conflict("BOOKING_CANCELLED", "booking is cancelled")
		}
		if b.Expired(s.now()) {
			// Lazy expiry: finalize the cancellation now, release the slot
			// via the sweep.
			if _, err := s.bookings.UpdateStatus(ctx, b.ID, StatusHold, StatusCancelled); err != nil {
				return apperr.Internal(err)
			}
			return apperr.Conflict("BOOKING_EXPIRED", "booking expired")
		}

		ok, err := s.bookings.UpdateStatus(ctx, b.ID, StatusHold, StatusConfirmed)
		if err != nil {
			return apperr.Internal(err)
		}
		if !ok {
			return apperr.Conflict("CONFLICT", "booking changed concurrently")
		}
		if orderID != "" {
			if err := s.bookings.SetPaymentOrder(ctx, b.ID, orderID); err != nil {
				return apperr.Internal(err)
			}
			b.PaymentOrderID = &orderID
		}
		b.Status = StatusConfirmed
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelBooking cancels a booking for its owner or an admin of its hospital.
// The slot stays inactive until the release sweep reactivates it.
func (s *Service) CancelBooking(ctx context.Context, callerID, callerHospital, bookingID uuid.UUID) (*Booking, error) {
	var out *Booking
	var doctorID uuid.UUID
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.getBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != callerID && (callerHospital == uuid.Nil || b.HospitalID != callerHospital) {
			return apperr.Forbidden("NOT_OWNER", "booking belongs to another user")
		}
		if b.Status == StatusCancelled {
			return apperr.Conflict("ALREADY_CANCELLED", "booking is already cancelled")
		}

		ok, err := s.bookings.UpdateStatus(ctx, b.ID, b.Status, StatusCancelled)
		if err != nil {
			return apperr.Internal(err)
		}
		if !ok {
			return apperr.Conflict("CONFLICT", "booking changed concurrently")
		}
		b.Status = StatusCancelled
		doctorID = b.DoctorID
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSlots(doctorID)
	return out, nil
}

func (s *Service) ListUserBookings(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	items, total, err := s.bookings.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListHospitalBookings(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	items, total, err := s.bookings.ListByHospital(ctx, hospitalID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// -- helpers --

func (s *Service) getSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, apperr.NotFound("SLOT_NOT_FOUND", "slot not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return slot, nil
}

func (s *Service) getBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, ErrBookingNotFound) {
		return nil, apperr.NotFound("BOOKING_NOT_FOUND", "booking not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return b, nil
}

func (s *Service) doctorInfo(ctx context.Context, id uuid.UUID) (*DoctorInfo, error) {
	d, err := s.dir.Doctor(ctx, id)
	if errors.Is(err, ErrDoctorNotFound) {
		return nil, apperr.NotFound("DOCTOR_NOT_FOUND", "doctor not found")
	}
	if err != nil {
		return nil, asAppErr(err)
	}
	return d, nil
}

func (s *Service) hospitalInfo(ctx context.Context, id uuid.UUID) (*HospitalInfo, error) {
	h, err := s.dir.Hospital(ctx, id)
	if errors.Is(err, ErrHospitalNotFound) {
		return nil, apperr.NotFound("HOSPITAL_NOT_FOUND", "hospital not found")
	}
	if err != nil {
		return nil, asAppErr(err)
	}
	return h, nil
}

func asAppErr(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(err)
}
