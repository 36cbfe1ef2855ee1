package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound    = errors.New("slot not found")
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSlotTaken is returned by BookingRepository.Create when the slot's
	// uniqueness constraint rejects a concurrent insert.
	ErrSlotTaken = errors.New("slot already has a live booking")
)

// SlotFilter narrows slot listings.
type SlotFilter struct {
	Active *bool
	Mode   ConsultationMode
}

type SlotRepository interface {
	CreateBatch(ctx context.Context, slots []*TimeSlot) error
	GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, f SlotFilter, limit, offset int) ([]*TimeSlot, int, error)
	Update(ctx context.Context, s *TimeSlot) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindOverlapping returns active slots of the doctor intersecting the
	// half-open interval [minStart, maxEnd).
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, minStart, maxEnd time.Time) ([]*TimeSlot, error)

	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Reactivate(ctx context.Context, ids []uuid.UUID) (int, error)
}

type BookingRepository interface {
	// Create inserts the booking, returning ErrSlotTaken when another live
	// booking already holds the slot.
	Create(ctx context.Context, b *Booking) error

	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// GetBySlotID returns the slot's live (non-cancelled) booking, or
	// ErrBookingNotFound when there is none.
	GetBySlotID(ctx context.Context, slotID uuid.UUID) (*Booking, error)

	HasAnyForSlot(ctx context.Context, slotID uuid.UUID) (bool, error)

	// UpdateStatus transitions the booking from one status to another,
	// reporting whether a row actually changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to BookingStatus) (bool, error)

	SetPaymentOrder(ctx context.Context, id uuid.UUID, orderID string) error

	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Booking, int, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Booking, int, error)

	// ExpireHolds cancels every hold whose window passed before now and
	// returns the affected slot ids.
	ExpireHolds(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// SlotsPendingRelease returns ids of slots left inactive by cancelled
	// bookings and not claimed again since.
	SlotsPendingRelease(ctx context.Context) ([]uuid.UUID, error)
}
