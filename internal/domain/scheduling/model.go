package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// ConsultationMode is how an appointment is delivered. A hospital's mode acts
// as a ceiling: BOTH admits any slot mode, a narrower mode admits only itself.
type ConsultationMode string

const (
	ModeOnline  ConsultationMode = "ONLINE"
	ModeOffline ConsultationMode = "OFFLINE"
	ModeBoth    ConsultationMode = "BOTH"
)

func (m ConsultationMode) Valid() bool {
	return m == ModeOnline || m == ModeOffline || m == ModeBoth
}

// ModeAllows reports whether a slot of the candidate mode may exist under the
// given ceiling.
func ModeAllows(ceiling, candidate ConsultationMode) bool {
	if !ceiling.Valid() || !candidate.Valid() {
		return false
	}
	if ceiling == ModeBoth {
		return true
	}
	return ceiling == candidate
}

type BookingStatus string

const (
	StatusHold      BookingStatus = "HOLD"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// Slot validation limits.
const (
	MaxBatchSize    = 50
	MaxSlotDuration = 12 * time.Hour
	PastGrace       = 5 * time.Minute
)

type TimeSlot struct {
	ID         uuid.UUID        `json:"id"`
	DoctorID   uuid.UUID        `json:"doctor_id"`
	HospitalID uuid.UUID        `json:"hospital_id"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	Mode       ConsultationMode `json:"consultation_mode"`
	IsActive   bool             `json:"is_active"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Overlaps reports whether the slot intersects [start, end). Intervals are
// half-open, so back-to-back slots do not overlap.
func (s *TimeSlot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}

// SlotInput is one requested slot in a batch create or an update.
type SlotInput struct {
	StartTime time.Time        `json:"start_time"`
	EndTime   time.Time        `json:"end_time"`
	Mode      ConsultationMode `json:"consultation_mode"`
}

type Booking struct {
	ID               uuid.UUID     `json:"id"`
	SlotID           uuid.UUID     `json:"slot_id"`
	UserID           uuid.UUID     `json:"user_id"`
	PatientProfileID uuid.UUID     `json:"patient_profile_id"`
	DoctorID         uuid.UUID     `json:"doctor_id"`
	HospitalID       uuid.UUID     `json:"hospital_id"`
	Status           BookingStatus `json:"status"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`

	// Display snapshots taken at booking time. The booking stays readable as
	// an audit record even if the referenced rows change later.
	UserName     string `json:"user_name"`
	DoctorName   string `json:"doctor_name"`
	HospitalName string `json:"hospital_name"`

	PaymentOrderID *string   `json:"payment_order_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Expired reports whether the booking is a hold whose window has passed.
// Expiry is evaluated lazily at read time; the sweep cancels the row later.
func (b *Booking) Expired(now time.Time) bool {
	return b.Status == StatusHold && b.ExpiresAt != nil && b.ExpiresAt.Before(now)
}

// Blocks reports whether the booking keeps its slot taken: confirmed, or a
// hold still inside its window.
func (b *Booking) Blocks(now time.Time) bool {
	switch b.Status {
	case StatusConfirmed:
		return true
	case StatusHold:
		return !b.Expired(now)
	default:
		return false
	}
}
