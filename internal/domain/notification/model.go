package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a durable message for a hospital's staff, written in the
// same transaction as the booking it describes.
type Notification struct {
	ID         uuid.UUID `json:"id"`
	HospitalID uuid.UUID `json:"hospital_id"`
	BookingID  uuid.UUID `json:"booking_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}
