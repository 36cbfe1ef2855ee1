package directory

import (
	"time"

	"github.com/google/uuid"
)

// Hospital is a marketplace tenant. ConsultationMode is the ceiling for every
// slot created under it: ONLINE, OFFLINE or BOTH.
type Hospital struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Address          string    `json:"address,omitempty"`
	ConsultationMode string    `json:"consultation_mode"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Doctor struct {
	ID               uuid.UUID `json:"id"`
	HospitalID       uuid.UUID `json:"hospital_id"`
	Name             string    `json:"name"`
	Specialty        string    `json:"specialty,omitempty"`
	ConsultationMode string    `json:"consultation_mode"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
