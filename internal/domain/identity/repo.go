package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("patient profile not found")
)

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*PatientProfile, error)
	GetSelf(ctx context.Context, userID uuid.UUID) (*PatientProfile, error)
	Create(ctx context.Context, p *PatientProfile) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*PatientProfile, error)
}
