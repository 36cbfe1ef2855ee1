package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/platform/apperr"
)

var validRelations = map[string]bool{
	"spouse": true, "child": true, "parent": true, "other": true,
}

type Service struct {
	users    UserRepository
	profiles ProfileRepository
}

func NewService(users UserRepository, profiles ProfileRepository) *Service {
	return &Service{users: users, profiles: profiles}
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("USER_NOT_FOUND", "user not found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// EnsureSelfProfile returns the user's own patient profile, creating it from
// the account name on first use.
func (s *Service) EnsureSelfProfile(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	p, err := s.profiles.GetSelf(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, apperr.Internal(err)
	}

	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p = &PatientProfile{UserID: userID, Name: u.Name, Relation: RelationSelf}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *Service) CreateDependent(ctx context.Context, userID uuid.UUID, name, relation string, dob *time.Time) (*PatientProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("INVALID_NAME", "name is required")
	}
	if !validRelations[relation] {
		return nil, apperr.Validation("INVALID_RELATION", "relation must be one of spouse, child, parent, other")
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	p := &PatientProfile{UserID: userID, Name: name, Relation: relation, DateOfBirth: dob}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *Service) ListProfiles(ctx context.Context, userID uuid.UUID) ([]*PatientProfile, error) {
	items, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// OwnsProfile reports whether the profile exists and belongs to the user.
func (s *Service) OwnsProfile(ctx context.Context, userID, profileID uuid.UUID) (bool, error) {
	p, err := s.profiles.GetByID(ctx, profileID)
	if errors.Is(err, ErrProfileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal(err)
	}
	return p.UserID == userID, nil
}
