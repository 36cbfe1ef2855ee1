package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/platform/apperr"
)

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type mockProfileRepo struct {
	profiles map[uuid.UUID]*PatientProfile
}

func (m *mockProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*PatientProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (m *mockProfileRepo) GetSelf(_ context.Context, userID uuid.UUID) (*PatientProfile, error) {
	for _, p := range m.profiles {
		if p.UserID == userID && p.Relation == RelationSelf {
			return p, nil
		}
	}
	return nil, ErrProfileNotFound
}

func (m *mockProfileRepo) Create(_ context.Context, p *PatientProfile) error {
	p.ID = uuid.New()
	m.profiles[p.ID] = p
	return nil
}

func (m *mockProfileRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*PatientProfile, error) {
	var items []*PatientProfile
	for _, p := range m.profiles {
		if p.UserID == userID {
			items = append(items, p)
		}
	}
	return items, nil
}

func newTestService() (*Service, *mockUserRepo, *mockProfileRepo) {
	ur := &mockUserRepo{users: map[uuid.UUID]*User{}}
	pr := &mockProfileRepo{profiles: map[uuid.UUID]*PatientProfile{}}
	return NewService(ur, pr), ur, pr
}

func TestEnsureSelfProfile_CreatesOnce(t *testing.T) {
	svc, ur, pr := newTestService()
	uid := uuid.New()
	ur.users[uid] = &User{ID: uid, Name: "Asha"}

	first, err := svc.EnsureSelfProfile(context.Background(), uid)
	if err != nil {
		t.Fatalf("EnsureSelfProfile: %v", err)
	}
	if first.Relation != RelationSelf || first.Name != "Asha" {
		t.Errorf("profile = %+v, want self profile named Asha", first)
	}

	second, err := svc.EnsureSelfProfile(context.Background(), uid)
	if err != nil {
		t.Fatalf("EnsureSelfProfile (second): %v", err)
	}
	if second.ID != first.ID {
		t.Error("second call created a new profile instead of reusing the first")
	}
	if len(pr.profiles) != 1 {
		t.Errorf("profile count = %d, want 1", len(pr.profiles))
	}
}

func TestEnsureSelfProfile_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.EnsureSelfProfile(context.Background(), uuid.New())
	if apperr.CodeOf(err) != "USER_NOT_FOUND" {
		t.Errorf("code = %s, want USER_NOT_FOUND", apperr.CodeOf(err))
	}
}

func TestCreateDependent_Validation(t *testing.T) {
	svc, ur, _ := newTestService()
	uid := uuid.New()
	ur.users[uid] = &User{ID: uid, Name: "Asha"}

	if _, err := svc.CreateDependent(context.Background(), uid, "  ", "child", nil); apperr.CodeOf(err) != "INVALID_NAME" {
		t.Errorf("blank name: code = %s, want INVALID_NAME", apperr.CodeOf(err))
	}
	if _, err := svc.CreateDependent(context.Background(), uid, "Ravi", "cousin", nil); apperr.CodeOf(err) != "INVALID_RELATION" {
		t.Errorf("bad relation: code = %s, want INVALID_RELATION", apperr.CodeOf(err))
	}
	p, err := svc.CreateDependent(context.Background(), uid, "Ravi", "child", nil)
	if err != nil {
		t.Fatalf("CreateDependent: %v", err)
	}
	if p.Relation != "child" {
		t.Errorf("relation = %s, want child", p.Relation)
	}
}

func TestOwnsProfile(t *testing.T) {
	svc, _, pr := newTestService()
	owner := uuid.New()
	other := uuid.New()
	p := &PatientProfile{UserID: owner, Name: "Ravi", Relation: "child"}
	pr.Create(context.Background(), p)

	if ok, _ := svc.OwnsProfile(context.Background(), owner, p.ID); !ok {
		t.Error("owner should own the profile")
	}
	if ok, _ := svc.OwnsProfile(context.Background(), other, p.ID); ok {
		t.Error("non-owner should not own the profile")
	}
	if ok, _ := svc.OwnsProfile(context.Background(), owner, uuid.New()); ok {
		t.Error("missing profile should not be owned")
	}
}
