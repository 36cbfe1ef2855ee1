package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/platform/apperr"
)

type mockHospitalRepo struct {
	hospitals map[uuid.UUID]*Hospital
}

func (m *mockHospitalRepo) GetByID(_ context.Context, id uuid.UUID) (*Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, ErrHospitalNotFound
	}
	return h, nil
}

func (m *mockHospitalRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*Hospital, int, error) {
	var items []*Hospital
	for _, h := range m.hospitals {
		if activeOnly && !h.IsActive {
			continue
		}
		items = append(items, h)
	}
	return items, len(items), nil
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (m *mockDoctorRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID, activeOnly bool, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		if d.HospitalID != hospitalID {
			continue
		}
		if activeOnly && !d.IsActive {
			continue
		}
		items = append(items, d)
	}
	return items, len(items), nil
}

func newTestService() (*Service, *mockHospitalRepo, *mockDoctorRepo) {
	hr := &mockHospitalRepo{hospitals: map[uuid.UUID]*Hospital{}}
	dr := &mockDoctorRepo{doctors: map[uuid.UUID]*Doctor{}}
	return NewService(hr, dr), hr, dr
}

func TestGetHospital_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.GetHospital(context.Background(), uuid.New())
	if apperr.CodeOf(err) != "HOSPITAL_NOT_FOUND" {
		t.Errorf("code = %s, want HOSPITAL_NOT_FOUND", apperr.CodeOf(err))
	}
	if apperr.Status(err) != 404 {
		t.Errorf("status = %d, want 404", apperr.Status(err))
	}
}

func TestGetDoctor(t *testing.T) {
	svc, _, dr := newTestService()
	id := uuid.New()
	dr.doctors[id] = &Doctor{ID: id, Name: "Dr Rao", ConsultationMode: "BOTH", IsActive: true}

	d, err := svc.GetDoctor(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDoctor: %v", err)
	}
	if d.Name != "Dr Rao" {
		t.Errorf("name = %s, want Dr Rao", d.Name)
	}

	_, err = svc.GetDoctor(context.Background(), uuid.New())
	if apperr.CodeOf(err) != "DOCTOR_NOT_FOUND" {
		t.Errorf("code = %s, want DOCTOR_NOT_FOUND", apperr.CodeOf(err))
	}
}

func TestListDoctors_UnknownHospital(t *testing.T) {
	svc, _, _ := newTestService()
	_, _, err := svc.ListDoctors(context.Background(), uuid.New(), true, 20, 0)
	if apperr.CodeOf(err) != "HOSPITAL_NOT_FOUND" {
		t.Errorf("code = %s, want HOSPITAL_NOT_FOUND", apperr.CodeOf(err))
	}
}

func TestListDoctors_ActiveFilter(t *testing.T) {
	svc, hr, dr := newTestService()
	hid := uuid.New()
	hr.hospitals[hid] = &Hospital{ID: hid, Name: "City Care", ConsultationMode: "BOTH", IsActive: true}
	active := uuid.New()
	inactive := uuid.New()
	dr.doctors[active] = &Doctor{ID: active, HospitalID: hid, IsActive: true}
	dr.doctors[inactive] = &Doctor{ID: inactive, HospitalID: hid, IsActive: false}

	items, total, err := svc.ListDoctors(context.Background(), hid, true, 20, 0)
	if err != nil {
		t.Fatalf("ListDoctors: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != active {
		t.Errorf("expected only the active doctor, got %d items", len(items))
	}
}
