package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/platform/apperr"
)

type mockNotifRepo struct {
	items map[uuid.UUID]*Notification
}

func (m *mockNotifRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	m.items[n.ID] = n
	return nil
}

func (m *mockNotifRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	var out []*Notification
	for _, n := range m.items {
		if n.HospitalID != hospitalID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (m *mockNotifRepo) MarkRead(_ context.Context, id, hospitalID uuid.UUID) (bool, error) {
	n, ok := m.items[id]
	if !ok || n.HospitalID != hospitalID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

func TestRecordAndList(t *testing.T) {
	repo := &mockNotifRepo{items: map[uuid.UUID]*Notification{}}
	svc := NewService(repo)
	hid := uuid.New()

	if err := svc.Record(context.Background(), hid, uuid.New(), "Slot booked", "Asha booked a slot"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	items, total, err := svc.List(context.Background(), hid, false, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || items[0].Title != "Slot booked" {
		t.Errorf("got %d items, want 1 titled 'Slot booked'", total)
	}

	other, _, _ := svc.List(context.Background(), uuid.New(), false, 20, 0)
	if len(other) != 0 {
		t.Error("notifications leaked across hospitals")
	}
}

func TestMarkRead(t *testing.T) {
	repo := &mockNotifRepo{items: map[uuid.UUID]*Notification{}}
	svc := NewService(repo)
	hid := uuid.New()
	svc.Record(context.Background(), hid, uuid.New(), "Slot booked", "")

	var id uuid.UUID
	for k := range repo.items {
		id = k
	}
	if err := svc.MarkRead(context.Background(), id, hid); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !repo.items[id].IsRead {
		t.Error("notification not marked read")
	}

	err := svc.MarkRead(context.Background(), id, uuid.New())
	if apperr.CodeOf(err) != "NOTIFICATION_NOT_FOUND" {
		t.Errorf("wrong hospital: code = %s, want NOTIFICATION_NOT_FOUND", apperr.CodeOf(err))
	}

	unread, _, _ := svc.List(context.Background(), hid, true, 20, 0)
	if len(unread) != 0 {
		t.Error("read notification still listed as unread")
	}
}
