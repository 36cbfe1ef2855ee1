package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/careslot/careslot/internal/platform/apperr"
)

type Service struct {
	repo NotificationRepository
}

func NewService(repo NotificationRepository) *Service {
	return &Service{repo: repo}
}

// Record inserts a notification row. Called from inside a booking transaction,
// the row commits or rolls back with the booking.
func (s *Service) Record(ctx context.Context, hospitalID, bookingID uuid.UUID, title, body string) error {
	n := &Notification{HospitalID: hospitalID, BookingID: bookingID, Title: title, Body: body}
	return s.repo.Create(ctx, n)
}

func (s *Service) List(ctx context.Context, hospitalID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	items, total, err := s.repo.ListByHospital(ctx, hospitalID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) MarkRead(ctx context.Context, id, hospitalID uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, id, hospitalID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.NotFound("NOTIFICATION_NOT_FOUND", "notification not found")
	}
	return nil
}
