package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careslot/careslot/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Slot Repository ===========

type slotRepoPG struct{ pool *pgxpool.Pool }

func NewSlotRepoPG(pool *pgxpool.Pool) SlotRepository { return &slotRepoPG{pool: pool} }

func (r *slotRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const slotCols = `id, doctor_id, hospital_id, start_time, end_time, consultation_mode, is_active, created_at, updated_at`

func (r *slotRepoPG) scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot
	err := row.Scan(&s.ID, &s.DoctorID, &s.HospitalID, &s.StartTime, &s.EndTime, &s.Mode, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	return &s, err
}

func (r *slotRepoPG) CreateBatch(ctx context.Context, slots []*TimeSlot) error {
	conn := r.conn(ctx)
	for _, s := range slots {
		s.ID = uuid.New()
		_, err := conn.Exec(ctx, `
			INSERT INTO time_slot (id, doctor_id, hospital_id, start_time, end_time, consultation_mode, is_active)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			s.ID, s.DoctorID, s.HospitalID, s.StartTime, s.EndTime, s.Mode, s.IsActive)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *slotRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	return r.scanSlot(r.conn(ctx).QueryRow(ctx, `SELECT `+slotCols+` FROM time_slot WHERE id = $1`, id))
}

func (r *slotRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, f SlotFilter, limit, offset int) ([]*TimeSlot, int, error) {
	query := `SELECT ` + slotCols + ` FROM time_slot WHERE doctor_id = $1`
	countQuery := `SELECT COUNT(*) FROM time_slot WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2

	if f.Active != nil {
		query += fmt.Sprintf(` AND is_active = $%d`, idx)
		countQuery += fmt.Sprintf(` AND is_active = $%d`, idx)
		args = append(args, *f.Active)
		idx++
	}
	if f.Mode != "" {
		query += fmt.Sprintf(` AND consultation_mode = $%d`, idx)
		countQuery += fmt.Sprintf(` AND consultation_mode = $%d`, idx)
		args = append(args, f.Mode)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY start_time ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*TimeSlot
	for rows.Next() {
		s, err := r.scanSlot(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func (r *slotRepoPG) Update(ctx context.Context, s *TimeSlot) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE time_slot SET start_time=$2, end_time=$3, consultation_mode=$4, is_active=$5, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.StartTime, s.EndTime, s.Mode, s.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *slotRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM time_slot WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *slotRepoPG) FindOverlapping(ctx context.Context, doctorID uuid.UUID, minStart, maxEnd time.Time) ([]*TimeSlot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotCols+` FROM time_slot
		WHERE doctor_id = $1 AND is_active AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC`,
		doctorID, minStart, maxEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TimeSlot
	for rows.Next() {
		s, err := r.scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

func (r *slotRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE time_slot SET is_active=$2, updated_at=NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *slotRepoPG) Reactivate(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE time_slot SET is_active=TRUE, updated_at=NOW() WHERE id = ANY($1) AND NOT is_active`, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// =========== Booking Repository ===========

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewBookingRepoPG(pool *pgxpool.Pool) BookingRepository { return &bookingRepoPG{pool: pool} }

func (r *bookingRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bookingCols = `id, slot_id, user_id, patient_profile_id, doctor_id, hospital_id, status,
	expires_at, start_time, end_time, user_name, doctor_name, hospital_name,
	payment_order_id, created_at, updated_at`

func (r *bookingRepoPG) scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.SlotID, &b.UserID, &b.PatientProfileID, &b.DoctorID, &b.HospitalID, &b.Status,
		&b.ExpiresAt, &b.StartTime, &b.EndTime, &b.UserName, &b.DoctorName, &b.HospitalName,
		&b.PaymentOrderID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return &b, err
}

func (r *bookingRepoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO booking (id, slot_id, user_id, patient_profile_id, doctor_id, hospital_id, status,
			expires_at, start_time, end_time, user_name, doctor_name, hospital_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		b.ID, b.SlotID, b.UserID, b.PatientProfileID, b.DoctorID, b.HospitalID, b.Status,
		b.ExpiresAt, b.StartTime, b.EndTime, b.UserName, b.DoctorName, b.HospitalName)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlotTaken
	}
	return err
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.scanBooking(r.conn(ctx).QueryRow(ctx, `SELECT `+bookingCols+` FROM booking WHERE id = $1`, id))
}

func (r *bookingRepoPG) GetBySlotID(ctx context.Context, slotID uuid.UUID) (*Booking, error) {
	return r.scanBooking(r.conn(ctx).QueryRow(ctx,
		`SELECT `+bookingCols+` FROM booking WHERE slot_id = $1 AND status <> $2`, slotID, StatusCancelled))
}

func (r *bookingRepoPG) HasAnyForSlot(ctx context.Context, slotID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM booking WHERE slot_id = $1)`, slotID).Scan(&exists)
	return exists, err
}

func (r *bookingRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to BookingStatus) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE booking SET status=$3, updated_at=NOW() WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *bookingRepoPG) SetPaymentOrder(ctx context.Context, id uuid.UUID, orderID string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE booking SET payment_order_id=$2, updated_at=NOW() WHERE id = $1`, id, orderID)
	return err
}

func (r *bookingRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM booking WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM booking WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *bookingRepoPG) ListByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM booking WHERE hospital_id = $1`, hospitalID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+bookingCols+` FROM booking WHERE hospital_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		hospitalID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return r.collect(rows, total)
}

func (r *bookingRepoPG) collect(rows pgx.Rows, total int) ([]*Booking, int, error) {
	var items []*Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, nil
}

func (r *bookingRepoPG) ExpireHolds(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		UPDATE booking SET status=$1, updated_at=NOW()
		WHERE status=$2 AND expires_at < $3
		RETURNING slot_id`,
		StatusCancelled, StatusHold, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slotIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		slotIDs = append(slotIDs, id)
	}
	return slotIDs, nil
}

func (r *bookingRepoPG) SlotsPendingRelease(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT b.slot_id
		FROM booking b
		JOIN time_slot s ON s.id = b.slot_id
		WHERE b.status = $1
		  AND NOT s.is_active
		  AND NOT EXISTS (
			SELECT 1 FROM booking live
			WHERE live.slot_id = b.slot_id AND live.status <> $1
		  )`,
		StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slotIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		slotIDs = append(slotIDs, id)
	}
	return slotIDs, nil
}
