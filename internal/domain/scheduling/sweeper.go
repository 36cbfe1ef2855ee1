package scheduling

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/careslot/careslot/internal/platform/db"
)

// Sweeper runs the periodic reconciliation jobs. Both sweeps are stateless
// and idempotent: a missed or doubled run converges to the same state.
type Sweeper struct {
	slots    SlotRepository
	bookings BookingRepository
	tx       db.TxRunner
	log      zerolog.Logger

	expireEvery  time.Duration
	releaseEvery time.Duration

	now func() time.Time
}

func NewSweeper(slots SlotRepository, bookings BookingRepository, tx db.TxRunner, log zerolog.Logger, expireEvery, releaseEvery time.Duration) *Sweeper {
	if expireEvery <= 0 {
		expireEvery = 60 * time.Second
	}
	if releaseEvery <= 0 {
		releaseEvery = 120 * time.Second
	}
	return &Sweeper{
		slots:        slots,
		bookings:     bookings,
		tx:           tx,
		log:          log.With().Str("component", "sweeper").Logger(),
		expireEvery:  expireEvery,
		releaseEvery: releaseEvery,
		now:          time.Now,
	}
}

// ExpireHoldBookings cancels holds whose window has passed and reactivates
// their slots, all in one transaction. Returns the number of holds expired.
func (s *Sweeper) ExpireHoldBookings(ctx context.Context) (int, error) {
	var expired int
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		slotIDs, err := s.bookings.ExpireHolds(ctx, s.now())
		if err != nil {
			return err
		}
		expired = len(slotIDs)
		if len(slotIDs) == 0 {
			return nil
		}
		_, err = s.slots.Reactivate(ctx, slotIDs)
		return err
	})
	return expired, err
}

// ReleaseAbandonedSlots reactivates slots that cancelled bookings left
// inactive. Slots claimed again since cancellation are skipped.
func (s *Sweeper) ReleaseAbandonedSlots(ctx context.Context) (int, error) {
	var released int
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		slotIDs, err := s.bookings.SlotsPendingRelease(ctx)
		if err != nil {
			return err
		}
		if len(slotIDs) == 0 {
			return nil
		}
		released, err = s.slots.Reactivate(ctx, slotIDs)
		return err
	})
	return released, err
}

// Run drives both sweeps on their tickers until the context is cancelled.
// Errors are logged and the loop continues.
func (s *Sweeper) Run(ctx context.Context) {
	expireTicker := time.NewTicker(s.expireEvery)
	releaseTicker := time.NewTicker(s.releaseEvery)
	defer expireTicker.Stop()
	defer releaseTicker.Stop()

	s.log.Info().
		Dur("expire_interval", s.expireEvery).
		Dur("release_interval", s.releaseEvery).
		Msg("sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper stopped")
			return
		case <-expireTicker.C:
			s.runOnce(ctx, "expire_holds", s.ExpireHoldBookings)
		case <-releaseTicker.C:
			s.runOnce(ctx, "release_slots", s.ReleaseAbandonedSlots)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context, name string, fn func(context.Context) (int, error)) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			s.log.Error().
				Str("sweep", name).
				Interface("panic", r).
				Bytes("stack", buf[:n]).
				Msg("sweep panicked")
		}
	}()

	n, err := fn(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("sweep", name).Msg("sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Str("sweep", name).Int("affected", n).Msg("sweep completed")
	}
}
