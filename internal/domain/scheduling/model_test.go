package scheduling

import (
	"testing"
	"time"
)

func TestModeAllows(t *testing.T) {
	tests := []struct {
		ceiling   ConsultationMode
		candidate ConsultationMode
		want      bool
	}{
		{ModeBoth, ModeOnline, true},
		{ModeBoth, ModeOffline, true},
		{ModeBoth, ModeBoth, true},
		{ModeOnline, ModeOnline, true},
		{ModeOnline, ModeOffline, false},
		{ModeOnline, ModeBoth, false},
		{ModeOffline, ModeOffline, true},
		{ModeOffline, ModeOnline, false},
		{"", ModeOnline, false},
		{ModeBoth, "HYBRID", false},
	}
	for _, tt := range tests {
		if got := ModeAllows(tt.ceiling, tt.candidate); got != tt.want {
			t.Errorf("ModeAllows(%q, %q) = %v, want %v", tt.ceiling, tt.candidate, got, tt.want)
		}
	}
}

func TestTimeSlotOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slot := &TimeSlot{StartTime: base, EndTime: base.Add(30 * time.Minute)}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"identical", base, base.Add(30 * time.Minute), true},
		{"contained", base.Add(10 * time.Minute), base.Add(20 * time.Minute), true},
		{"straddles start", base.Add(-10 * time.Minute), base.Add(10 * time.Minute), true},
		{"straddles end", base.Add(20 * time.Minute), base.Add(40 * time.Minute), true},
		{"back-to-back after", base.Add(30 * time.Minute), base.Add(60 * time.Minute), false},
		{"back-to-back before", base.Add(-30 * time.Minute), base, false},
		{"disjoint", base.Add(2 * time.Hour), base.Add(3 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := slot.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBookingExpiredAndBlocks(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	liveHold := &Booking{Status: StatusHold, ExpiresAt: &future}
	if liveHold.Expired(now) || !liveHold.Blocks(now) {
		t.Error("unexpired hold should block and not be expired")
	}

	deadHold := &Booking{Status: StatusHold, ExpiresAt: &past}
	if !deadHold.Expired(now) || deadHold.Blocks(now) {
		t.Error("expired hold should be expired and not block")
	}

	confirmed := &Booking{Status: StatusConfirmed, ExpiresAt: &past}
	if confirmed.Expired(now) || !confirmed.Blocks(now) {
		t.Error("confirmed booking should block regardless of expires_at")
	}

	cancelled := &Booking{Status: StatusCancelled}
	if cancelled.Blocks(now) {
		t.Error("cancelled booking should not block")
	}
}
