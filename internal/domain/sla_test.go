package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewSLARecordDerivesDeadlines(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	window := SLAWindow{Response: 2 * time.Hour, Resolution: 24 * time.Hour}

	record := NewSLARecord(submitted, window)

	if !record.ResponseDueAt.Equal(submitted.Add(2 * time.Hour)) {
		t.Errorf("unexpected response due: %s", record.ResponseDueAt)
	}
	if !record.ResolutionDueAt.Equal(submitted.Add(24 * time.Hour)) {
		t.Errorf("unexpected resolution due: %s", record.ResolutionDueAt)
	}
	if record.Paused() {
		t.Errorf("expected new record to be running")
	}
}

func TestSLAPauseResumeShiftsDeadlines(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := NewSLARecord(submitted, SLAWindow{Response: 2 * time.Hour, Resolution: 24 * time.Hour})

	pausedAt := submitted.Add(time.Hour)
	if err := record.Pause(pausedAt); err != nil {
		t.Fatalf("Pause returned error: %v", err)
	}
	if !record.Paused() {
		t.Fatalf("expected record to report paused")
	}

	resumedAt := pausedAt.Add(3 * time.Hour)
	elapsed, err := record.Resume(resumedAt)
	if err != nil {
		t.Fatalf("Resume returned error: %v", err)
	}
	if elapsed != 3*time.Hour {
		t.Errorf("expected 3h elapsed, got %s", elapsed)
	}
	if record.PausedTotal != 3*time.Hour {
		t.Errorf("expected accumulated pause of 3h, got %s", record.PausedTotal)
	}
	if !record.ResponseDueAt.Equal(submitted.Add(5 * time.Hour)) {
		t.Errorf("expected response due shifted by pause, got %s", record.ResponseDueAt)
	}
	if !record.ResolutionDueAt.Equal(submitted.Add(27 * time.Hour)) {
		t.Errorf("expected resolution due shifted by pause, got %s", record.ResolutionDueAt)
	}
}

func TestSLAPauseTwiceFails(t *testing.T) {
	record := NewSLARecord(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), SLAWindow{Response: time.Hour, Resolution: 2 * time.Hour})

	if err := record.Pause(record.SubmittedAt.Add(time.Minute)); err != nil {
		t.Fatalf("first Pause returned error: %v", err)
	}
	err := record.Pause(record.SubmittedAt.Add(2 * time.Minute))
	if !errors.Is(err, ErrSLAAlreadyPaused) {
		t.Fatalf("expected ErrSLAAlreadyPaused, got %v", err)
	}
}

func TestSLAResumeWithoutPauseFails(t *testing.T) {
	record := NewSLARecord(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), SLAWindow{Response: time.Hour, Resolution: 2 * time.Hour})

	_, err := record.Resume(record.SubmittedAt.Add(time.Minute))
	if !errors.Is(err, ErrSLANotPaused) {
		t.Fatalf("expected ErrSLANotPaused, got %v", err)
	}
}

func TestSLAAccumulatesMultiplePauses(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := NewSLARecord(submitted, SLAWindow{Response: 2 * time.Hour, Resolution: 24 * time.Hour})

	_ = record.Pause(submitted.Add(30 * time.Minute))
	_, _ = record.Resume(submitted.Add(90 * time.Minute))
	_ = record.Pause(submitted.Add(2 * time.Hour))
	_, _ = record.Resume(submitted.Add(4 * time.Hour))

	if record.PausedTotal != 3*time.Hour {
		t.Errorf("expected 3h total pause, got %s", record.PausedTotal)
	}
	if !record.ResponseDueAt.Equal(submitted.Add(5 * time.Hour)) {
		t.Errorf("unexpected response due after two pauses: %s", record.ResponseDueAt)
	}
}

func TestSLAOverdueWhilePaused(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := NewSLARecord(submitted, SLAWindow{Response: time.Hour, Resolution: 2 * time.Hour})
	_ = record.Pause(submitted.Add(30 * time.Minute))

	later := submitted.Add(10 * time.Hour)
	if record.ResponseOverdue(later) {
		t.Errorf("paused clock must not become newly overdue")
	}
	if record.ResolutionOverdue(later) {
		t.Errorf("paused clock must not become newly overdue")
	}
}

func TestSLABreachFlagsAreSticky(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := NewSLARecord(submitted, SLAWindow{Response: time.Hour, Resolution: 2 * time.Hour})
	record.ResponseBreached = true

	// Even a paused clock reports an already-set flag.
	_ = record.Pause(submitted.Add(30 * time.Minute))
	if !record.ResponseOverdue(submitted) {
		t.Errorf("expected set breach flag to stay set")
	}
}

func TestSLARebasePreservesPausedTotal(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	record := NewSLARecord(submitted, SLAWindow{Response: 8 * time.Hour, Resolution: 72 * time.Hour})
	_ = record.Pause(submitted.Add(time.Hour))
	_, _ = record.Resume(submitted.Add(3 * time.Hour))

	record.Rebase(SLAWindow{Response: 30 * time.Minute, Resolution: 4 * time.Hour})

	if !record.ResponseDueAt.Equal(submitted.Add(30*time.Minute + 2*time.Hour)) {
		t.Errorf("expected rebased response due to include pause, got %s", record.ResponseDueAt)
	}
	if !record.ResolutionDueAt.Equal(submitted.Add(4*time.Hour + 2*time.Hour)) {
		t.Errorf("expected rebased resolution due to include pause, got %s", record.ResolutionDueAt)
	}
}

func TestSLAMarkResolved(t *testing.T) {
	submitted := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("within deadline", func(t *testing.T) {
		record := NewSLARecord(submitted, SLAWindow{Response: time.Hour, Resolution: 24 * time.Hour})
		record.MarkResolved(submitted.Add(12 * time.Hour))

		if record.ResolvedAt == nil {
			t.Fatalf("expected resolved timestamp")
		}
		if record.ResolutionBreached {
			t.Errorf("expected no breach for on-time resolution")
		}
		if record.ResolutionOverdue(submitted.Add(100 * time.Hour)) {
			t.Errorf("resolved on time must never become overdue later")
		}
	})

	t.Run("past deadline", func(t *testing.T) {
		record := NewSLARecord(submitted, SLAWindow{Response: time.Hour, Resolution: 24 * time.Hour})
		record.MarkResolved(submitted.Add(30 * time.Hour))

		if !record.ResolutionBreached {
			t.Errorf("expected breach for late resolution")
		}
	})
}

func TestSLAConfigWindowDefaultsToMedium(t *testing.T) {
	cfg := DefaultSLAConfig()

	if cfg.Window(PriorityEmergency) != cfg.Emergency {
		t.Errorf("expected emergency window")
	}
	if cfg.Window("unknown") != cfg.Medium {
		t.Errorf("expected unknown priority to fall back to medium window")
	}
}
