package subscription

import (
	"testing"
	"time"

	"github.com/mmeshcher/mealboard-admin/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCountdown_Scenario(t *testing.T) {
	start := date(2024, time.January, 1)
	now := time.Date(2024, time.January, 25, 12, 0, 0, 0, time.UTC)

	if got := Countdown(now, start, 30); got != 5 {
		t.Fatalf("Countdown = %d, want 5", got)
	}
}

func TestCountdown_NeverNegative(t *testing.T) {
	start := date(2024, time.January, 1)
	now := date(2025, time.June, 1)

	if got := Countdown(now, start, 30); got != 0 {
		t.Fatalf("Countdown = %d, want 0 for long expired subscription", got)
	}
}

func TestCountdown_MonotoneNonIncreasing(t *testing.T) {
	start := date(2024, time.January, 1)

	prev := Countdown(start, start, 30)
	for i := 1; i <= 60; i++ {
		now := start.Add(time.Duration(i) * 12 * time.Hour)
		cur := Countdown(now, start, 30)
		if cur > prev {
			t.Fatalf("countdown increased from %d to %d at step %d", prev, cur, i)
		}
		if cur < 0 {
			t.Fatalf("countdown became negative: %d", cur)
		}
		prev = cur
	}
}

func TestCountdown_UnknownStart(t *testing.T) {
	if got := Countdown(time.Now(), time.Time{}, 30); got != 0 {
		t.Fatalf("Countdown = %d, want 0 for unknown start", got)
	}
}

func TestAdjustedEndDate_ExtendsPerMissedDay(t *testing.T) {
	start := date(2024, time.January, 1)

	history := []model.OrderHistoryEntry{
		{Date: date(2024, time.January, 2), Status: model.DeliveryDelivered},
		{Date: date(2024, time.January, 3), Status: model.DeliveryPending},
	}

	end := AdjustedEndDate(start, 30, history)
	if !end.Equal(date(2024, time.January, 31)) {
		t.Fatalf("AdjustedEndDate = %v, want 2024-01-31", end)
	}

	withMissed := append(history, model.OrderHistoryEntry{
		Date:   date(2024, time.January, 4),
		Status: model.DeliveryMissed,
	})

	extended := AdjustedEndDate(start, 30, withMissed)
	if !extended.Equal(end.AddDate(0, 0, 1)) {
		t.Fatalf("AdjustedEndDate with one missed = %v, want %v", extended, end.AddDate(0, 0, 1))
	}
}

func TestAdjustedEndDate_NeverBeforeNominal(t *testing.T) {
	start := date(2024, time.March, 10)

	for missed := 0; missed < 5; missed++ {
		history := make([]model.OrderHistoryEntry, missed)
		for i := range history {
			history[i] = model.OrderHistoryEntry{
				Date:   start.AddDate(0, 0, i+1),
				Status: model.DeliveryMissed,
			}
		}

		nominal := NominalEndDate(start, 15)
		adjusted := AdjustedEndDate(start, 15, history)
		if adjusted.Before(nominal) {
			t.Fatalf("adjusted %v before nominal %v", adjusted, nominal)
		}
	}
}

func TestAdjustedEndDate_ToleratesDisorderedHistory(t *testing.T) {
	start := date(2024, time.January, 1)

	history := []model.OrderHistoryEntry{
		{Date: date(2024, time.January, 9), Status: model.DeliveryMissed},
		{Date: date(2024, time.January, 2), Status: model.DeliveryMissed},
		{Date: date(2024, time.January, 5), Status: model.DeliveryDelivered},
	}

	end := AdjustedEndDate(start, 30, history)
	if !end.Equal(date(2024, time.February, 2)) {
		t.Fatalf("AdjustedEndDate = %v, want 2024-02-02", end)
	}
}

func TestSummarize_Scenario(t *testing.T) {
	sub := model.Subscriber{
		StartDate:    date(2024, time.January, 1),
		DurationDays: 30,
	}
	now := time.Date(2024, time.January, 25, 12, 0, 0, 0, time.UTC)

	s := Summarize(now, sub, nil)
	if !s.KnownStart {
		t.Fatalf("expected known start")
	}
	if s.DaysLeft != 5 {
		t.Fatalf("DaysLeft = %d, want 5", s.DaysLeft)
	}
	if !s.AdjustedEnd.Equal(date(2024, time.January, 31)) {
		t.Fatalf("AdjustedEnd = %v, want 2024-01-31", s.AdjustedEnd)
	}

	withMissed := Summarize(now, sub, []model.OrderHistoryEntry{
		{Date: date(2024, time.January, 10), Status: model.DeliveryMissed},
	})
	if !withMissed.AdjustedEnd.Equal(date(2024, time.February, 1)) {
		t.Fatalf("AdjustedEnd = %v, want 2024-02-01", withMissed.AdjustedEnd)
	}
	if withMissed.DaysLeft != s.DaysLeft {
		t.Fatalf("countdown must not depend on missed days: %d != %d", withMissed.DaysLeft, s.DaysLeft)
	}
	if withMissed.MissedDays != 1 {
		t.Fatalf("MissedDays = %d, want 1", withMissed.MissedDays)
	}
}

func TestSummarize_UnknownStart(t *testing.T) {
	s := Summarize(time.Now(), model.Subscriber{DurationDays: 30}, nil)
	if s.KnownStart {
		t.Fatalf("expected unknown start")
	}
	if !s.NominalEnd.IsZero() || !s.AdjustedEnd.IsZero() {
		t.Fatalf("expected zero end dates for unknown start")
	}
}
