// Package subscription содержит расчёт сроков активной подписки.
package subscription

import (
	"math"
	"time"

	"github.com/mmeshcher/mealboard-admin/internal/model"
)

// Countdown возвращает число оставшихся дней подписки на момент now.
// Текущий день считается израсходованным. Результат не бывает отрицательным.
func Countdown(now, start time.Time, durationDays int) int {
	if start.IsZero() || durationDays <= 0 {
		return 0
	}

	elapsed := int(math.Ceil(now.Sub(start).Hours() / 24))
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := durationDays - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NominalEndDate возвращает номинальную дату окончания подписки.
func NominalEndDate(start time.Time, durationDays int) time.Time {
	if start.IsZero() {
		return time.Time{}
	}
	return start.AddDate(0, 0, durationDays)
}

// AdjustedEndDate возвращает дату окончания подписки, продлённую на один день
// за каждый пропущенный день доставки в истории заказов.
func AdjustedEndDate(start time.Time, durationDays int, history []model.OrderHistoryEntry) time.Time {
	if start.IsZero() {
		return time.Time{}
	}
	return NominalEndDate(start, durationDays).AddDate(0, 0, MissedDays(history))
}

// MissedDays возвращает число записей истории со статусом missed.
// Порядок и повторы записей значения не имеют.
func MissedDays(history []model.OrderHistoryEntry) int {
	missed := 0
	for _, e := range history {
		if e.Status == model.DeliveryMissed {
			missed++
		}
	}
	return missed
}

// Summary агрегирует расчётные значения подписки для карточки абонента.
// KnownStart равен false, если дата начала подписки не распознана: в этом
// случае даты и счётчик дней не имеют смысла и отображаются прочерком.
type Summary struct {
	KnownStart  bool
	DaysLeft    int
	NominalEnd  time.Time
	AdjustedEnd time.Time
	MissedDays  int
}

// Summarize вычисляет сводку подписки абонента на момент now.
// Счётчик дней намеренно не учитывает пропуски: расхождение между DaysLeft и
// AdjustedEnd видно оператору вместе со счётчиком MissedDays.
func Summarize(now time.Time, sub model.Subscriber, history []model.OrderHistoryEntry) Summary {
	if sub.StartDate.IsZero() {
		return Summary{MissedDays: MissedDays(history)}
	}

	return Summary{
		KnownStart:  true,
		DaysLeft:    Countdown(now, sub.StartDate, sub.DurationDays),
		NominalEnd:  NominalEndDate(sub.StartDate, sub.DurationDays),
		AdjustedEnd: AdjustedEndDate(sub.StartDate, sub.DurationDays, history),
		MissedDays:  MissedDays(history),
	}
}
