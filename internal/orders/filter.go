// Package orders содержит фильтрацию списков заказов и переходы их статусов.
package orders

import (
	"time"

	"github.com/mmeshcher/mealboard-admin/internal/model"
)

// TabAll выбирает все заказы без фильтрации по дате.
const TabAll = -1

// Filter описывает взаимоисключающий выбор периода: либо вкладка дня,
// либо явный диапазон дат. Нулевое значение недействительно, используйте NewFilter.
type Filter struct {
	tab      int
	from     time.Time
	to       time.Time
	hasRange bool
}

// NewFilter возвращает фильтр, пропускающий все заказы.
func NewFilter() Filter {
	return Filter{tab: TabAll}
}

// SelectTab выбирает вкладку дня и сбрасывает диапазон дат.
// Вкладка 0 — сегодня, 1 — вчера, n — n календарных дней назад.
func (f Filter) SelectTab(n int) Filter {
	return Filter{tab: n}
}

// SelectRange выбирает включительный диапазон дат и сбрасывает вкладку.
func (f Filter) SelectRange(from, to time.Time) Filter {
	return Filter{tab: TabAll, from: from, to: to, hasRange: true}
}

// Valid сообщает, осмыслен ли текущий выбор. Диапазон, у которого начало
// позже конца, недействителен: Apply в этом случае не фильтрует ничего.
func (f Filter) Valid() bool {
	if !f.hasRange {
		return true
	}
	return !startOfDay(f.from).After(startOfDay(f.to))
}

// Apply возвращает подмножество заказов, попадающее под текущий выбор.
// Недействительный выбор не фильтрует ничего: список возвращается целиком.
func (f Filter) Apply(list []model.Order, now time.Time) []model.Order {
	if f.hasRange {
		if !f.Valid() {
			return list
		}
		return keep(list, func(o model.Order) bool {
			d := startOfDay(o.Date)
			return !d.Before(startOfDay(f.from)) && !d.After(startOfDay(f.to))
		})
	}

	if f.tab == TabAll {
		return list
	}

	target := startOfDay(now).AddDate(0, 0, -f.tab)
	return keep(list, func(o model.Order) bool {
		return startOfDay(o.Date).Equal(target)
	})
}

func keep(list []model.Order, pred func(model.Order) bool) []model.Order {
	res := make([]model.Order, 0, len(list))
	for _, o := range list {
		if !o.Date.IsZero() && pred(o) {
			res = append(res, o)
		}
	}
	return res
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
