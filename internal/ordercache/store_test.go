package ordercache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmeshcher/mealboard-admin/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "orders.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_EmptyCache(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Load(context.Background())
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	orders := []model.Order{
		{
			ID:             "o1",
			VendorID:       "v1",
			UserID:         "u1",
			CustomerName:   "Asha",
			Address:        "12 MG Road",
			Status:         model.OrderStatusPending,
			Date:           time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC),
			SubscriptionID: "s1",
		},
		{ID: "o2", Status: model.OrderStatusDelivered},
	}

	if err := s.Save(ctx, orders); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len = %d, want 2", len(loaded))
	}

	first := loaded[0]
	if first.ID != "o1" || first.CustomerName != "Asha" || first.Status != model.OrderStatusPending {
		t.Fatalf("unexpected first order: %+v", first)
	}
	if !first.Date.Equal(orders[0].Date) {
		t.Fatalf("date = %v, want %v", first.Date, orders[0].Date)
	}

	// Заказ без даты сохраняется и читается с нулевой датой.
	if !loaded[1].Date.IsZero() {
		t.Fatalf("expected zero date, got %v", loaded[1].Date)
	}
}

func TestStore_SaveReplacesPrevious(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, []model.Order{{ID: "old"}}); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := s.Save(ctx, []model.Order{{ID: "new"}}); err != nil {
		t.Fatalf("save new: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "new" {
		t.Fatalf("unexpected cache content: %+v", loaded)
	}
}

func TestStore_SaveEmptyListIsValid(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, []model.Order{{ID: "o1"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty cached list, got %+v", loaded)
	}
}
