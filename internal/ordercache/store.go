// Package ordercache хранит одноразовый резервный кэш списка заказов.
//
// Кэш наполняется при каждом успешном запросе списка заказов и читается
// только когда бэкенд недоступен. Файл кэша можно удалить в любой момент.
package ordercache

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mmeshcher/mealboard-admin/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrEmpty возвращается при чтении кэша, в который ещё ничего не сохраняли.
var ErrEmpty = errors.New("order cache is empty")

// Store — sqlite-хранилище последнего успешно полученного списка заказов.
type Store struct {
	db *sql.DB
}

// Open открывает файл кэша и применяет миграции схемы.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close закрывает файл кэша.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save замещает содержимое кэша указанным списком заказов.
func (s *Store) Save(ctx context.Context, orders []model.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	for _, o := range orders {
		date := ""
		if !o.Date.IsZero() {
			date = o.Date.Format(time.RFC3339)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, vendor_id, user_id, customer_name, address, status, order_date, subscription_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.VendorID, o.UserID, o.CustomerName, o.Address, string(o.Status), date, o.SubscriptionID,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_meta (key, value) VALUES ('saved_at', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("update meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Load возвращает сохранённый список заказов.
func (s *Store) Load(ctx context.Context) ([]model.Order, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_meta WHERE key = 'saved_at'`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, vendor_id, user_id, customer_name, address, status, order_date, subscription_id
		 FROM orders
		 ORDER BY order_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		var (
			o    model.Order
			st   string
			date string
		)
		if err := rows.Scan(&o.ID, &o.VendorID, &o.UserID, &o.CustomerName, &o.Address, &st, &date, &o.SubscriptionID); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		o.Status = model.OrderStatus(st)
		if date != "" {
			if t, err := time.Parse(time.RFC3339, date); err == nil {
				o.Date = t
			}
		}
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
