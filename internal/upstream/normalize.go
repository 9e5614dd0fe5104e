package upstream

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/mealboard-admin/internal/model"
	"github.com/mmeshcher/mealboard-admin/internal/session"
)

// Бэкенд отдаёт одни и те же сущности под разными именами полей и в разных
// обёртках. Сырые структуры ниже принимают все наблюдаемые варианты и
// приводятся к типизированным сущностям model; нераспознанные даты становятся
// нулевыми, отсутствующие массивы — пустыми.

// flexString принимает строку или число и хранит его строкой.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(string(b))
	return nil
}

// unmarshalList декодирует список, который бэкенд присылает либо голым
// массивом, либо обёрнутым в объект под одним из известных ключей.
// Отсутствующий массив приводится к пустому списку.
func unmarshalList[T any](data []byte, keys ...string) ([]T, error) {
	var direct []T
	if err := json.Unmarshal(data, &direct); err == nil {
		return direct, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}

	for _, k := range keys {
		raw, ok := wrapper[k]
		if !ok || string(raw) == "null" {
			continue
		}
		var list []T
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode %q list: %w", k, err)
		}
		return list, nil
	}

	return nil, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// parseDate пытается разобрать дату в известных форматах.
// Нераспознанная дата возвращается нулевым значением, а не ошибкой.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type rawLogin struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
	Login       string `json:"login"`
	Phone       string `json:"phone"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	UserType    string `json:"userType"`
}

func (r rawLogin) normalize() (session.Identity, string) {
	return session.Identity{
		Login: firstNonEmpty(r.Login, r.Phone),
		Name:  r.Name,
		Role:  firstNonEmpty(r.Role, r.UserType),
	}, firstNonEmpty(r.Token, r.AccessToken)
}

type rawUser struct {
	ID       flexString `json:"id"`
	MongoID  flexString `json:"_id"`
	UserID   flexString `json:"userId"`
	Name     string     `json:"name"`
	FullName string     `json:"fullName"`
	Phone    string     `json:"phone"`
	Mobile   string     `json:"mobile"`
	Email    string     `json:"email"`
	Active   *bool      `json:"active"`
	IsActive *bool      `json:"isActive"`
	Status   string     `json:"status"`
}

func normalizeUsers(raw []rawUser) []model.User {
	res := make([]model.User, 0, len(raw))
	for _, r := range raw {
		res = append(res, model.User{
			ID:     firstNonEmpty(string(r.ID), string(r.MongoID), string(r.UserID)),
			Name:   firstNonEmpty(r.Name, r.FullName),
			Phone:  firstNonEmpty(r.Phone, r.Mobile),
			Email:  r.Email,
			Active: normalizeActive(r.Active, r.IsActive, r.Status),
		})
	}
	return res
}

type rawVendor struct {
	ID       flexString `json:"id"`
	MongoID  flexString `json:"_id"`
	VendorID flexString `json:"vendorId"`
	Name     string     `json:"name"`
	FullName string     `json:"businessName"`
	Phone    string     `json:"phone"`
	Mobile   string     `json:"mobile"`
	Email    string     `json:"email"`
	Address  string     `json:"address"`
	Active   *bool      `json:"active"`
	IsActive *bool      `json:"isActive"`
	Status   string     `json:"status"`
}

func normalizeVendors(raw []rawVendor) []model.Vendor {
	res := make([]model.Vendor, 0, len(raw))
	for _, r := range raw {
		res = append(res, model.Vendor{
			ID:      firstNonEmpty(string(r.ID), string(r.MongoID), string(r.VendorID)),
			Name:    firstNonEmpty(r.Name, r.FullName),
			Phone:   firstNonEmpty(r.Phone, r.Mobile),
			Email:   r.Email,
			Address: r.Address,
			Active:  normalizeActive(r.Active, r.IsActive, r.Status),
		})
	}
	return res
}

func normalizeActive(active, isActive *bool, status string) bool {
	if active != nil {
		return *active
	}
	if isActive != nil {
		return *isActive
	}
	return strings.EqualFold(status, "active")
}

type rawOrder struct {
	ID             flexString `json:"id"`
	MongoID        flexString `json:"_id"`
	OrderID        flexString `json:"orderId"`
	VendorID       flexString `json:"vendorId"`
	UserID         flexString `json:"userId"`
	CustomerName   string     `json:"customerName"`
	UserName       string     `json:"userName"`
	Address        string     `json:"address"`
	DeliveryAddr   string     `json:"deliveryAddress"`
	Status         string     `json:"status"`
	Date           string     `json:"date"`
	OrderDate      string     `json:"orderDate"`
	CreatedAt      string     `json:"createdAt"`
	SubscriptionID flexString `json:"subscriptionId"`
}

func normalizeOrders(raw []rawOrder) []model.Order {
	res := make([]model.Order, 0, len(raw))
	for _, r := range raw {
		res = append(res, model.Order{
			ID:             firstNonEmpty(string(r.ID), string(r.MongoID), string(r.OrderID)),
			VendorID:       string(r.VendorID),
			UserID:         string(r.UserID),
			CustomerName:   firstNonEmpty(r.CustomerName, r.UserName),
			Address:        firstNonEmpty(r.Address, r.DeliveryAddr),
			Status:         normalizeOrderStatus(r.Status),
			Date:           parseDate(firstNonEmpty(r.Date, r.OrderDate, r.CreatedAt)),
			SubscriptionID: string(r.SubscriptionID),
		})
	}
	return res
}

func normalizeOrderStatus(s string) model.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "new":
		return model.OrderStatusPending
	case "accepted", "approved":
		return model.OrderStatusAccepted
	case "rejected", "declined":
		return model.OrderStatusRejected
	case "delivered", "completed":
		return model.OrderStatusDelivered
	case "cancelled", "canceled":
		return model.OrderStatusCancelled
	default:
		return model.OrderStatus(s)
	}
}

type rawSubscriber struct {
	UserID         flexString `json:"userId"`
	ID             flexString `json:"id"`
	MongoID        flexString `json:"_id"`
	SubscriptionID flexString `json:"subscriptionId"`
	Name           string     `json:"name"`
	FullName       string     `json:"fullName"`
	VendorID       flexString `json:"vendorId"`
	StartDate      string     `json:"startDate"`
	SubStart       string     `json:"subscriptionStartDate"`
	DurationDays   int        `json:"durationDays"`
	PlanDays       int        `json:"planDays"`
	PendingBalance *float64   `json:"pendingBalance"`
	Balance        *float64   `json:"balance"`
	ProfilePic     string     `json:"profilePic"`
	ProfilePicURL  string     `json:"profilePicUrl"`
}

func normalizeSubscribers(raw []rawSubscriber) []model.Subscriber {
	res := make([]model.Subscriber, 0, len(raw))
	for _, r := range raw {
		duration := r.DurationDays
		if duration == 0 {
			duration = r.PlanDays
		}

		balance := 0.0
		if r.PendingBalance != nil {
			balance = *r.PendingBalance
		} else if r.Balance != nil {
			balance = *r.Balance
		}

		res = append(res, model.Subscriber{
			UserID:         firstNonEmpty(string(r.UserID), string(r.ID), string(r.MongoID)),
			SubscriptionID: string(r.SubscriptionID),
			Name:           firstNonEmpty(r.Name, r.FullName),
			VendorID:       string(r.VendorID),
			StartDate:      parseDate(firstNonEmpty(r.StartDate, r.SubStart)),
			DurationDays:   duration,
			PendingBalance: balance,
			ProfilePicRef:  firstNonEmpty(r.ProfilePic, r.ProfilePicURL),
		})
	}
	return res
}

type rawHistoryEntry struct {
	Date   string `json:"date"`
	Day    string `json:"day"`
	Status string `json:"status"`
}

func normalizeHistory(raw []rawHistoryEntry) []model.OrderHistoryEntry {
	res := make([]model.OrderHistoryEntry, 0, len(raw))
	for _, r := range raw {
		res = append(res, model.OrderHistoryEntry{
			Date:   parseDate(firstNonEmpty(r.Date, r.Day)),
			Status: normalizeDeliveryStatus(r.Status),
		})
	}
	return res
}

func normalizeDeliveryStatus(s string) model.DeliveryStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "delivered", "done":
		return model.DeliveryDelivered
	case "missed", "skipped":
		return model.DeliveryMissed
	case "pending", "upcoming":
		return model.DeliveryPending
	default:
		return model.DeliveryStatus(s)
	}
}

type rawPayment struct {
	ID         flexString `json:"id"`
	MongoID    flexString `json:"_id"`
	PaymentID  flexString `json:"paymentId"`
	UserID     flexString `json:"userId"`
	Amount     float64    `json:"amount"`
	Status     string     `json:"status"`
	Date       string     `json:"date"`
	PaidAt     string     `json:"paidAt"`
	Receipt    string     `json:"receipt"`
	ReceiptURL string     `json:"receiptUrl"`
}

func normalizePayments(raw []rawPayment) []model.Payment {
	res := make([]model.Payment, 0, len(raw))
	for _, r := range raw {
		res = append(res, model.Payment{
			ID:         firstNonEmpty(string(r.ID), string(r.MongoID), string(r.PaymentID)),
			UserID:     string(r.UserID),
			Amount:     r.Amount,
			Status:     r.Status,
			Date:       parseDate(firstNonEmpty(r.Date, r.PaidAt)),
			ReceiptRef: firstNonEmpty(r.Receipt, r.ReceiptURL),
		})
	}
	return res
}
