// Package model содержит доменные сущности админ-шлюза.
package model

import "time"

// DeliveryStatus описывает статус доставки за один день подписки.
type DeliveryStatus string

const (
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryMissed    DeliveryStatus = "missed"
	DeliveryPending   DeliveryStatus = "pending"
)

// OrderHistoryEntry описывает один день истории доставок подписки.
type OrderHistoryEntry struct {
	Date   time.Time
	Status DeliveryStatus
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusAccepted  OrderStatus = "Accepted"
	OrderStatusRejected  OrderStatus = "Rejected"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// Order описывает заказ, полученный от бизнес-бэкенда.
type Order struct {
	ID             string
	VendorID       string
	UserID         string
	CustomerName   string
	Address        string
	Status         OrderStatus
	Date           time.Time
	SubscriptionID string
}

// Subscriber описывает пользователя с активной подпиской на питание.
// Неизвестная дата начала хранится нулевым значением time.Time.
type Subscriber struct {
	UserID         string
	SubscriptionID string
	Name           string
	VendorID       string
	StartDate      time.Time
	DurationDays   int
	PendingBalance float64
	ProfilePicRef  string
}

// User описывает пользователя системы.
type User struct {
	ID     string
	Name   string
	Phone  string
	Email  string
	Active bool
}

// Vendor описывает подключённого вендора.
type Vendor struct {
	ID      string
	Name    string
	Phone   string
	Email   string
	Address string
	Active  bool
}

// Payment описывает платёж пользователя.
type Payment struct {
	ID         string
	UserID     string
	Amount     float64
	Status     string
	Date       time.Time
	ReceiptRef string
}

// DashboardStats содержит агрегаты для главного экрана дашборда.
type DashboardStats struct {
	TotalUsers          int     `json:"totalUsers"`
	TotalVendors        int     `json:"totalVendors"`
	ActiveSubscriptions int     `json:"activeSubscriptions"`
	PendingOrders       int     `json:"pendingOrders"`
	Revenue             float64 `json:"revenue"`
}
