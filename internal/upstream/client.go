// Package upstream содержит клиент REST API бизнес-бэкенда.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mmeshcher/mealboard-admin/internal/model"
	"github.com/mmeshcher/mealboard-admin/internal/session"
)

// ErrSessionExpired возвращается при ответе 401/403 любого эндпоинта:
// сессия оператора недействительна, требуется повторный вход.
var ErrSessionExpired = errors.New("session expired")

// APIError содержит бизнес-ошибку, возвращённую бэкендом.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream rejected request: %d %s", e.StatusCode, e.Message)
}

// TokenSource выдаёт bearer-токен активной сессии и сбрасывает её
// при отказе в авторизации.
type TokenSource interface {
	Token() (string, error)
	Invalidate()
}

// Client инкапсулирует HTTP-взаимодействие с бизнес-бэкендом.
// Идемпотентные GET-запросы идут через транспорт с повторами; мутирующие
// запросы транспортом не повторяются никогда.
type Client struct {
	baseURL string
	reads   *http.Client
	writes  *http.Client
	tokens  TokenSource
}

// NewClient создаёт клиент бизнес-бэкенда по указанному адресу.
func NewClient(baseURL string, tokens TokenSource) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = 10 * time.Second

	return &Client{
		baseURL: normalizeBaseURL(baseURL),
		reads:   retryClient.StandardClient(),
		writes: &http.Client{
			Timeout: 15 * time.Second,
		},
		tokens: tokens,
	}
}

func normalizeBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return base
}

// Login выполняет вход оператора и возвращает его личность и bearer-токен.
func (c *Client) Login(ctx context.Context, login, password string) (session.Identity, string, error) {
	body, err := json.Marshal(map[string]string{
		"login":    login,
		"password": password,
	})
	if err != nil {
		return session.Identity{}, "", fmt.Errorf("marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return session.Identity{}, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.writes.Do(req)
	if err != nil {
		return session.Identity{}, "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return session.Identity{}, "", ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return session.Identity{}, "", apiError(resp)
	}

	var raw rawLogin
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return session.Identity{}, "", fmt.Errorf("decode login response: %w", err)
	}

	ident, token := raw.normalize()
	if token == "" {
		return session.Identity{}, "", errors.New("login response has no token")
	}
	return ident, token, nil
}

// DashboardStats возвращает агрегаты главного экрана.
func (c *Client) DashboardStats(ctx context.Context) (model.DashboardStats, error) {
	var stats model.DashboardStats
	body, err := c.getBody(ctx, "/api/admin/dashboard")
	if err != nil {
		return stats, err
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		return stats, fmt.Errorf("decode dashboard: %w", err)
	}
	return stats, nil
}

// ListUsers возвращает список пользователей.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	body, err := c.getBody(ctx, "/api/admin/users")
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalList[rawUser](body, "users", "data")
	if err != nil {
		return nil, err
	}
	return normalizeUsers(raw), nil
}

// ListVendors возвращает список вендоров.
func (c *Client) ListVendors(ctx context.Context) ([]model.Vendor, error) {
	body, err := c.getBody(ctx, "/api/admin/vendors")
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalList[rawVendor](body, "vendors", "data")
	if err != nil {
		return nil, err
	}
	return normalizeVendors(raw), nil
}

// CreateVendor отправляет собранную multipart-анкету нового вендора.
// Ключ идемпотентности одинаков для всех повторов одной отправки.
func (c *Client) CreateVendor(ctx context.Context, contentType string, payload []byte, idempotencyKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/admin/vendors", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Idempotency-Key", idempotencyKey)
	return c.doWrite(req)
}

// UpdateVendor сохраняет изменения существующего вендора.
func (c *Client) UpdateVendor(ctx context.Context, v model.Vendor) error {
	body, err := json.Marshal(map[string]any{
		"name":    v.Name,
		"phone":   v.Phone,
		"email":   v.Email,
		"address": v.Address,
	})
	if err != nil {
		return fmt.Errorf("marshal vendor: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/admin/vendors/"+v.ID, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doWrite(req)
}

// DeleteVendor удаляет вендора.
func (c *Client) DeleteVendor(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/admin/vendors/"+id, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doWrite(req)
}

// SetVendorActive включает или выключает вендора.
func (c *Client) SetVendorActive(ctx context.Context, id string, active bool) error {
	body, err := json.Marshal(map[string]bool{"active": active})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/api/admin/vendors/"+id+"/status", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doWrite(req)
}

// ListOrders возвращает список заказов.
func (c *Client) ListOrders(ctx context.Context) ([]model.Order, error) {
	body, err := c.getBody(ctx, "/api/admin/orders")
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalList[rawOrder](body, "orders", "data")
	if err != nil {
		return nil, err
	}
	return normalizeOrders(raw), nil
}

// ListSubscribers возвращает список абонентов.
func (c *Client) ListSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	body, err := c.getBody(ctx, "/api/admin/subscribers")
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalList[rawSubscriber](body, "subscribers", "data")
	if err != nil {
		return nil, err
	}
	return normalizeSubscribers(raw), nil
}

// OrderHistory возвращает историю доставок по подписке.
func (c *Client) OrderHistory(ctx context.Context, subscriptionID string) ([]model.OrderHistoryEntry, error) {
	body, err := c.getBody(ctx, "/api/admin/subscriptions/"+subscriptionID+"/history")
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalList[rawHistoryEntry](body, "history", "orders", "data")
	if err != nil {
		return nil, err
	}
	return normalizeHistory(raw), nil
}

// ApproveSubscriptionOrder подтверждает заказ по идентификатору подписки.
func (c *Client) ApproveSubscriptionOrder(ctx context.Context, subscriptionID string) error {
	return c.postAction(ctx, "/api/admin/subscriptions/"+subscriptionID+"/approve")
}

// RejectSubscriptionOrder отклоняет заказ по идентификатору подписки.
func (c *Client) RejectSubscriptionOrder(ctx context.Context, subscriptionID string) error {
	return c.postAction(ctx, "/api/admin/subscriptions/"+subscriptionID+"/reject")
}

// ListPayments возвращает список платежей.
func (c *Client) ListPayments(ctx context.Context) ([]model.Payment, error) {
	body, err := c.getBody(ctx, "/api/admin/payments")
	if err != nil {
		return nil, err
	}
	raw, err := unmarshalList[rawPayment](body, "payments", "data")
	if err != nil {
		return nil, err
	}
	return normalizePayments(raw), nil
}

// UpdatePaymentStatus меняет статус платежа.
func (c *Client) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+"/api/admin/payments/"+id, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doWrite(req)
}

func (c *Client) postAction(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doWrite(req)
}

func (c *Client) getBody(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.reads.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (c *Client) doWrite(req *http.Request) error {
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.writes.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	return c.checkStatus(resp)
}

func (c *Client) authorize(req *http.Request) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.tokens.Invalidate()
		return ErrSessionExpired
	case resp.StatusCode >= http.StatusBadRequest:
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	message := ""
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil {
		if json.Unmarshal(body, &payload) == nil {
			if payload.Message != "" {
				message = payload.Message
			} else {
				message = payload.Error
			}
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}
