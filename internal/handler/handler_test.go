package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/mealboard-admin/internal/enrich"
	"github.com/mmeshcher/mealboard-admin/internal/middleware"
	"github.com/mmeshcher/mealboard-admin/internal/model"
	"github.com/mmeshcher/mealboard-admin/internal/orders"
	"github.com/mmeshcher/mealboard-admin/internal/service"
	"github.com/mmeshcher/mealboard-admin/internal/session"
	"github.com/mmeshcher/mealboard-admin/internal/upstream"
	"github.com/mmeshcher/mealboard-admin/internal/vendorform"
)

type stubService struct {
	login       func(ctx context.Context, login, password string) (session.Identity, error)
	ordersFn    func(ctx context.Context, f orders.Filter) ([]model.Order, bool, error)
	acceptOrder func(ctx context.Context, orderID string) (model.Order, error)
	submit      func(ctx context.Context, d *vendorform.Draft) error
	detail      func(ctx context.Context, userID string) (service.SubscriberDetail, error)
}

func (s *stubService) Login(ctx context.Context, login, password string) (session.Identity, error) {
	if s.login != nil {
		return s.login(ctx, login, password)
	}
	return session.Identity{Login: login}, nil
}

func (s *stubService) Logout() {}

func (s *stubService) Dashboard(context.Context) (model.DashboardStats, error) {
	return model.DashboardStats{}, nil
}

func (s *stubService) Users(context.Context, bool) ([]model.User, error)     { return nil, nil }
func (s *stubService) Vendors(context.Context, bool) ([]model.Vendor, error) { return nil, nil }

func (s *stubService) SubmitVendor(ctx context.Context, d *vendorform.Draft) error {
	if s.submit != nil {
		return s.submit(ctx, d)
	}
	return nil
}

func (s *stubService) UpdateVendor(context.Context, model.Vendor) error { return nil }
func (s *stubService) DeleteVendor(context.Context, string) error       { return nil }
func (s *stubService) ToggleVendor(context.Context, string) (model.Vendor, error) {
	return model.Vendor{}, nil
}

func (s *stubService) Orders(ctx context.Context, f orders.Filter) ([]model.Order, bool, error) {
	if s.ordersFn != nil {
		return s.ordersFn(ctx, f)
	}
	return nil, false, nil
}

func (s *stubService) AcceptOrder(ctx context.Context, orderID string) (model.Order, error) {
	if s.acceptOrder != nil {
		return s.acceptOrder(ctx, orderID)
	}
	return model.Order{}, nil
}

func (s *stubService) RejectOrder(context.Context, string) (model.Order, error) {
	return model.Order{}, nil
}

func (s *stubService) Subscribers(context.Context, bool) ([]model.Subscriber, error) {
	return nil, nil
}

func (s *stubService) SubscriberDetail(ctx context.Context, userID string) (service.SubscriberDetail, error) {
	if s.detail != nil {
		return s.detail(ctx, userID)
	}
	return service.SubscriberDetail{}, nil
}

func (s *stubService) Payments(context.Context) ([]model.Payment, error)     { return nil, nil }
func (s *stubService) SetPaymentStatus(context.Context, string, string) error { return nil }

func (s *stubService) LookupBank(context.Context, string) (*enrich.BankInfo, error) {
	return &enrich.BankInfo{}, nil
}

func (s *stubService) LookupRegistration(context.Context, string) (*enrich.BusinessInfo, error) {
	return &enrich.BusinessInfo{}, nil
}

func newTestHandler(s Service) (*Handler, *middleware.AuthMiddleware) {
	auth := middleware.NewAuthMiddleware("test-secret")
	return NewHandler(s, zap.NewNop(), auth), auth
}

func authCookie(t *testing.T, auth *middleware.AuthMiddleware) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	auth.SetAuthCookie(w, "operator")
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("no auth cookie issued")
	}
	return cookies[0]
}

func TestLogin_Success(t *testing.T) {
	svc := &stubService{
		login: func(_ context.Context, login, _ string) (session.Identity, error) {
			return session.Identity{Login: login, Name: "Operator", Role: "admin"}, nil
		},
	}
	h, _ := newTestHandler(svc)
	router := h.SetupRouter()

	body := strings.NewReader(`{"login":"operator","password":"secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/session/login", body)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if len(res.Cookies()) == 0 {
		t.Fatalf("login must set auth cookie")
	}

	var ident identityResponse
	if err := json.NewDecoder(res.Body).Decode(&ident); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if ident.Role != "admin" {
		t.Fatalf("role = %q, want admin", ident.Role)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{
		login: func(context.Context, string, string) (session.Identity, error) {
			return session.Identity{}, &upstream.APIError{StatusCode: http.StatusUnauthorized, Message: "wrong password"}
		},
	}
	h, _ := newTestHandler(svc)
	router := h.SetupRouter()

	body := strings.NewReader(`{"login":"operator","password":"bad"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/session/login", body)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestProtectedRoute_WithoutCookie(t *testing.T) {
	h, _ := newTestHandler(&stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestGetOrders_RendersZeroDateAsDash(t *testing.T) {
	svc := &stubService{
		ordersFn: func(context.Context, orders.Filter) ([]model.Order, bool, error) {
			return []model.Order{
				{ID: "o1", Status: model.OrderStatusPending, Date: time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)},
				{ID: "o2", Status: model.OrderStatusDelivered},
			}, true, nil
		},
	}
	h, auth := newTestHandler(svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(authCookie(t, auth))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp ordersResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.FromCache {
		t.Fatalf("fromCache = false, want true")
	}
	if resp.Orders[0].Date != "2024-05-10" {
		t.Fatalf("date = %q, want 2024-05-10", resp.Orders[0].Date)
	}
	if resp.Orders[1].Date != "-" {
		t.Fatalf("zero date = %q, want dash", resp.Orders[1].Date)
	}
}

func TestGetOrders_InvalidTab(t *testing.T) {
	h, auth := newTestHandler(&stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders?tab=yesterday", nil)
	req.AddCookie(authCookie(t, auth))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

func TestAcceptOrder_NotFound(t *testing.T) {
	svc := &stubService{
		acceptOrder: func(context.Context, string) (model.Order, error) {
			return model.Order{}, service.ErrOrderNotFound
		},
	}
	h, auth := newTestHandler(svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/orders/missing/accept", nil)
	req.AddCookie(authCookie(t, auth))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

func TestSessionExpiry_ClearsCookie(t *testing.T) {
	svc := &stubService{
		ordersFn: func(context.Context, orders.Filter) ([]model.Order, bool, error) {
			return nil, false, upstream.ErrSessionExpired
		},
	}
	h, auth := newTestHandler(svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(authCookie(t, auth))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	res := w.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}

	cleared := false
	for _, c := range res.Cookies() {
		if c.Value == "" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("auth cookie was not cleared")
	}
}

func TestSubmitVendor_ValidationErrors(t *testing.T) {
	svc := &stubService{
		submit: func(context.Context, *vendorform.Draft) error {
			return &vendorform.ValidationError{Fields: vendorform.FieldErrors{"phone": "phone is required"}}
		},
	}
	h, auth := newTestHandler(svc)
	router := h.SetupRouter()

	var body strings.Builder
	body.WriteString("--boundary\r\nContent-Disposition: form-data; name=\"name\"\r\n\r\nTiffin Hub\r\n--boundary--\r\n")

	req := httptest.NewRequest(http.MethodPost, "/api/vendors", strings.NewReader(body.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=boundary")
	req.AddCookie(authCookie(t, auth))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnprocessableEntity)
	}

	var resp errorResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Fields["phone"] == "" {
		t.Fatalf("expected field error for phone, got %+v", resp.Fields)
	}
}

func TestSubscriberDetail_DegradedHistory(t *testing.T) {
	svc := &stubService{
		detail: func(context.Context, string) (service.SubscriberDetail, error) {
			return service.SubscriberDetail{
				Subscriber:   model.Subscriber{UserID: "u1"},
				HistoryError: "order history is unavailable",
			}, nil
		},
	}
	h, auth := newTestHandler(svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/subscribers/u1", nil)
	req.AddCookie(authCookie(t, auth))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp subscriberDetailResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.HistoryError == "" {
		t.Fatalf("expected history error in response")
	}
	// Неизвестная дата начала отображается прочерком.
	if resp.Subscriber.StartDate != "-" {
		t.Fatalf("start date = %q, want dash", resp.Subscriber.StartDate)
	}
	if resp.NominalEnd != "-" {
		t.Fatalf("nominal end = %q, want dash", resp.NominalEnd)
	}
}
