// Package handler содержит HTTP-обработчики API админ-шлюза.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
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

const maxFormMemory = 32 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Login(ctx context.Context, login, password string) (session.Identity, error)
	Logout()
	Dashboard(ctx context.Context) (model.DashboardStats, error)
	Users(ctx context.Context, refresh bool) ([]model.User, error)
	Vendors(ctx context.Context, refresh bool) ([]model.Vendor, error)
	SubmitVendor(ctx context.Context, d *vendorform.Draft) error
	UpdateVendor(ctx context.Context, v model.Vendor) error
	DeleteVendor(ctx context.Context, id string) error
	ToggleVendor(ctx context.Context, id string) (model.Vendor, error)
	Orders(ctx context.Context, f orders.Filter) ([]model.Order, bool, error)
	AcceptOrder(ctx context.Context, orderID string) (model.Order, error)
	RejectOrder(ctx context.Context, orderID string) (model.Order, error)
	Subscribers(ctx context.Context, refresh bool) ([]model.Subscriber, error)
	SubscriberDetail(ctx context.Context, userID string) (service.SubscriberDetail, error)
	Payments(ctx context.Context) ([]model.Payment, error)
	SetPaymentStatus(ctx context.Context, id, status string) error
	LookupBank(ctx context.Context, code string) (*enrich.BankInfo, error)
	LookupRegistration(ctx context.Context, id string) (*enrich.BusinessInfo, error)
}

// Handler реализует HTTP-обработчики API админ-шлюза.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type errorResponse struct {
	Message string                 `json:"message"`
	Fields  vendorform.FieldErrors `json:"fields,omitempty"`
}

// writeError переводит ошибки бизнес-логики в HTTP-ответы.
// Истёкшая сессия дополнительно сбрасывает cookie авторизации.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, upstream.ErrSessionExpired) {
		h.authMiddleware.ClearAuthCookie(w)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "session expired, log in again"})
		return
	}

	var vErr *vendorform.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Message: "form validation failed",
			Fields:  vErr.Fields,
		})
		return
	}

	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.StatusCode, errorResponse{Message: apiErr.Message})
		return
	}

	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrSubscriberNotFound),
		errors.Is(err, service.ErrVendorNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: err.Error()})
	case errors.Is(err, session.ErrNoSession):
		h.authMiddleware.ClearAuthCookie(w)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "no active session"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// formatDate выводит дату для дашборда; нулевая дата отображается прочерком.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type identityResponse struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Login выполняет вход оператора и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	ident, err := h.service.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		var apiErr *upstream.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "invalid credentials"})
			return
		}
		h.writeError(w, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, ident.Login)
	writeJSON(w, http.StatusOK, identityResponse{Login: ident.Login, Name: ident.Name, Role: ident.Role})
}

// Logout завершает сессию оператора и сбрасывает cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout()
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

// Dashboard возвращает агрегаты главного экрана.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type userResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// GetUsers возвращает список пользователей.
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"

	users, err := h.service.Users(r.Context(), refresh)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, userResponse{ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email, Active: u.Active})
	}
	writeJSON(w, http.StatusOK, resp)
}

type vendorResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

func toVendorResponse(v model.Vendor) vendorResponse {
	return vendorResponse{ID: v.ID, Name: v.Name, Phone: v.Phone, Email: v.Email, Address: v.Address, Active: v.Active}
}

// GetVendors возвращает список вендоров.
func (h *Handler) GetVendors(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"

	vendors, err := h.service.Vendors(r.Context(), refresh)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]vendorResponse, 0, len(vendors))
	for _, v := range vendors {
		resp = append(resp, toVendorResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitVendor принимает multipart-анкету нового вендора.
func (h *Handler) SubmitVendor(w http.ResponseWriter, r *http.Request) {
	draft, err := parseVendorForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	if err := h.service.SubmitVendor(r.Context(), draft); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func parseVendorForm(r *http.Request) (*vendorform.Draft, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	d := &vendorform.Draft{
		Credentials: vendorform.Credentials{
			Phone:           r.FormValue("phone"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
		},
		Profile: vendorform.Profile{
			Name:          r.FormValue("name"),
			Email:         r.FormValue("email"),
			Address:       r.FormValue("address"),
			FSSAINumber:   r.FormValue("fssaiNumber"),
			GSTIN:         r.FormValue("gstin"),
			AccountHolder: r.FormValue("accountHolder"),
			AccountNumber: r.FormValue("accountNumber"),
			IFSC:          r.FormValue("ifsc"),
			BankName:      r.FormValue("bankName"),
			BankBranch:    r.FormValue("bankBranch"),
			OpeningTime:   r.FormValue("openingTime"),
			ClosingTime:   r.FormValue("closingTime"),
		},
		Stage: 1,
	}

	if menu := r.FormValue("menu"); menu != "" {
		if err := json.Unmarshal([]byte(menu), &d.Profile.Sections); err != nil {
			return nil, errors.New("invalid menu payload")
		}
	}

	var err error
	if d.Profile.Logo, err = formImage(r, "logo"); err != nil {
		return nil, err
	}
	if d.Profile.FSSAICertificate, err = formImage(r, "fssaiCertificate"); err != nil {
		return nil, err
	}
	if d.Profile.GSTCertificate, err = formImage(r, "gstCertificate"); err != nil {
		return nil, err
	}

	for i := range d.Profile.Sections {
		for j := 0; ; j++ {
			img, err := formImage(r, "menuPhoto_"+strconv.Itoa(i)+"_"+strconv.Itoa(j))
			if err != nil {
				return nil, err
			}
			if img == nil {
				break
			}
			d.Profile.Sections[i].Photos = append(d.Profile.Sections[i].Photos, *img)
		}
	}

	return d, nil
}

func formImage(r *http.Request, field string) (*vendorform.Image, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("invalid file in field " + field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxFormMemory+1))
	if err != nil {
		return nil, errors.New("read file in field " + field)
	}
	if len(data) > maxFormMemory {
		return nil, errors.New("file too large in field " + field)
	}
	return &vendorform.Image{Name: header.Filename, Data: data}, nil
}

type vendorRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// UpdateVendor сохраняет изменения существующего вендора.
func (h *Handler) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req vendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	v := model.Vendor{ID: id, Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address, Active: req.Active}
	if err := h.service.UpdateVendor(r.Context(), v); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVendorResponse(v))
}

// DeleteVendor удаляет вендора.
func (h *Handler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteVendor(r.Context(), pathParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleVendor переключает активность вендора.
func (h *Handler) ToggleVendor(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.ToggleVendor(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVendorResponse(v))
}

type orderResponse struct {
	ID             string `json:"id"`
	VendorID       string `json:"vendorId"`
	UserID         string `json:"userId"`
	CustomerName   string `json:"customerName"`
	Address        string `json:"address"`
	Status         string `json:"status"`
	Date           string `json:"date"`
	SubscriptionID string `json:"subscriptionId"`
}

type ordersResponse struct {
	Orders    []orderResponse `json:"orders"`
	FromCache bool            `json:"fromCache"`
}

func toOrderResponse(o model.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		VendorID:       o.VendorID,
		UserID:         o.UserID,
		CustomerName:   o.CustomerName,
		Address:        o.Address,
		Status:         string(o.Status),
		Date:           formatDate(o.Date),
		SubscriptionID: o.SubscriptionID,
	}
}

// GetOrders возвращает заказы по выбранной вкладке или диапазону дат.
// Вкладка и диапазон взаимоисключающие; без параметров отдаются все заказы.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	f := orders.NewFilter()
	q := r.URL.Query()

	switch {
	case q.Get("from") != "" || q.Get("to") != "":
		from, err := time.Parse("2006-01-02", q.Get("from"))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		to, err := time.Parse("2006-01-02", q.Get("to"))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		f = f.SelectRange(from, to)
	case q.Get("tab") != "":
		tab, err := strconv.Atoi(q.Get("tab"))
		if err != nil || tab < 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		f = f.SelectTab(tab)
	}

	if !f.Valid() {
		h.logger.Warn("invalid date range, returning unfiltered orders",
			zap.String("from", q.Get("from")), zap.String("to", q.Get("to")))
	}

	list, fromCache, err := h.service.Orders(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := ordersResponse{Orders: make([]orderResponse, 0, len(list)), FromCache: fromCache}
	for _, o := range list {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

// AcceptOrder подтверждает заказ.
func (h *Handler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.AcceptOrder(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// RejectOrder отклоняет заказ.
func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.RejectOrder(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type subscriberResponse struct {
	UserID         string  `json:"userId"`
	SubscriptionID string  `json:"subscriptionId"`
	Name           string  `json:"name"`
	VendorID       string  `json:"vendorId"`
	StartDate      string  `json:"startDate"`
	DurationDays   int     `json:"durationDays"`
	PendingBalance float64 `json:"pendingBalance"`
}

// GetSubscribers возвращает список абонентов.
func (h *Handler) GetSubscribers(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"

	subs, err := h.service.Subscribers(r.Context(), refresh)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]subscriberResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, subscriberResponse{
			UserID:         s.UserID,
			SubscriptionID: s.SubscriptionID,
			Name:           s.Name,
			VendorID:       s.VendorID,
			StartDate:      formatDate(s.StartDate),
			DurationDays:   s.DurationDays,
			PendingBalance: s.PendingBalance,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type historyEntryResponse struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

type subscriberDetailResponse struct {
	Subscriber   subscriberResponse     `json:"subscriber"`
	DaysLeft     int                    `json:"daysLeft"`
	NominalEnd   string                 `json:"nominalEnd"`
	AdjustedEnd  string                 `json:"adjustedEnd"`
	MissedDays   int                    `json:"missedDays"`
	History      []historyEntryResponse `json:"history"`
	HistoryError string                 `json:"historyError,omitempty"`
}

// GetSubscriberDetail возвращает карточку абонента с расчётами сроков.
func (h *Handler) GetSubscriberDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.SubscriberDetail(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	s := detail.Subscriber
	resp := subscriberDetailResponse{
		Subscriber: subscriberResponse{
			UserID:         s.UserID,
			SubscriptionID: s.SubscriptionID,
			Name:           s.Name,
			VendorID:       s.VendorID,
			StartDate:      formatDate(s.StartDate),
			DurationDays:   s.DurationDays,
			PendingBalance: s.PendingBalance,
		},
		DaysLeft:     detail.Summary.DaysLeft,
		NominalEnd:   formatDate(detail.Summary.NominalEnd),
		AdjustedEnd:  formatDate(detail.Summary.AdjustedEnd),
		MissedDays:   detail.Summary.MissedDays,
		History:      make([]historyEntryResponse, 0, len(detail.History)),
		HistoryError: detail.HistoryError,
	}
	for _, e := range detail.History {
		resp.History = append(resp.History, historyEntryResponse{
			Date:   formatDate(e.Date),
			Status: string(e.Status),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type paymentResponse struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
	Date       string  `json:"date"`
	ReceiptRef string  `json:"receiptRef,omitempty"`
}

// GetPayments возвращает список платежей.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.Payments(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, paymentResponse{
			ID:         p.ID,
			UserID:     p.UserID,
			Amount:     p.Amount,
			Status:     p.Status,
			Date:       formatDate(p.Date),
			ReceiptRef: p.ReceiptRef,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type paymentStatusRequest struct {
	Status string `json:"status"`
}

// SetPaymentStatus меняет статус платежа.
func (h *Handler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req paymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.SetPaymentStatus(r.Context(), pathParam(r, "id"), req.Status); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// LookupIFSC возвращает банк и отделение по коду IFSC.
func (h *Handler) LookupIFSC(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.LookupBank(r.Context(), pathParam(r, "code"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// LookupGSTIN возвращает сведения о бизнесе по номеру GSTIN.
func (h *Handler) LookupGSTIN(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.LookupRegistration(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
