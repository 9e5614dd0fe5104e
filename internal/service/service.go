// Package service реализует бизнес-логику админ-шлюза.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/mealboard-admin/internal/cache"
	"github.com/mmeshcher/mealboard-admin/internal/enrich"
	"github.com/mmeshcher/mealboard-admin/internal/model"
	"github.com/mmeshcher/mealboard-admin/internal/orders"
	"github.com/mmeshcher/mealboard-admin/internal/session"
	"github.com/mmeshcher/mealboard-admin/internal/subscription"
	"github.com/mmeshcher/mealboard-admin/internal/upstream"
	"github.com/mmeshcher/mealboard-admin/internal/vendorform"
)

var (
	// ErrOrderNotFound возвращается, если заказ отсутствует в текущем списке.
	ErrOrderNotFound = errors.New("order not found")
	// ErrSubscriberNotFound возвращается, если абонент не найден.
	ErrSubscriberNotFound = errors.New("subscriber not found")
	// ErrVendorNotFound возвращается, если вендор не найден.
	ErrVendorNotFound = errors.New("vendor not found")
	// ErrNoSubscription возвращается при попытке подтвердить заказ без подписки.
	ErrNoSubscription = errors.New("order has no subscription")
)

// Gateway описывает контракт клиента бизнес-бэкенда, используемый сервисом.
type Gateway interface {
	Login(ctx context.Context, login, password string) (session.Identity, string, error)
	DashboardStats(ctx context.Context) (model.DashboardStats, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ListVendors(ctx context.Context) ([]model.Vendor, error)
	CreateVendor(ctx context.Context, contentType string, payload []byte, idempotencyKey string) error
	UpdateVendor(ctx context.Context, v model.Vendor) error
	DeleteVendor(ctx context.Context, id string) error
	SetVendorActive(ctx context.Context, id string, active bool) error
	ListOrders(ctx context.Context) ([]model.Order, error)
	ListSubscribers(ctx context.Context) ([]model.Subscriber, error)
	OrderHistory(ctx context.Context, subscriptionID string) ([]model.OrderHistoryEntry, error)
	ApproveSubscriptionOrder(ctx context.Context, subscriptionID string) error
	RejectSubscriptionOrder(ctx context.Context, subscriptionID string) error
	ListPayments(ctx context.Context) ([]model.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id, status string) error
}

// OrderCache описывает резервный кэш списка заказов.
type OrderCache interface {
	Save(ctx context.Context, orders []model.Order) error
	Load(ctx context.Context) ([]model.Order, error)
}

// BankDirectory описывает справочник банков по коду IFSC.
type BankDirectory interface {
	Lookup(ctx context.Context, code string) (*enrich.BankInfo, error)
}

// Service содержит бизнес-логику админ-шлюза.
type Service struct {
	gw         Gateway
	sessions   *session.Manager
	orderCache OrderCache
	banks      BankDirectory
	registry   enrich.RegistrationLookup
	logger     *zap.Logger

	refreshInterval time.Duration
	now             func() time.Time

	users       *cache.Store[model.User]
	vendors     *cache.Store[model.Vendor]
	subscribers *cache.Store[model.Subscriber]

	orderMu   sync.RWMutex
	orderList []model.Order
	orderByID map[string]int
}

// NewService создаёт сервис с указанными клиентом бэкенда и зависимостями.
func NewService(gw Gateway, sessions *session.Manager, orderCache OrderCache, banks BankDirectory, registry enrich.RegistrationLookup, logger *zap.Logger, refreshInterval time.Duration) *Service {
	return &Service{
		gw:              gw,
		sessions:        sessions,
		orderCache:      orderCache,
		banks:           banks,
		registry:        registry,
		logger:          logger,
		refreshInterval: refreshInterval,
		now:             time.Now,
		users:           cache.NewStore(func(u model.User) string { return u.ID }),
		vendors:         cache.NewStore(func(v model.Vendor) string { return v.ID }),
		subscribers:     cache.NewStore(func(s model.Subscriber) string { return s.UserID }),
		orderByID:       map[string]int{},
	}
}

// Login выполняет вход оператора и устанавливает текущую сессию.
func (s *Service) Login(ctx context.Context, login, password string) (session.Identity, error) {
	ident, token, err := s.gw.Login(ctx, login, password)
	if err != nil {
		return session.Identity{}, err
	}
	s.sessions.Establish(ident, token)
	return ident, nil
}

// Logout завершает текущую сессию.
func (s *Service) Logout() {
	s.sessions.Invalidate()
}

// CurrentIdentity возвращает личность активной сессии.
func (s *Service) CurrentIdentity() (session.Identity, bool) {
	return s.sessions.Current()
}

// Dashboard возвращает агрегаты главного экрана.
func (s *Service) Dashboard(ctx context.Context) (model.DashboardStats, error) {
	return s.gw.DashboardStats(ctx)
}

// Users возвращает список пользователей, перечитывая его при refresh.
func (s *Service) Users(ctx context.Context, refresh bool) ([]model.User, error) {
	if s.users.Loaded() && !refresh {
		return s.users.List(), nil
	}

	gen := s.users.Begin()
	list, err := s.gw.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if !s.users.SetList(gen, list) {
		s.logger.Debug("stale users response discarded")
	}
	return s.users.List(), nil
}

// Vendors возвращает список вендоров, перечитывая его при refresh.
func (s *Service) Vendors(ctx context.Context, refresh bool) ([]model.Vendor, error) {
	if s.vendors.Loaded() && !refresh {
		return s.vendors.List(), nil
	}

	gen := s.vendors.Begin()
	list, err := s.gw.ListVendors(ctx)
	if err != nil {
		return nil, err
	}
	if !s.vendors.SetList(gen, list) {
		s.logger.Debug("stale vendors response discarded")
	}
	return s.vendors.List(), nil
}

// SubmitVendor отправляет анкету нового вендора и сбрасывает кэш вендоров.
func (s *Service) SubmitVendor(ctx context.Context, d *vendorform.Draft) error {
	if err := vendorform.Submit(ctx, s.gw, d); err != nil {
		return err
	}
	s.vendors.Invalidate()
	return nil
}

// UpdateVendor сохраняет изменения вендора: сначала бэкенд, потом кэш.
func (s *Service) UpdateVendor(ctx context.Context, v model.Vendor) error {
	if err := s.gw.UpdateVendor(ctx, v); err != nil {
		return err
	}
	s.vendors.Upsert(v)
	return nil
}

// DeleteVendor удаляет вендора: сначала бэкенд, потом кэш.
func (s *Service) DeleteVendor(ctx context.Context, id string) error {
	if err := s.gw.DeleteVendor(ctx, id); err != nil {
		return err
	}
	s.vendors.Delete(id)
	return nil
}

// ToggleVendor переключает активность вендора. Локальное состояние меняется
// только после подтверждения бэкенда.
func (s *Service) ToggleVendor(ctx context.Context, id string) (model.Vendor, error) {
	if !s.vendors.Loaded() {
		if _, err := s.Vendors(ctx, true); err != nil {
			return model.Vendor{}, err
		}
	}

	v, ok := s.vendors.Get(id)
	if !ok {
		return model.Vendor{}, ErrVendorNotFound
	}

	if err := s.gw.SetVendorActive(ctx, id, !v.Active); err != nil {
		return model.Vendor{}, err
	}

	updated, _ := s.vendors.Update(id, func(v model.Vendor) model.Vendor {
		v.Active = !v.Active
		return v
	})
	return updated, nil
}

// Orders возвращает заказы, отфильтрованные по текущему выбору.
// При недоступности бэкенда отдаётся резервный кэш; второй результат
// сообщает, что данные взяты из него.
func (s *Service) Orders(ctx context.Context, f orders.Filter) ([]model.Order, bool, error) {
	list, err := s.gw.ListOrders(ctx)
	if err != nil {
		// Истёкшая сессия не маскируется кэшем: оператор должен войти заново.
		if errors.Is(err, upstream.ErrSessionExpired) {
			return nil, false, err
		}

		cached, cacheErr := s.orderCache.Load(ctx)
		if cacheErr != nil {
			s.logger.Warn("orders fetch failed and cache is unavailable",
				zap.Error(err), zap.NamedError("cacheError", cacheErr))
			return nil, false, err
		}

		s.logger.Warn("orders fetch failed, serving cached list", zap.Error(err))
		s.setOrderSnapshot(cached)
		return f.Apply(cached, s.now()), true, nil
	}

	s.setOrderSnapshot(list)
	if err := s.orderCache.Save(ctx, list); err != nil {
		s.logger.Warn("order cache save failed", zap.Error(err))
	}

	return f.Apply(list, s.now()), false, nil
}

// AcceptOrder подтверждает заказ. Статус меняется локально только после
// подтверждения бэкенда; неудачный вызов оставляет заказ в Pending.
func (s *Service) AcceptOrder(ctx context.Context, orderID string) (model.Order, error) {
	return s.applyOrderVerb(ctx, orderID, orders.VerbAccept, s.gw.ApproveSubscriptionOrder)
}

// RejectOrder отклоняет заказ. Как и подтверждение, отклонение применяется
// локально только после подтверждения бэкенда.
func (s *Service) RejectOrder(ctx context.Context, orderID string) (model.Order, error) {
	return s.applyOrderVerb(ctx, orderID, orders.VerbReject, s.gw.RejectSubscriptionOrder)
}

func (s *Service) applyOrderVerb(ctx context.Context, orderID string, verb orders.Verb, call func(context.Context, string) error) (model.Order, error) {
	o, ok := s.lookupOrder(orderID)
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}

	res := orders.Transition(o.Status, verb)
	if !res.Changed {
		// Повторное действие над уже обработанным заказом — no-op.
		return o, nil
	}

	if o.SubscriptionID == "" {
		return o, ErrNoSubscription
	}

	if err := call(ctx, o.SubscriptionID); err != nil {
		return o, err
	}

	o.Status = res.Status
	s.replaceOrder(o)
	return o, nil
}

// SubscriberDetail — карточка абонента с расчётами сроков подписки.
type SubscriberDetail struct {
	Subscriber model.Subscriber
	Summary    subscription.Summary
	History    []model.OrderHistoryEntry
	// HistoryError не пуст, если историю загрузить не удалось: расчёты
	// деградируют до номинальных значений, ошибка показывается рядом.
	HistoryError string
}

// Subscribers возвращает список абонентов, перечитывая его при refresh.
func (s *Service) Subscribers(ctx context.Context, refresh bool) ([]model.Subscriber, error) {
	if s.subscribers.Loaded() && !refresh {
		return s.subscribers.List(), nil
	}

	gen := s.subscribers.Begin()
	list, err := s.gw.ListSubscribers(ctx)
	if err != nil {
		return nil, err
	}
	if !s.subscribers.SetList(gen, list) {
		s.logger.Debug("stale subscribers response discarded")
	}
	return s.subscribers.List(), nil
}

// SubscriberDetail возвращает карточку абонента. Недоступная история
// доставок не фатальна: сводка строится без неё.
func (s *Service) SubscriberDetail(ctx context.Context, userID string) (SubscriberDetail, error) {
	if !s.subscribers.Loaded() {
		if _, err := s.Subscribers(ctx, true); err != nil {
			return SubscriberDetail{}, err
		}
	}

	sub, ok := s.subscribers.Get(userID)
	if !ok {
		return SubscriberDetail{}, ErrSubscriberNotFound
	}

	detail := SubscriberDetail{Subscriber: sub}

	if sub.SubscriptionID == "" {
		detail.HistoryError = "subscription id is unknown"
	} else {
		history, err := s.gw.OrderHistory(ctx, sub.SubscriptionID)
		if err != nil {
			if errors.Is(err, upstream.ErrSessionExpired) {
				return SubscriberDetail{}, err
			}
			s.logger.Warn("order history fetch failed",
				zap.String("subscriptionID", sub.SubscriptionID), zap.Error(err))
			detail.HistoryError = "order history is unavailable"
		} else {
			detail.History = history
		}
	}

	detail.Summary = subscription.Summarize(s.now(), sub, detail.History)
	return detail, nil
}

// Payments возвращает список платежей.
func (s *Service) Payments(ctx context.Context) ([]model.Payment, error) {
	return s.gw.ListPayments(ctx)
}

// SetPaymentStatus меняет статус платежа. Вызов не повторяется автоматически.
func (s *Service) SetPaymentStatus(ctx context.Context, id, status string) error {
	return s.gw.UpdatePaymentStatus(ctx, id, status)
}

// LookupBank возвращает банк и отделение по коду IFSC.
func (s *Service) LookupBank(ctx context.Context, code string) (*enrich.BankInfo, error) {
	return s.banks.Lookup(ctx, code)
}

// LookupRegistration возвращает сведения о бизнесе по номеру GSTIN.
func (s *Service) LookupRegistration(ctx context.Context, id string) (*enrich.BusinessInfo, error) {
	return s.registry.LookupByRegistrationNumber(ctx, id)
}

// StartOrderRefresh запускает периодическое обновление списка заказов.
// Останавливается отменой контекста.
func (s *Service) StartOrderRefresh(ctx context.Context) {
	if s.refreshInterval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.refreshOrders(ctx)
			}
		}
	}()
}

func (s *Service) refreshOrders(ctx context.Context) {
	list, err := s.gw.ListOrders(ctx)
	if err != nil {
		s.logger.Warn("periodic orders refresh failed", zap.Error(err))
		return
	}

	s.setOrderSnapshot(list)
	if err := s.orderCache.Save(ctx, list); err != nil {
		s.logger.Warn("order cache save failed", zap.Error(err))
	}
}

func (s *Service) setOrderSnapshot(list []model.Order) {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	s.orderList = make([]model.Order, len(list))
	copy(s.orderList, list)

	s.orderByID = make(map[string]int, len(list))
	for i, o := range s.orderList {
		s.orderByID[o.ID] = i
	}
}

func (s *Service) lookupOrder(id string) (model.Order, bool) {
	s.orderMu.RLock()
	defer s.orderMu.RUnlock()

	i, ok := s.orderByID[id]
	if !ok {
		return model.Order{}, false
	}
	return s.orderList[i], true
}

func (s *Service) replaceOrder(o model.Order) {
	s.orderMu.Lock()
	defer s.orderMu.Unlock()

	if i, ok := s.orderByID[o.ID]; ok {
		s.orderList[i] = o
	}
}
