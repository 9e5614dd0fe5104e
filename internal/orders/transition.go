package orders

import "github.com/mmeshcher/mealboard-admin/internal/model"

// Verb описывает действие оператора над заказом.
type Verb string

const (
	VerbAccept Verb = "accept"
	VerbReject Verb = "reject"
)

type transitionKey struct {
	from model.OrderStatus
	verb Verb
}

// transitions — единственный источник допустимых переходов статуса заказа.
// Оба перехода одноразовые и терминальные.
var transitions = map[transitionKey]model.OrderStatus{
	{model.OrderStatusPending, VerbAccept}: model.OrderStatusAccepted,
	{model.OrderStatusPending, VerbReject}: model.OrderStatusRejected,
}

// Result описывает итог применения действия к статусу заказа.
// Changed равен false, если действие не имеет эффекта: Status тогда совпадает
// с исходным.
type Result struct {
	Changed bool
	Status  model.OrderStatus
}

// Transition применяет действие к текущему статусу заказа.
// Для любого статуса, кроме Pending, действие не имеет эффекта.
func Transition(current model.OrderStatus, verb Verb) Result {
	if next, ok := transitions[transitionKey{current, verb}]; ok {
		return Result{Changed: true, Status: next}
	}
	return Result{Status: current}
}

// NextStatuses возвращает допустимые статусы из указанного.
func NextStatuses(current model.OrderStatus) []model.OrderStatus {
	var res []model.OrderStatus
	for key, next := range transitions {
		if key.from == current {
			res = append(res, next)
		}
	}
	return res
}
