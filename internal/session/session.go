// Package session хранит текущую сессию оператора и её bearer-токен.
package session

import (
	"errors"
	"sync"
)

// ErrNoSession возвращается при обращении к бизнес-бэкенду без активной сессии.
var ErrNoSession = errors.New("no active session")

// Identity описывает вошедшего оператора.
type Identity struct {
	Login string
	Name  string
	Role  string
}

// Manager — единственный владелец текущей личности и bearer-токена.
// Токен не хранится больше нигде: все обращения к бэкенду идут через Token.
type Manager struct {
	mu     sync.RWMutex
	ident  Identity
	token  string
	active bool
}

// NewManager создаёт менеджер без активной сессии.
func NewManager() *Manager {
	return &Manager{}
}

// Establish сохраняет личность и токен новой сессии, замещая предыдущую.
func (m *Manager) Establish(ident Identity, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ident = ident
	m.token = token
	m.active = true
}

// Token возвращает bearer-токен активной сессии.
func (m *Manager) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.active {
		return "", ErrNoSession
	}
	return m.token, nil
}

// Current возвращает личность активной сессии.
func (m *Manager) Current() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ident, m.active
}

// Invalidate сбрасывает сессию. Вызывается при выходе оператора и при
// ответе 401/403 от бизнес-бэкенда.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ident = Identity{}
	m.token = ""
	m.active = false
}
