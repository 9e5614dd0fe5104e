// Package cache содержит in-memory кэши справочников с защитой от
// устаревших ответов бэкенда.
package cache

import "sync"

// Store хранит список записей одного типа на время сессии страницы.
// Загрузка списка привязана к номеру поколения: медленный устаревший ответ
// не может затереть данные более позднего запроса.
type Store[T any] struct {
	key func(T) string

	mu     sync.RWMutex
	items  map[string]T
	order  []string
	gen    uint64
	filled uint64
	loaded bool
}

// NewStore создаёт кэш, извлекающий ключ записи функцией key.
func NewStore[T any](key func(T) string) *Store[T] {
	return &Store[T]{
		key:   key,
		items: make(map[string]T),
	}
}

// Begin выдаёт номер поколения для предстоящей загрузки списка.
// Вызывается до запроса к бэкенду; результат передаётся в SetList.
func (s *Store[T]) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// SetList записывает список, если его поколение не старше уже записанного.
// Возвращает false, если список отвергнут как устаревший.
func (s *Store[T]) SetList(gen uint64, list []T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen < s.filled {
		return false
	}

	s.items = make(map[string]T, len(list))
	s.order = make([]string, 0, len(list))
	for _, item := range list {
		k := s.key(item)
		if _, dup := s.items[k]; !dup {
			s.order = append(s.order, k)
		}
		s.items[k] = item
	}
	s.filled = gen
	s.loaded = true
	return true
}

// Loaded сообщает, была ли выполнена хотя бы одна успешная загрузка.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// List возвращает копию текущего списка в порядке загрузки.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]T, 0, len(s.order))
	for _, k := range s.order {
		res = append(res, s.items[k])
	}
	return res
}

// Get возвращает запись по ключу.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[key]
	return item, ok
}

// Upsert целиком замещает запись с тем же ключом или добавляет новую.
func (s *Store[T]) Upsert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(item)
	if _, exists := s.items[k]; !exists {
		s.order = append(s.order, k)
	}
	s.items[k] = item
}

// Update замещает запись результатом fn. Возвращает false, если записи нет.
// Частичных изменений записи снаружи не видно: слот замещается целиком.
func (s *Store[T]) Update(key string, fn func(T) T) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[key]
	if !ok {
		var zero T
		return zero, false
	}

	updated := fn(item)
	s.items[key] = updated
	return updated, true
}

// Delete удаляет запись по ключу.
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return
	}
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Invalidate сбрасывает признак загрузки: следующий читатель перезапросит список.
func (s *Store[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
}
