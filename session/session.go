// Package session хранит серверное состояние клиента: вошедшего пользователя и
// ожидающий ответ CAPTCHA. Клиент получает только подписанный идентификатор сессии.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNoSession означает, что middleware не прикрепил сессию к запросу
var ErrNoSession = errors.New("session not loaded")

// State - типизированное состояние сессии
type State struct {
	Username      string `json:"username,omitempty"`
	CaptchaAnswer string `json:"captcha_answer,omitempty"`
}

// Authenticated сообщает, выполнен ли вход
func (s State) Authenticated() bool {
	return s.Username != ""
}

// Store хранит состояния сессий. Запись живет ttl с момента последнего Save.
type Store interface {
	Get(ctx context.Context, id string) (State, bool, error)
	Save(ctx context.Context, id string, state State, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	// TakeCaptcha атомарно возвращает ожидающий ответ CAPTCHA и стирает его,
	// не меняя срок жизни записи. Пустая строка - ответа нет.
	TakeCaptcha(ctx context.Context, id string) (string, error)
}

// Session - состояние сессии текущего запроса
type Session struct {
	ID    string
	State State
}

type contextKey struct{}

// NewContext возвращает контекст с прикрепленной сессией
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext возвращает сессию запроса или nil
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
