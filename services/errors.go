package services

import (
	"errors"
	"time"

	"ledgerbank/utils"
)

// Доменные ошибки. Контроллеры превращают их в сообщение для пользователя
// и повторный показ формы; ErrNotAuthenticated - в редирект на страницу входа.
var (
	ErrInvalidCaptcha      = errors.New("invalid captcha")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUserNotFound        = errors.New("username not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNoFunds             = errors.New("no balance available")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotAuthenticated    = errors.New("not authenticated")
)

// IsDomainError сообщает, относится ли ошибка к ожидаемым доменным отказам
func IsDomainError(err error) bool {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return true
	}
	for _, target := range []error{
		ErrInvalidCaptcha,
		ErrUsernameTaken,
		ErrEmailTaken,
		ErrInvalidCredentials,
		ErrUserNotFound,
		ErrInvalidAmount,
		ErrNoFunds,
		ErrInsufficientBalance,
		ErrNotAuthenticated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// logOperation пишет итог операции в лог и метрики. Доменный отказ - это
// ответ пользователю, а не сбой: он не попадает в ERROR и счетчики ошибок.
func logOperation(operation string, start time.Time, err error) {
	if err != nil && IsDomainError(err) {
		utils.LogRejection(operation, start, err)
		return
	}
	utils.LogOperation(operation, start, err)
}
