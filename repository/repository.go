// Package repository описывает интерфейсы хранилища, от которых зависят сервисы.
// Реализация на GORM находится в пакете database.
package repository

import (
	"context"
	"errors"

	"ledgerbank/models"
)

var (
	// ErrNotFound возвращается, когда запись не найдена
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate возвращается при нарушении уникального ограничения
	ErrDuplicate = errors.New("duplicate record")
)

// Credentials хранит учетные данные пользователей
type Credentials interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
}

// LedgerStore - операции журнала, доступные внутри атомарной секции
type LedgerStore interface {
	// LatestTransaction возвращает последнюю запись аккаунта по (created_at, id)
	// или nil, если записей нет
	LatestTransaction(ctx context.Context, userID uint) (*models.Transaction, error)
	AppendTransaction(ctx context.Context, txn *models.Transaction) error
	ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error)
}

// Ledger - журнал операций с атомарным чтением-изменением-записью для аккаунта
type Ledger interface {
	LedgerStore
	// WithAccountLock выполняет fn в одной транзакции БД, сериализованной по аккаунту.
	// Ошибка fn откатывает транзакцию.
	WithAccountLock(ctx context.Context, userID uint, fn func(store LedgerStore) error) error
}
