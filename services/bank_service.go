package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"ledgerbank/models"
	"ledgerbank/repository"
)

// BankService - движок журнала операций. Баланс аккаунта нигде не хранится:
// это снимок CurrentBalance последней записи журнала (по created_at, затем id).
type BankService struct {
	ledger repository.Ledger
	locks  *accountLocks
	now    func() time.Time
}

// NewBankService создает новый экземпляр BankService
func NewBankService(ledger repository.Ledger) *BankService {
	return &BankService{
		ledger: ledger,
		locks:  newAccountLocks(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CurrentBalance возвращает текущий баланс аккаунта или 0, если операций не было
func (s *BankService) CurrentBalance(ctx context.Context, user *models.User) (int64, error) {
	last, err := s.ledger.LatestTransaction(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	if last == nil {
		return 0, nil
	}
	return last.CurrentBalance, nil
}

// Deposit пополняет аккаунт на amount
func (s *BankService) Deposit(ctx context.Context, user *models.User, amount int64) (txn *models.Transaction, err error) {
	defer func(start time.Time) { logOperation("deposit", start, err) }(time.Now())

	return s.append(ctx, user, models.TransactionTypeDeposit, amount)
}

// Withdraw списывает amount с аккаунта. Баланс не может стать отрицательным.
func (s *BankService) Withdraw(ctx context.Context, user *models.User, amount int64) (txn *models.Transaction, err error) {
	defer func(start time.Time) { logOperation("withdraw", start, err) }(time.Now())

	return s.append(ctx, user, models.TransactionTypeWithdraw, amount)
}

// History возвращает все операции аккаунта в порядке создания
func (s *BankService) History(ctx context.Context, user *models.User) ([]models.Transaction, error) {
	txns, err := s.ledger.ListTransactions(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return txns, nil
}

// append читает последний баланс, проверяет операцию и дописывает запись.
// Чтение и запись выполняются под блокировкой аккаунта: сначала внутрипроцессный
// мьютекс, затем транзакция БД с блокировкой строки владельца.
func (s *BankService) append(ctx context.Context, user *models.User, kind models.TransactionType, amount int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	unlock := s.locks.lock(user.ID)
	defer unlock()

	var created *models.Transaction
	err := s.ledger.WithAccountLock(ctx, user.ID, func(store repository.LedgerStore) error {
		last, err := store.LatestTransaction(ctx, user.ID)
		if err != nil {
			return err
		}

		var balance int64
		createdAt := s.now()
		if last != nil {
			balance = last.CurrentBalance
			// порядок (created_at, id) должен совпадать с порядком добавления
			if createdAt.Before(last.CreatedAt) {
				createdAt = last.CreatedAt
			}
		}

		switch kind {
		case models.TransactionTypeDeposit:
			if balance > math.MaxInt64-amount {
				return ErrInvalidAmount
			}
			balance += amount
		case models.TransactionTypeWithdraw:
			if last == nil {
				return ErrNoFunds
			}
			if balance < amount {
				return ErrInsufficientBalance
			}
			balance -= amount
		default:
			return fmt.Errorf("unknown transaction type %q", kind)
		}

		txn := &models.Transaction{
			UserID:         user.ID,
			Username:       user.Username,
			Type:           kind,
			Amount:         amount,
			CurrentBalance: balance,
			CreatedAt:      createdAt,
		}
		if err := store.AppendTransaction(ctx, txn); err != nil {
			return err
		}
		created = txn
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return created, nil
}

// accountLocks выдает по мьютексу на аккаунт; разные аккаунты не блокируют друг друга
type accountLocks struct {
	mu    sync.Mutex
	locks map[uint]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uint]*accountLock)}
}

// lock захватывает мьютекс аккаунта и возвращает функцию освобождения
func (l *accountLocks) lock(id uint) func() {
	l.mu.Lock()
	al, ok := l.locks[id]
	if !ok {
		al = &accountLock{}
		l.locks[id] = al
	}
	al.refs++
	l.mu.Unlock()

	al.mu.Lock()

	return func() {
		al.mu.Unlock()

		l.mu.Lock()
		al.refs--
		if al.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
