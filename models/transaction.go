package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// TransactionType представляет тип операции в журнале
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "Deposit"
	TransactionTypeWithdraw TransactionType = "Withdraw"
)

// ErrImmutableTransaction возвращается при попытке изменить или удалить запись журнала
var ErrImmutableTransaction = errors.New("transactions are append-only")

// Transaction представляет неизменяемую запись журнала операций.
// CurrentBalance - баланс аккаунта сразу после применения операции.
type Transaction struct {
	ID             uint            `gorm:"primaryKey;autoIncrement;index:idx_transactions_user_latest,priority:3"`
	UserID         uint            `gorm:"column:user_id;not null;index:idx_transactions_user_latest,priority:1"`
	User           User            `gorm:"foreignKey:UserID;references:ID"`
	Username       string          `gorm:"column:username;not null;size:100"`
	Type           TransactionType `gorm:"column:transaction_type;not null;size:20"`
	Amount         int64           `gorm:"column:amount;not null"`
	CurrentBalance int64           `gorm:"column:current_balance;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;not null;index:idx_transactions_user_latest,priority:2"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Signed возвращает сумму со знаком, соответствующим типу операции
func (t Transaction) Signed() int64 {
	if t.Type == TransactionTypeWithdraw {
		return -t.Amount
	}
	return t.Amount
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}
