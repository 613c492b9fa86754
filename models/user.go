package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// User представляет зарегистрированного клиента банка (аккаунт).
// Баланс в аккаунте не хранится: он выводится из журнала транзакций.
type User struct {
	ID           uint          `gorm:"primaryKey;autoIncrement"`
	FirstName    string        `gorm:"column:first_name;not null;size:100"`
	LastName     string        `gorm:"column:last_name;not null;size:100"`
	Email        string        `gorm:"column:email;uniqueIndex;not null;size:150"`
	Username     string        `gorm:"column:username;uniqueIndex;not null;size:100"`
	Password     string        `gorm:"column:password;not null;size:255"`
	Transactions []Transaction `gorm:"foreignKey:UserID"`
	CreatedAt    time.Time     `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;not null"`
}

func (User) TableName() string {
	return "users"
}

// NormalizeEmail приводит email к виду, в котором он хранится и сравнивается
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BeforeCreate хук для валидации перед созданием.
// Email хранится в нижнем регистре, поэтому уникальный индекс по email
// не пропускает адреса, отличающиеся только регистром.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if len(u.FirstName) < 1 || len(u.FirstName) > 100 {
		return errors.New("first name must be between 1 and 100 characters")
	}
	if len(u.LastName) < 1 || len(u.LastName) > 100 {
		return errors.New("last name must be between 1 and 100 characters")
	}
	if len(u.Email) < 3 || len(u.Email) > 150 {
		return errors.New("email must be between 3 and 150 characters")
	}
	if len(u.Username) < 1 || len(u.Username) > 100 {
		return errors.New("username must be between 1 and 100 characters")
	}
	return nil
}
