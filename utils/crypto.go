package utils

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword создает bcrypt-хеш пароля (соль генерируется для каждой записи)
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword проверяет пароль по хешу
func VerifyPassword(password, hashedPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// dummyHash используется, чтобы время проверки не выдавало отсутствие пользователя
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("ledgerbank-dummy-password"), bcrypt.DefaultCost)

// BurnPasswordCheck выполняет проверку пароля против фиктивного хеша
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// GenerateRandomKey генерирует случайный ключ заданной длины
func GenerateRandomKey(length int) ([]byte, error) {
	if length <= 0 {
		return nil, errors.New("key length must be positive")
	}
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}
