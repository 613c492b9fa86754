package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"ledgerbank/database"
	"ledgerbank/models"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newAccount создает пользователя напрямую через хранилище, минуя bcrypt
func newAccount(t *testing.T, db *database.Database, username string) *models.User {
	t.Helper()
	u := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     username + "@example.com",
		Username:  username,
		Password:  "not-a-hash",
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

// checkLedger проверяет, что каждая запись продолжает баланс предыдущей
// и что баланс нигде не уходит в минус
func checkLedger(t *testing.T, txns []models.Transaction) {
	t.Helper()
	var balance int64
	for i, txn := range txns {
		balance += txn.Signed()
		if txn.CurrentBalance != balance {
			t.Fatalf("txn #%d (id=%d): current_balance=%d, running sum=%d", i, txn.ID, txn.CurrentBalance, balance)
		}
		if balance < 0 {
			t.Fatalf("txn #%d (id=%d): negative balance %d", i, txn.ID, balance)
		}
		if i > 0 && txn.CreatedAt.Before(txns[i-1].CreatedAt) {
			t.Fatalf("txn #%d (id=%d): created_at goes backwards", i, txn.ID)
		}
	}
}
