package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"ledgerbank/models"
	"ledgerbank/repository"
)

// newTestDatabase открывает отдельную базу SQLite в памяти для каждого теста
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createUser(t *testing.T, db *Database, username string) *models.User {
	t.Helper()
	u := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     username + "@example.com",
		Username:  username,
		Password:  "hash",
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u
}

func appendTxn(t *testing.T, db *Database, u *models.User, kind models.TransactionType, amount, balance int64, at time.Time) *models.Transaction {
	t.Helper()
	txn := &models.Transaction{
		UserID:         u.ID,
		Username:       u.Username,
		Type:           kind,
		Amount:         amount,
		CurrentBalance: balance,
		CreatedAt:      at,
	}
	if err := db.AppendTransaction(context.Background(), txn); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	return txn
}

func TestCreateUserDuplicate(t *testing.T) {
	db := newTestDatabase(t)
	createUser(t, db, "alice")

	dup := &models.User{FirstName: "A", LastName: "B", Email: "other@example.com", Username: "alice", Password: "hash"}
	err := db.CreateUser(context.Background(), dup)
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestGetUser(t *testing.T) {
	db := newTestDatabase(t)
	u := createUser(t, db, "bob")
	ctx := context.Background()

	got, err := db.GetUserByUsername(ctx, "bob")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByUsername: got=%+v err=%v", got, err)
	}
	got, err = db.GetUserByEmail(ctx, "BOB@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail is case-insensitive: got=%+v err=%v", got, err)
	}
	if _, err := db.GetUserByUsername(ctx, "nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	db := newTestDatabase(t)
	u := createUser(t, db, "carol")
	ctx := context.Background()

	if err := db.UpdatePassword(ctx, u.ID, "new-hash"); err != nil {
		t.Fatal(err)
	}
	got, _ := db.GetUserByUsername(ctx, "carol")
	if got.Password != "new-hash" {
		t.Fatalf("password=%q want new-hash", got.Password)
	}
	if err := db.UpdatePassword(ctx, u.ID+100, "x"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLatestTransaction(t *testing.T) {
	db := newTestDatabase(t)
	u := createUser(t, db, "dave")
	other := createUser(t, db, "erin")
	ctx := context.Background()

	latest, err := db.LatestTransaction(ctx, u.ID)
	if err != nil || latest != nil {
		t.Fatalf("empty ledger: got=%+v err=%v", latest, err)
	}

	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	appendTxn(t, db, u, models.TransactionTypeDeposit, 100, 100, t0)
	appendTxn(t, db, u, models.TransactionTypeDeposit, 50, 150, t0.Add(time.Second))
	// одинаковое время: побеждает больший id
	last := appendTxn(t, db, u, models.TransactionTypeWithdraw, 20, 130, t0.Add(time.Second))
	appendTxn(t, db, other, models.TransactionTypeDeposit, 999, 999, t0.Add(time.Hour))

	latest, err = db.LatestTransaction(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != last.ID || latest.CurrentBalance != 130 {
		t.Fatalf("latest=%+v want id=%d balance=130", latest, last.ID)
	}
}

func TestListTransactionsOrder(t *testing.T) {
	db := newTestDatabase(t)
	u := createUser(t, db, "frank")
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	a := appendTxn(t, db, u, models.TransactionTypeDeposit, 10, 10, t0)
	b := appendTxn(t, db, u, models.TransactionTypeDeposit, 10, 20, t0)
	c := appendTxn(t, db, u, models.TransactionTypeDeposit, 10, 30, t0.Add(time.Millisecond))

	txns, err := db.ListTransactions(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 3 || txns[0].ID != a.ID || txns[1].ID != b.ID || txns[2].ID != c.ID {
		t.Fatalf("unexpected order: %+v", txns)
	}
}

func TestTransactionsAreAppendOnly(t *testing.T) {
	db := newTestDatabase(t)
	u := createUser(t, db, "grace")
	txn := appendTxn(t, db, u, models.TransactionTypeDeposit, 10, 10, time.Now().UTC())

	if err := db.DB.Model(txn).Update("amount", 1000).Error; !errors.Is(err, models.ErrImmutableTransaction) {
		t.Fatalf("update: want ErrImmutableTransaction, got %v", err)
	}
	if err := db.DB.Delete(txn).Error; !errors.Is(err, models.ErrImmutableTransaction) {
		t.Fatalf("delete: want ErrImmutableTransaction, got %v", err)
	}

	latest, _ := db.LatestTransaction(context.Background(), u.ID)
	if latest == nil || latest.Amount != 10 {
		t.Fatalf("transaction changed: %+v", latest)
	}
}

func TestWithAccountLock(t *testing.T) {
	db := newTestDatabase(t)
	u := createUser(t, db, "heidi")
	ctx := context.Background()

	// ошибка fn откатывает добавленную запись
	boom := errors.New("boom")
	err := db.WithAccountLock(ctx, u.ID, func(store repository.LedgerStore) error {
		if err := store.AppendTransaction(ctx, &models.Transaction{
			UserID: u.ID, Username: u.Username, Type: models.TransactionTypeDeposit,
			Amount: 5, CurrentBalance: 5, CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if latest, _ := db.LatestTransaction(ctx, u.ID); latest != nil {
		t.Fatalf("rolled back transaction is visible: %+v", latest)
	}

	err = db.WithAccountLock(ctx, u.ID+100, func(store repository.LedgerStore) error { return nil })
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing account: want ErrNotFound, got %v", err)
	}
}

func TestEmailUniqueIgnoresCase(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	first := &models.User{FirstName: "A", LastName: "B", Email: " Mixed@Example.COM ", Username: "mixed", Password: "hash"}
	if err := db.CreateUser(ctx, first); err != nil {
		t.Fatal(err)
	}
	if first.Email != "mixed@example.com" {
		t.Errorf("stored email = %q, want lower-cased", first.Email)
	}

	second := &models.User{FirstName: "A", LastName: "B", Email: "mixed@example.com", Username: "other", Password: "hash"}
	if err := db.CreateUser(ctx, second); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	got, err := db.GetUserByEmail(ctx, "MIXED@example.com")
	if err != nil || got.ID != first.ID {
		t.Fatalf("GetUserByEmail: got=%+v err=%v", got, err)
	}
}
