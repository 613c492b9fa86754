package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"ledgerbank/models"
	"ledgerbank/utils"
)

func TestBalanceOfNewAccountIsZero(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "fresh")

	balance, err := bank.CurrentBalance(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}

	txns, err := bank.History(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 0 {
		t.Errorf("history has %d entries, want 0", len(txns))
	}
}

func TestDepositWithdrawScenario(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "alice")
	ctx := context.Background()

	txn, err := bank.Deposit(ctx, user, 500)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if txn.Type != models.TransactionTypeDeposit || txn.Amount != 500 || txn.CurrentBalance != 500 {
		t.Errorf("unexpected deposit: %+v", txn)
	}

	txn, err = bank.Withdraw(ctx, user, 200)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if txn.Type != models.TransactionTypeWithdraw || txn.Amount != 200 || txn.CurrentBalance != 300 {
		t.Errorf("unexpected withdraw: %+v", txn)
	}

	if _, err := bank.Withdraw(ctx, user, 400); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Withdraw(400): want ErrInsufficientBalance, got %v", err)
	}

	balance, _ := bank.CurrentBalance(ctx, user)
	if balance != 300 {
		t.Errorf("balance = %d, want 300", balance)
	}

	txns, err := bank.History(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 2 {
		t.Fatalf("history has %d entries, want 2", len(txns))
	}
	if txns[0].Type != models.TransactionTypeDeposit || txns[1].Type != models.TransactionTypeWithdraw {
		t.Errorf("history order: %s, %s", txns[0].Type, txns[1].Type)
	}
	for _, txn := range txns {
		if txn.Username != "alice" || txn.UserID != user.ID {
			t.Errorf("transaction owner: %+v", txn)
		}
	}
	checkLedger(t, txns)
}

func TestInvalidAmount(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "bob")
	ctx := context.Background()

	if _, err := bank.Deposit(ctx, user, 100); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		op     func(context.Context, *models.User, int64) (*models.Transaction, error)
		amount int64
	}{
		{"withdraw zero", bank.Withdraw, 0},
		{"withdraw negative", bank.Withdraw, -5},
		{"deposit zero", bank.Deposit, 0},
		{"deposit negative", bank.Deposit, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.op(ctx, user, tt.amount); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("want ErrInvalidAmount, got %v", err)
			}
		})
	}

	txns, _ := bank.History(ctx, user)
	if len(txns) != 1 {
		t.Errorf("rejected operations were recorded: %d entries", len(txns))
	}
}

func TestDepositOverflow(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "rich")
	ctx := context.Background()

	if _, err := bank.Deposit(ctx, user, math.MaxInt64); err != nil {
		t.Fatal(err)
	}
	if _, err := bank.Deposit(ctx, user, 1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount on overflow, got %v", err)
	}

	balance, _ := bank.CurrentBalance(ctx, user)
	if balance != math.MaxInt64 {
		t.Errorf("balance = %d", balance)
	}
}

func TestWithdrawWithoutHistory(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "empty")

	if _, err := bank.Withdraw(context.Background(), user, 10); !errors.Is(err, ErrNoFunds) {
		t.Fatalf("want ErrNoFunds, got %v", err)
	}
	// некорректная сумма проверяется раньше отсутствия операций
	if _, err := bank.Withdraw(context.Background(), user, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("want ErrInvalidAmount, got %v", err)
	}
}

func TestWithdrawToZero(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "zero")
	ctx := context.Background()

	if _, err := bank.Deposit(ctx, user, 70); err != nil {
		t.Fatal(err)
	}
	txn, err := bank.Withdraw(ctx, user, 70)
	if err != nil {
		t.Fatalf("Withdraw full balance: %v", err)
	}
	if txn.CurrentBalance != 0 {
		t.Errorf("balance = %d, want 0", txn.CurrentBalance)
	}

	// после обнуления снятие дает InsufficientBalance, а не NoFunds
	if _, err := bank.Withdraw(ctx, user, 1); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
}

func TestUnknownAccount(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	ghost := &models.User{ID: 4242, Username: "ghost"}

	if _, err := bank.Deposit(context.Background(), ghost, 10); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("want ErrUserNotFound, got %v", err)
	}
}

func TestConcurrentWithdrawals(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		user := newAccount(t, db, fmt.Sprintf("race%d", round))
		if _, err := bank.Deposit(ctx, user, 150); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = bank.Withdraw(ctx, user, 100)
			}(i)
		}
		wg.Wait()

		var ok, insufficient int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientBalance):
				insufficient++
			default:
				t.Fatalf("round %d: unexpected error %v", round, err)
			}
		}
		if ok != 1 || insufficient != 1 {
			t.Fatalf("round %d: %d succeeded, %d insufficient; want 1 and 1", round, ok, insufficient)
		}

		balance, _ := bank.CurrentBalance(ctx, user)
		if balance != 50 {
			t.Fatalf("round %d: balance = %d, want 50", round, balance)
		}
		txns, _ := bank.History(ctx, user)
		checkLedger(t, txns)
	}
}

func TestConcurrentDeposits(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "busy")
	ctx := context.Background()

	const workers = 25
	var wg sync.WaitGroup
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			if _, err := bank.Deposit(ctx, user, amount); err != nil {
				t.Errorf("Deposit(%d): %v", amount, err)
			}
		}(int64(i))
	}
	wg.Wait()

	balance, _ := bank.CurrentBalance(ctx, user)
	if want := int64(workers * (workers + 1) / 2); balance != want {
		t.Errorf("balance = %d, want %d", balance, want)
	}

	txns, _ := bank.History(ctx, user)
	if len(txns) != workers {
		t.Fatalf("history has %d entries, want %d", len(txns), workers)
	}
	checkLedger(t, txns)
}

func TestAccountsAreIndependent(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	a := newAccount(t, db, "first")
	b := newAccount(t, db, "second")
	ctx := context.Background()

	if _, err := bank.Deposit(ctx, a, 100); err != nil {
		t.Fatal(err)
	}
	if _, err := bank.Withdraw(ctx, b, 1); !errors.Is(err, ErrNoFunds) {
		t.Fatalf("second account sees first account's funds: %v", err)
	}
	if balance, _ := bank.CurrentBalance(ctx, b); balance != 0 {
		t.Errorf("second balance = %d", balance)
	}
}

func TestSameTimestampOrderedByID(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bank.now = func() time.Time { return fixed }
	user := newAccount(t, db, "tick")
	ctx := context.Background()

	for _, amount := range []int64{10, 20, 30} {
		if _, err := bank.Deposit(ctx, user, amount); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := bank.Withdraw(ctx, user, 5); err != nil {
		t.Fatal(err)
	}

	balance, _ := bank.CurrentBalance(ctx, user)
	if balance != 55 {
		t.Errorf("balance = %d, want 55", balance)
	}

	txns, _ := bank.History(ctx, user)
	for i := 1; i < len(txns); i++ {
		if txns[i].ID <= txns[i-1].ID {
			t.Fatalf("history not ordered by id: %d after %d", txns[i].ID, txns[i-1].ID)
		}
	}
	checkLedger(t, txns)
}

func TestClockGoingBackwards(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bank.now = func() time.Time {
		clock = clock.Add(-time.Minute)
		return clock
	}
	user := newAccount(t, db, "skew")
	ctx := context.Background()

	if _, err := bank.Deposit(ctx, user, 100); err != nil {
		t.Fatal(err)
	}
	if _, err := bank.Withdraw(ctx, user, 30); err != nil {
		t.Fatal(err)
	}
	txn, err := bank.Deposit(ctx, user, 5)
	if err != nil {
		t.Fatal(err)
	}

	balance, _ := bank.CurrentBalance(ctx, user)
	if balance != 75 || txn.CurrentBalance != 75 {
		t.Errorf("balance = %d (last txn %d), want 75", balance, txn.CurrentBalance)
	}

	txns, _ := bank.History(ctx, user)
	checkLedger(t, txns)
}

func TestRandomOperationsKeepLedgerConsistent(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "random")
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(1, 2))

	var want int64
	for i := 0; i < 200; i++ {
		amount := rng.Int64N(200) + 1
		if rng.IntN(2) == 0 {
			if _, err := bank.Deposit(ctx, user, amount); err != nil {
				t.Fatal(err)
			}
			want += amount
			continue
		}

		_, err := bank.Withdraw(ctx, user, amount)
		switch {
		case err == nil:
			want -= amount
		case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrNoFunds):
		default:
			t.Fatal(err)
		}
	}

	balance, _ := bank.CurrentBalance(ctx, user)
	if balance != want {
		t.Errorf("balance = %d, want %d", balance, want)
	}
	txns, _ := bank.History(ctx, user)
	checkLedger(t, txns)
}

func TestRejectionsAreNotCountedAsErrors(t *testing.T) {
	db := newTestDatabase(t)
	bank := NewBankService(db)
	user := newAccount(t, db, "metrics")
	ctx := context.Background()

	counters := func() (errs, rejected int64) {
		snap := utils.GetMetrics().GetMetricsSnapshot()
		return snap["error_count"].(int64), snap["rejected_operations"].(map[string]int64)["withdraw"]
	}
	errsBefore, rejectedBefore := counters()

	if _, err := bank.Withdraw(ctx, user, 10); !errors.Is(err, ErrNoFunds) {
		t.Fatal(err)
	}
	if _, err := bank.Withdraw(ctx, user, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatal(err)
	}

	errsAfter, rejectedAfter := counters()
	if errsAfter != errsBefore {
		t.Errorf("error_count grew by %d for domain rejections", errsAfter-errsBefore)
	}
	if rejectedAfter-rejectedBefore != 2 {
		t.Errorf("rejected withdrawals grew by %d, want 2", rejectedAfter-rejectedBefore)
	}
}
