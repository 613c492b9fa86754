package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledgerbank/middleware"
	"ledgerbank/models"
	"ledgerbank/services"
	"ledgerbank/session"
	"ledgerbank/utils"
)

// BankController обрабатывает операции с журналом: пополнение, снятие,
// баланс, история, выписка и профиль. Все маршруты требуют входа.
type BankController struct {
	bank     *services.BankService
	users    *services.UserService
	sessions *session.Manager
	views    *Views
}

// NewBankController создает новый экземпляр BankController
func NewBankController(bank *services.BankService, users *services.UserService, sessions *session.Manager, views *Views) *BankController {
	return &BankController{
		bank:     bank,
		users:    users,
		sessions: sessions,
		views:    views,
	}
}

// DepositPage показывает форму пополнения
func (c *BankController) DepositPage(w http.ResponseWriter, r *http.Request) {
	user, ok := c.currentUser(w, r)
	if !ok {
		return
	}
	c.views.Render(w, http.StatusOK, "deposit", ViewData{Title: "Deposit", Username: user.Username})
}

// Deposit обрабатывает запрос на пополнение
func (c *BankController) Deposit(w http.ResponseWriter, r *http.Request) {
	user, ok := c.currentUser(w, r)
	if !ok {
		return
	}
	data := ViewData{Title: "Deposit", Username: user.Username}

	amount, err := parseAmount(r)
	if err == nil {
		var txn *models.Transaction
		txn, err = c.bank.Deposit(r.Context(), user, amount)
		if err == nil {
			data.Success = fmt.Sprintf("₹%d deposited successfully! Current balance: ₹%d", txn.Amount, txn.CurrentBalance)
			c.views.Render(w, http.StatusOK, "deposit", data)
			return
		}
	}

	data.Error = errorMessage(err)
	c.views.Render(w, errorStatus(err), "deposit", data)
}

// WithdrawPage показывает форму снятия
func (c *BankController) WithdrawPage(w http.ResponseWriter, r *http.Request) {
	user, ok := c.currentUser(w, r)
	if !ok {
		return
	}
	c.views.Render(w, http.StatusOK, "withdraw", ViewData{Title: "Withdraw", Username: user.Username})
}

// Withdraw обрабатывает запрос на снятие средств
func (c *BankController) Withdraw(w http.ResponseWriter, r *http.Request) {
	user, ok := c.currentUser(w, r)
	if !ok {
		return
	}
	data := ViewData{Title: "Withdraw", Username: user.Username}

	amount, err := parseAmount(r)
	if err == nil {
		var txn *models.Transaction
		txn, err = c.bank.Withdraw(r.Context(), user, amount)
		if err == nil {
			data.Success = fmt.Sprintf("₹%d withdrawn successfully! Current balance: ₹%d", txn.Amount, txn.CurrentBalance)
			c.views.Render(w, http.StatusOK, "withdraw", data)
			return
		}
	}

	data.Error = errorMessage(err)
	c.views.Render(w, errorStatus(err), "withdraw", data)
}

// Balance показывает текущий баланс
func (c *BankController) Balance(w http.ResponseWriter, r *http.Request) {
	user, ok := c.currentUser(w, r)
	if !ok {
		return
	}

	balance, err := c.bank.CurrentBalance(r.Context(), user)
	if err != nil {
		c.views.Render(w, errorStatus(err), "balance", ViewData{Title: "Balance", Username: user.Username, Error: errorMessage(err)})
		return
	}

	c.views.Render(w, http.StatusOK, "balance", ViewData{
		Title:    "Balance",
		Username: user.Username,
		Success:  "Your Balance.",
		Balance:  balance,
	})
}

// History показывает все операции аккаунта в порядке создания
func (c *BankController) History(w http.ResponseWriter, r *http.Request) {
	user, ok := c.currentUser(w, r)
	if !ok {
		return
	}

	txns, err := c.bank.History(r.Context(), user)
	if err != nil {
		c.views.Render(w, errorStatus(err), "history", ViewData{Title: "History", Username: user.Username, Error: errorMessage(err)})
		return
	}

	c.views.Render(w, http.StatusOK, "history", ViewData{
		Title:        "History",
		Username:     user.Username,
		Transactions: txns,
	})
}

// ExportHistory отдает XML-выписку по аккаунту
func (c *BankController) ExportHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := c.currentUser(w, r)
	if !ok {
		return
	}

	txns, err := c.bank.History(r.Context(), user)
	if err != nil {
		http.Error(w, errorMessage(err), errorStatus(err))
		return
	}

	doc := services.BuildStatement(user, txns, time.Now())
	body, err := doc.WriteToBytes()
	if err != nil {
		utils.LogError("Failed to encode statement: %v", err)
		http.Error(w, genericErrorMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.xml"`, user.Username))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Profile показывает данные пользователя
func (c *BankController) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := c.currentUser(w, r)
	if !ok {
		return
	}
	c.views.Render(w, http.StatusOK, "profile", ViewData{Title: "Profile", Username: user.Username, User: user})
}

// currentUser загружает вошедшего пользователя. Если сессия анонимна или
// пользователь исчез, клиент перенаправляется на страницу входа.
func (c *BankController) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := c.loadUser(r)
	if err == nil {
		return user, true
	}

	if errors.Is(err, services.ErrNotAuthenticated) {
		if err := c.sessions.Clear(w, r, currentSession(r)); err != nil {
			utils.LogError("Failed to clear session: %v", err)
		}
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return nil, false
	}

	utils.LogError("Failed to load user: %v", err)
	http.Error(w, genericErrorMessage, http.StatusInternalServerError)
	return nil, false
}

func (c *BankController) loadUser(r *http.Request) (*models.User, error) {
	username, ok := middleware.CurrentUsername(r)
	if !ok {
		return nil, services.ErrNotAuthenticated
	}

	user, err := c.users.FindByUsername(r.Context(), username)
	if errors.Is(err, services.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: account %q no longer exists", services.ErrNotAuthenticated, username)
	}
	return user, err
}

// parseAmount разбирает поле amount как целое число
func parseAmount(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PostFormValue("amount"))
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, services.ErrInvalidAmount
	}
	return amount, nil
}
