package controllers

import (
	"net/http"

	"ledgerbank/middleware"
	"ledgerbank/session"

	"github.com/gorilla/mux"
)

// NewRouter регистрирует все маршруты приложения
func NewRouter(auth *AuthController, bank *BankController, sessions *session.Manager) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.LoggingMiddleware)

	router.HandleFunc("/debug/metrics", MetricsHandler).Methods(http.MethodGet)

	// Маршруты с сессией
	site := router.PathPrefix("/").Subrouter()
	site.Use(middleware.Sessions(sessions))

	// Публичные маршруты для аутентификации
	site.HandleFunc("/", auth.Home).Methods(http.MethodGet)
	site.HandleFunc("/register", auth.RegisterPage).Methods(http.MethodGet)
	site.HandleFunc("/register", auth.Register).Methods(http.MethodPost)
	site.HandleFunc("/login", auth.LoginPage).Methods(http.MethodGet)
	site.HandleFunc("/login", auth.Login).Methods(http.MethodPost)
	site.HandleFunc("/logout", auth.Logout).Methods(http.MethodGet)
	site.HandleFunc("/forgot-password", auth.ForgotPasswordPage).Methods(http.MethodGet)
	site.HandleFunc("/forgot-password", auth.ForgotPassword).Methods(http.MethodPost)

	// Защищенные маршруты
	protected := site.NewRoute().Subrouter()
	protected.Use(middleware.RequireLogin)

	protected.HandleFunc("/deposit", bank.DepositPage).Methods(http.MethodGet)
	protected.HandleFunc("/deposit", bank.Deposit).Methods(http.MethodPost)
	protected.HandleFunc("/withdraw", bank.WithdrawPage).Methods(http.MethodGet)
	protected.HandleFunc("/withdraw", bank.Withdraw).Methods(http.MethodPost)
	protected.HandleFunc("/balance", bank.Balance).Methods(http.MethodGet)
	protected.HandleFunc("/history", bank.History).Methods(http.MethodGet)
	protected.HandleFunc("/history/export", bank.ExportHistory).Methods(http.MethodGet)
	protected.HandleFunc("/profile", bank.Profile).Methods(http.MethodGet)

	return router
}
