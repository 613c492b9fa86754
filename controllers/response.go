package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledgerbank/services"
	"ledgerbank/utils"
)

const genericErrorMessage = "Something went wrong. Please try again."

// errorMessage переводит ошибку в сообщение для пользователя
func errorMessage(err error) string {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.Is(err, services.ErrInvalidCaptcha):
		return "Invalid captcha"
	case errors.Is(err, services.ErrUsernameTaken):
		return "Username already exists"
	case errors.Is(err, services.ErrEmailTaken):
		return "Email already registered"
	case errors.Is(err, services.ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, services.ErrUserNotFound):
		return "Username not found"
	case errors.Is(err, services.ErrInvalidAmount):
		return "Invalid amount"
	case errors.Is(err, services.ErrNoFunds):
		return "No balance available"
	case errors.Is(err, services.ErrInsufficientBalance):
		return "Insufficient balance"
	case errors.Is(err, services.ErrNotAuthenticated):
		return "Please login to continue"
	}
	return genericErrorMessage
}

// errorStatus возвращает HTTP-статус страницы с ошибкой.
// Непредвиденные ошибки логируются: пользователь видит только общее сообщение.
func errorStatus(err error) int {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, services.ErrInvalidCaptcha),
		errors.Is(err, services.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoFunds),
		errors.Is(err, services.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case services.IsDomainError(err):
		return http.StatusBadRequest
	}
	utils.LogError("Request failed: %v", err)
	return http.StatusInternalServerError
}

// MetricsHandler отдает снимок метрик в JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(utils.GetMetrics().GetMetricsSnapshot())
}
