package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ledgerbank/models"
	"ledgerbank/repository"
	"ledgerbank/utils"

	"github.com/go-playground/validator/v10"
)

// UserService - хранилище учетных данных: регистрация, вход и сброс пароля
type UserService struct {
	users     repository.Credentials
	validator *validator.Validate
}

type CreateUserRequest struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Email     string `validate:"required,email,max=150"`
	Username  string `validate:"required,alphanum,min=3,max=100"`
	Password  string `validate:"required,min=8,max=72"`
}

type ResetPasswordRequest struct {
	Username    string `validate:"required"`
	NewPassword string `validate:"required,min=8,max=72"`
}

func NewUserService(users repository.Credentials) *UserService {
	return &UserService{
		users:     users,
		validator: validator.New(),
	}
}

// Register создает нового пользователя. Имя пользователя и email должны быть уникальны.
func (s *UserService) Register(ctx context.Context, req CreateUserRequest) (user *models.User, err error) {
	defer func(start time.Time) { logOperation("register", start, err) }(time.Now())

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = models.NormalizeEmail(req.Email)
	req.Username = strings.TrimSpace(req.Username)

	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}

	// Проверяем, существует ли пользователь с таким именем
	if _, err := s.users.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  hashedPassword,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// параллельная регистрация упирается в уникальный индекс username или email
		if errors.Is(err, repository.ErrDuplicate) {
			if _, lookupErr := s.users.GetUserByUsername(ctx, req.Username); lookupErr == nil {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	return user, nil
}

// Authenticate проверяет имя пользователя и пароль. Отсутствие пользователя и
// неверный пароль неразличимы снаружи.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (user *models.User, err error) {
	defer func(start time.Time) { logOperation("login", start, err) }(time.Now())

	user, err = s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.VerifyPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// ResetPassword заменяет хеш пароля пользователя.
// Одноразовый код подтверждения не проверяется: сброс не аутентифицирован.
func (s *UserService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (user *models.User, err error) {
	defer func(start time.Time) { logOperation("reset_password", start, err) }(time.Now())

	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(s.validator, req); err != nil {
		return nil, err
	}

	user, err = s.FindByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.Password = hashedPassword

	utils.LogInfo("password for %q was reset without OTP verification", user.Username)
	return user, nil
}

// FindByUsername ищет пользователя по имени
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
