package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ledgerbank/config"
	"ledgerbank/controllers"
	"ledgerbank/database"
	"ledgerbank/services"
	"ledgerbank/session"
	"ledgerbank/utils"

	"github.com/go-redis/redis/v8"
)

// newSessionManager создает хранилище сессий согласно конфигурации
func newSessionManager(cfg *config.Config) (*session.Manager, error) {
	secret := []byte(cfg.Session.SecretKey)
	if len(secret) == 0 {
		// без заданного ключа сессии не переживают перезапуск процесса
		key, err := utils.GenerateRandomKey(32)
		if err != nil {
			return nil, err
		}
		secret = key
		utils.LogInfo("SESSION_SECRET_KEY is not set, using a random key")
	}

	var store session.Store
	switch cfg.Session.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store = session.NewRedisStore(rdb)
	default:
		store = session.NewMemoryStore()
	}

	return session.NewManager(store, secret, cfg.Session.TTL, cfg.Session.CookieName), nil
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLoggers(cfg.Log.Dir); err != nil {
		log.Fatalf("Failed to init loggers: %v", err)
	}

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	sessions, err := newSessionManager(cfg)
	if err != nil {
		log.Fatalf("Failed to init sessions: %v", err)
	}

	views, err := controllers.NewViews()
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	// Инициализируем сервисы и контроллеры
	userService := services.NewUserService(db)
	bankService := services.NewBankService(db)
	captchaService := services.NewCaptchaService()

	authController := controllers.NewAuthController(userService, captchaService, sessions, views)
	bankController := controllers.NewBankController(bankService, userService, sessions, views)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           controllers.NewRouter(authController, bankController, sessions),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		utils.LogInfo("Server listening on %s (db=%s, sessions=%s)", server.Addr, db.Dialect(), cfg.Session.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	utils.LogInfo("Got signal to shutdown server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		utils.LogError("Stopping server error: %v", err)
	}
}
