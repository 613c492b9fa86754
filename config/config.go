package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Host string
		Port int
	}
	DB struct {
		Driver         string // postgres | sqlite
		Host           string
		Port           int
		User           string
		Password       string
		DBName         string
		Path           string // файл sqlite
		MigrationsPath string
	}
	Session struct {
		SecretKey  string
		TTL        time.Duration
		CookieName string
		Store      string // memory | redis
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Dir string
	}
}

// NewConfig создает новый экземпляр конфигурации из переменных окружения
// и необязательного файла CONFIG_PATH
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}

	// Настройки сервера
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
	if cfg.Server.Port <= 0 {
		return nil, fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	// Настройки базы данных
	cfg.DB.Driver = strings.ToLower(v.GetString("db.driver"))
	cfg.DB.Host = v.GetString("db.host")
	cfg.DB.Port = v.GetInt("db.port")
	cfg.DB.User = v.GetString("db.user")
	cfg.DB.Password = v.GetString("db.password")
	cfg.DB.DBName = v.GetString("db.name")
	cfg.DB.Path = v.GetString("db.path")
	cfg.DB.MigrationsPath = v.GetString("db.migrations")
	switch cfg.DB.Driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.DB.Driver)
	}

	// Настройки сессий
	cfg.Session.SecretKey = v.GetString("session.secret_key")
	ttl := v.GetInt("session.ttl")
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid session ttl: %d", ttl)
	}
	cfg.Session.TTL = time.Duration(ttl) * time.Minute
	cfg.Session.CookieName = v.GetString("session.cookie_name")
	cfg.Session.Store = strings.ToLower(v.GetString("session.store"))
	switch cfg.Session.Store {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unsupported session store: %q", cfg.Session.Store)
	}

	// Настройки Redis
	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")

	cfg.Log.Dir = v.GetString("log.dir")

	return cfg, nil
}

// setDefaults задает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "bank_db")
	v.SetDefault("db.path", "ledgerbank.db")
	v.SetDefault("db.migrations", "file://migrations")

	v.SetDefault("session.secret_key", "")
	v.SetDefault("session.ttl", 10)
	v.SetDefault("session.cookie_name", "ledgerbank_session")
	v.SetDefault("session.store", "memory")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.dir", "")
}
