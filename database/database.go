package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerbank/config"
	"ledgerbank/models"
	"ledgerbank/repository"
	"ledgerbank/utils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Database представляет подключение к базе данных и реализует
// интерфейсы repository.Credentials и repository.Ledger
type Database struct {
	DB      *gorm.DB
	dialect string
}

var (
	_ repository.Credentials = (*Database)(nil)
	_ repository.Ledger      = (*Database)(nil)
)

// NewDatabase создает подключение к базе данных и подготавливает схему
func NewDatabase(cfg *config.Config) (*Database, error) {
	switch cfg.DB.Driver {
	case DialectPostgres:
		db, err := gorm.Open(postgres.Open(postgresDSN(cfg)), newGormConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		// Настраиваем пул соединений
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get connection pool: %w", err)
		}
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)

		if err := runMigrations(cfg); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return &Database{DB: db, dialect: DialectPostgres}, nil

	case DialectSQLite:
		return OpenSQLite(cfg.DB.Path)
	}

	return nil, fmt.Errorf("unsupported database driver: %q", cfg.DB.Driver)
}

// OpenSQLite открывает базу SQLite по пути или DSN (например, "file:test?mode=memory")
// и создает схему через AutoMigrate
func OpenSQLite(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), newGormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite допускает одного писателя: одно соединение исключает "database is locked"
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := autoMigrate(db); err != nil {
		return nil, err
	}
	return &Database{DB: db, dialect: DialectSQLite}, nil
}

func newGormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			utils.InfoLogger,
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		TranslateError: true,
	}
}

// Dialect возвращает имя используемого диалекта
func (d *Database) Dialect() string {
	return d.dialect
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func postgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.DBName,
	)
}

// runMigrations выполняет SQL миграции
func runMigrations(cfg *config.Config) error {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.DBName,
	)

	m, err := migrate.New(cfg.DB.MigrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// autoMigrate выполняет автоматическую миграцию моделей
func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		return fmt.Errorf("failed to auto-migrate models: %w", err)
	}
	return nil
}

// Методы для работы с пользователями

func (d *Database) CreateUser(ctx context.Context, user *models.User) error {
	const op = "database.CreateUser"

	if err := d.DB.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%s: %w", op, repository.ErrDuplicate)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (d *Database) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.findUser(ctx, "database.GetUserByUsername", "username = ?", username)
}

func (d *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.findUser(ctx, "database.GetUserByEmail", "email = ?", models.NormalizeEmail(email))
}

func (d *Database) findUser(ctx context.Context, op string, query string, arg string) (*models.User, error) {
	var user models.User
	if err := d.DB.WithContext(ctx).Where(query, arg).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

func (d *Database) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	const op = "database.UpdatePassword"

	res := d.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password", passwordHash)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

// Методы для работы с журналом операций

func (d *Database) LatestTransaction(ctx context.Context, userID uint) (*models.Transaction, error) {
	const op = "database.LatestTransaction"

	var txn models.Transaction
	err := d.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Take(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &txn, nil
}

func (d *Database) AppendTransaction(ctx context.Context, txn *models.Transaction) error {
	const op = "database.AppendTransaction"

	if err := d.DB.WithContext(ctx).Omit(clause.Associations).Create(txn).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (d *Database) ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	const op = "database.ListTransactions"

	var txns []models.Transaction
	err := d.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return txns, nil
}

// WithAccountLock открывает транзакцию БД и блокирует строку владельца журнала.
// В PostgreSQL используется SELECT ... FOR UPDATE, что сериализует операции
// одного аккаунта между экземплярами сервиса.
func (d *Database) WithAccountLock(ctx context.Context, userID uint, fn func(store repository.LedgerStore) error) error {
	const op = "database.WithAccountLock"

	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Select("id")
		if d.dialect == DialectPostgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var owner models.User
		if err := q.Take(&owner, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		return fn(&Database{DB: tx, dialect: d.dialect})
	})
}
