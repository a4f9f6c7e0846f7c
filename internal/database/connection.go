// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/models"
)

var DB *gorm.DB

// GormConfig is shared by the server and the test databases so both run
// with translated errors and UTC timestamps.
func GormConfig(logLevel string) *gorm.Config {
	mode := logger.Silent
	switch logLevel {
	case "info":
		mode = logger.Info
	case "warn":
		mode = logger.Warn
	case "error":
		mode = logger.Error
	}

	return &gorm.Config{
		Logger:         logger.Default.LogMode(mode),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(dsn), GormConfig(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Resource{},
		&models.CommercialItem{},
		&models.OperationalAsset{},
		&models.ResourceImage{},
		&models.Order{},
		&models.OrderItem{},
		&models.FinancialTransaction{},
		&models.Document{},
		&models.SponsorApplication{},
		&models.Donation{},
		&models.Membership{},
		&models.MembershipPayment{},
		&models.Event{},
		&models.EventParticipant{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if db.Dialector.Name() == "postgres" {
		createIndexes(db)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_status_id ON orders(status, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_financial_transactions_created ON financial_transactions(type, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_documents_type_created ON documents(document_type, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_resources_search ON resources USING GIN(to_tsvector('spanish', name || ' ' || coalesce(description, '')))",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
		}
	}
}

// SeedAdmin creates the configured admin account when no admin exists.
func SeedAdmin(db *gorm.DB, cfg config.AdminConfig) error {
	var adminCount int64
	if err := db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if adminCount > 0 {
		return nil
	}

	admin := &models.User{
		Email:     cfg.Email,
		Role:      models.UserRoleAdmin,
		FirstName: cfg.FirstName,
		LastName:  cfg.LastName,
	}
	if err := admin.SetPassword(cfg.Password); err != nil {
		return fmt.Errorf("failed to set admin password: %w", err)
	}

	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logrus.WithField("email", admin.Email).Info("Default admin user created")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
