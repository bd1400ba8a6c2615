package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restoran-kasa/internal/config"
	"restoran-kasa/internal/models"
	"restoran-kasa/internal/store/gormstore"
)

// GormConfig is shared by Init and the sqlmock-backed tests. TranslateError is
// left off: unique violations stay *pgconn.PgError so gormstore can read the
// constraint name (see gormstore.IsUniqueViolation).
func GormConfig(log *logrus.Entry) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			log.WithField("component", "gorm"),
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}
}

func Init(cfg *config.Config, log *logrus.Entry) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), GormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("veritabanına bağlanılamadı: %w", err)
	}

	if err := Migrate(db, log); err != nil {
		return nil, err
	}

	log.Info("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
	return db, nil
}

func Migrate(db *gorm.DB, log *logrus.Entry) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.CashRegister{},
		&models.CashSession{},
		&models.CashTransaction{},
		&models.CashCount{},
		&models.CashTransfer{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate hatası: %w", err)
	}

	// Operatör başına tek aktif oturum: asıl garanti bu index
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON cash_sessions (operator_id) WHERE status IN ('%s', '%s')",
		gormstore.ActiveSessionIndex, models.SessionOpen, models.SessionReopened,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("%s oluşturulamadı: %w", gormstore.ActiveSessionIndex, err)
	}

	// Ledger işaret kuralı: sadece WITHDRAWAL negatif tutulur
	if err := db.Exec(`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_cash_transactions_sign') THEN
			ALTER TABLE cash_transactions ADD CONSTRAINT chk_cash_transactions_sign
				CHECK ((type = 'WITHDRAWAL' AND amount < 0) OR (type <> 'WITHDRAWAL' AND amount >= 0));
		END IF;
	END $$;`).Error; err != nil {
		log.WithError(err).Warn("chk_cash_transactions_sign eklenemedi")
	}

	return nil
}
