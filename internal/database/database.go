package database

import (
	"fmt"
	"time"

	"github.com/psds-microservice/cityfix/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open подключается к Postgres через GORM. TranslateError включён, чтобы нарушения уникальности
// приходили как gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	return OpenDialector(postgres.Open(dsn))
}

// OpenDialector открывает БД с произвольным диалектом (в тестах — sqlite).
func OpenDialector(d gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(d, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return db, nil
}

// Models — все таблицы системы; используется AutoMigrate в тестах.
func Models() []any {
	return []any{
		&model.Ticket{},
		&model.Comment{},
		&model.Feedback{},
		&model.Municipality{},
		&model.User{},
		&model.Notification{},
		&model.MediaFile{},
	}
}
