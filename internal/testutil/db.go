// Package testutil поднимает изолированную sqlite-базу со схемой приложения для тестов.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/psds-microservice/cityfix/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB возвращает отдельную in-memory базу на тест. Одно соединение сериализует
// параллельные запросы так же, как блокировки строк в Postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.OpenDialector(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}
