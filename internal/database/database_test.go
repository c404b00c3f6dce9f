package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestConnect_EmptyURL(t *testing.T) {
	db, err := Connect("")
	require.NoError(t, err)
	assert.Nil(t, db)
}

func TestMigrate_NilDB(t *testing.T) {
	assert.NoError(t, Migrate(nil))
}

func TestPing(t *testing.T) {
	assert.Error(t, Ping(context.Background(), nil))

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	require.NoError(t, Ping(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
