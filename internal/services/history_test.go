package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestHistoryService_Disabled(t *testing.T) {
	svc := NewHistoryService(nil)
	assert.False(t, svc.Enabled())

	_, err := svc.Record(context.Background(), "q", "a", "llm")
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = svc.List(context.Background(), 10)
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestHistoryService_Record(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewHistoryService(db)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "query_histories"`)).
		WithArgs("What walls are load bearing?", "Analysis of 2 Revit elements", "fallback", fixed).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	entry, err := svc.Record(context.Background(), "What walls are load bearing?", "Analysis of 2 Revit elements", "fallback")
	require.NoError(t, err)
	assert.Equal(t, uint(7), entry.ID)
	assert.Equal(t, fixed, entry.Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryService_List(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewHistoryService(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "prompt", "response", "source", "timestamp"}).
		AddRow(2, "second", "r2", "llm", now).
		AddRow(1, "first", "r1", "fallback", now.Add(-time.Minute))
	mock.ExpectQuery(`SELECT \* FROM "query_histories" ORDER BY timestamp DESC LIMIT`).WillReturnRows(rows)

	entries, err := svc.List(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Prompt)
	assert.Equal(t, "fallback", entries[1].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}
