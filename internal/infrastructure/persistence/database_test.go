package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dairyops/backend/internal/domain/inventory"
	"github.com/dairyops/backend/internal/domain/payout"
	"github.com/dairyops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	return newMockDatabaseWith(t, sqlmock.New)
}

// newMockDatabaseWith takes sqlmock.New so the option type, which sqlmock does
// not export, is inferred.
func newMockDatabaseWith[O any](t *testing.T, newMock func(...O) (*sql.DB, sqlmock.Sqlmock, error), opts ...O) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := newMock(opts...)
	require.NoError(t, err)

	db, err := Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), Options{})
	require.NoError(t, err)

	return db, mock, mockDB
}

func TestDatabase_Ping(t *testing.T) {
	db, mock, mockDB := newMockDatabaseWith(t, sqlmock.New, sqlmock.MonitorPingsOption(true))
	defer mockDB.Close()

	mock.ExpectPing()

	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModels(t *testing.T) {
	assert.Len(t, Models(), 9)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(sql.ErrNoRows))
}

func TestGormPayoutRepository_UpdateStatus_SQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormPayoutRepository(db.DB)

	p := &payout.Payout{Status: payout.PayoutStatusDraft}
	p.ID = uuid.New()
	p.Version = 1
	p.MarkPersisted()
	require.NoError(t, p.Approve(time.Now()))

	t.Run("guards on status and loaded version", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "payouts" SET .+ WHERE id = \$\d+ AND status = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateStatus(context.Background(), p, payout.PayoutStatusDraft))
		assert.Equal(t, 2, p.PersistedVersion())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no matching row is an invalid transition", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "payouts" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateStatus(context.Background(), p, payout.PayoutStatusDraft)
		assert.ErrorIs(t, err, shared.ErrInvalidStateTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBatchRepository_FindAvailableForUpdate_SQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormBatchRepository(db.DB)
	materialID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "batches" WHERE .*material_id = \$1 AND status IN \(\$2,\$3\) AND remaining_quantity > 0.* ORDER BY received_at ASC, id ASC FOR UPDATE`).
		WithArgs(materialID, string(inventory.BatchStatusReceived), string(inventory.BatchStatusApproved)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "material_id", "batch_number", "status", "version"}).
			AddRow(uuid.New().String(), materialID.String(), "B-1", "APPROVED", 3))

	batches, err := repo.FindAvailableForUpdate(context.Background(), materialID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, 3, batches[0].PersistedVersion())
	assert.NoError(t, mock.ExpectationsWereMet())
}
