package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/models"
)

func TestWorkerRepositoryCRUD(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWorkerRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO workers")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	worker := &models.Worker{Name: "Ravi", Department: "Electrical", Phone: "9123456780"}
	require.NoError(t, repo.Create(context.Background(), worker))
	require.Equal(t, models.WorkerStatusActive, worker.Status)

	rows := sqlmock.NewRows([]string{"id", "name", "department", "phone", "email", "status", "created_at", "updated_at"}).
		AddRow(worker.ID, "Ravi", "Electrical", "9123456780", nil, "active", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department")).
		WithArgs(worker.ID).
		WillReturnRows(rows)
	found, err := repo.FindByID(context.Background(), worker.ID)
	require.NoError(t, err)
	require.Equal(t, "Ravi", found.Name)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE workers SET status = 'inactive'")).
		WithArgs(worker.ID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Deactivate(context.Background(), worker.ID))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE workers SET name")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Update(context.Background(), &models.Worker{ID: "missing"}), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewWorkerRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "department", "phone", "email", "status", "created_at", "updated_at"}).
		AddRow("w-1", "Ravi", "Electrical", "9123456780", nil, "active", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, department")).
		WithArgs(models.WorkerStatusActive).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM workers")).
		WithArgs(models.WorkerStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.WorkerFilter{Status: models.WorkerStatusActive})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAuditRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	entry := &models.AuditLog{Action: models.AuditActionGrievanceResolve, Resource: "grievance"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	require.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
