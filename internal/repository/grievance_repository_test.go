package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/models"
)

var grievanceRowColumns = []string{"id", "title", "description", "category", "priority", "submitted_by", "location", "photos",
	"admin_status", "progress_status", "assigned_worker_id", "assigned_worker_name", "resolution_photos",
	"admin_note", "resolved_at", "created_at", "updated_at"}

func TestGrievanceRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO grievances")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	grievance := &models.Grievance{Title: "Broken streetlight", Description: "Dark lane", Category: "Electricity", Priority: models.PriorityNormal, SubmittedBy: "citizen-1"}
	require.NoError(t, repo.Create(context.Background(), grievance))
	require.NotEmpty(t, grievance.ID)
	require.Equal(t, models.AdminStatusUnapproved, grievance.AdminStatus)
	require.Equal(t, models.ProgressPending, grievance.ProgressStatus)
	require.NotNil(t, grievance.ResolutionPhotos)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryFindByIDJoinsWorker(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	rows := sqlmock.NewRows(grievanceRowColumns).
		AddRow("g-1", "Broken streetlight", "Dark lane", "Electricity", "High", "citizen-1", nil, "{https://cdn/a.jpg}",
			"Approved", "Resolved", "w-1", "Ravi", "{https://cdn/r1.jpg,https://cdn/r2.jpg}",
			nil, time.Now(), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT g.id, g.title")).
		WithArgs("g-1").
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), "g-1")
	require.NoError(t, err)
	require.Equal(t, "Ravi", *found.AssignedWorkerName)
	require.Len(t, found.ResolutionPhotos, 2)
	require.Equal(t, pq.StringArray{"https://cdn/a.jpg"}, found.Photos)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	rows := sqlmock.NewRows(grievanceRowColumns).
		AddRow("g-1", "Water leak", "Pipe burst", "Water", "Urgent", "citizen-2", nil, "{}",
			"Approved", "In-progress", nil, nil, "{}", nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT g.id, g.title")).
		WithArgs("Approved", "In-progress", "%leak%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM grievances g")).
		WithArgs("Approved", "In-progress", "%leak%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.GrievanceFilter{
		AdminStatus:    models.AdminStatusApproved,
		ProgressStatus: models.ProgressInProgress,
		Search:         "Leak",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, total)
	require.Nil(t, list[0].AssignedWorkerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositorySetAdminStatusOnlyFromUnapproved(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET admin_status = $2")).
		WithArgs("g-1", models.AdminStatusApproved, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetAdminStatus(context.Background(), "g-1", models.AdminStatusApproved, nil))

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND admin_status = 'Unapproved'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.SetAdminStatus(context.Background(), "g-1", models.AdminStatusRejected, nil)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryAssignWorkerGuarded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	worker := "w-1"
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND admin_status = 'Approved'")).
		WithArgs("g-1", &worker, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AssignWorker(context.Background(), "g-1", &worker))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET assigned_worker_id")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.AssignWorker(context.Background(), "g-2", nil), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGrievanceRepositoryProgressAndResolve(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewGrievanceRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("resolved_at = NULL")).
		WithArgs("g-1", models.ProgressInProgress, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetProgressStatus(context.Background(), "g-1", models.ProgressInProgress))

	mock.ExpectExec(regexp.QuoteMeta("cardinality(resolution_photos) > 0")).
		WithArgs("g-1", models.ProgressResolved, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.SetProgressStatus(context.Background(), "g-1", models.ProgressResolved), sql.ErrNoRows)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET progress_status = 'Resolved'")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Resolve(context.Background(), "g-1", []string{"https://cdn/r1.jpg", "https://cdn/r2.jpg"}))

	require.Error(t, repo.Resolve(context.Background(), "g-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
