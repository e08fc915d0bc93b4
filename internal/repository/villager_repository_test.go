package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var villagerRowColumns = []string{"id", "full_name", "mobile_number", "gender", "date_of_birth", "aadhar_number", "id_proof_url", "address",
	"email", "occupation", "ward_number", "status", "request_type", "submitted_at", "reviewed_by", "reviewed_at", "review_note", "updated_at"}

func TestVillagerRepositoryCreateAndFindByMobile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVillagerRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO villagers")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	villager := &models.Villager{
		FullName:     "Asha Patil",
		MobileNumber: "9876543210",
		Gender:       models.GenderFemale,
		AadharNumber: "123412341234",
		Address:      "Ward 3, Shirur",
		Status:       models.VillagerStatusPending,
		RequestType:  models.RequestTypeNewRegistration,
	}
	require.NoError(t, repo.Create(context.Background(), villager))
	require.NotEmpty(t, villager.ID)
	require.False(t, villager.SubmittedAt.IsZero())

	dob := time.Date(1990, 5, 14, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(villagerRowColumns).
		AddRow(villager.ID, "Asha Patil", "9876543210", "Female", dob, "123412341234", nil, "Ward 3, Shirur",
			nil, nil, nil, "Pending", "New Registration", time.Now(), nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, mobile_number")).
		WithArgs("9876543210").
		WillReturnRows(rows)

	found, err := repo.FindByMobile(context.Background(), "9876543210")
	require.NoError(t, err)
	require.Equal(t, villager.ID, found.ID)
	require.Equal(t, models.GenderFemale, found.Gender)
	require.Equal(t, "1990-05-14", found.DateOfBirth.String())
	require.Equal(t, models.RequestTypeNewRegistration, found.RequestType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVillagerRepositoryExistsByMobile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVillagerRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM villagers WHERE mobile_number = $1 AND id <> $2")).
		WithArgs("9876543210", "v-1").
		WillReturnError(sql.ErrNoRows)
	exists, err := repo.ExistsByMobile(context.Background(), "9876543210", "v-1")
	require.NoError(t, err)
	require.False(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM villagers WHERE mobile_number = $1")).
		WithArgs("9876543210").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	exists, err = repo.ExistsByMobile(context.Background(), "9876543210", "")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVillagerRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVillagerRepository(db)
	rows := sqlmock.NewRows(villagerRowColumns).
		AddRow("v-1", "Asha Patil", "9876543210", "Female", nil, "123412341234", nil, "Ward 3",
			nil, nil, nil, "Pending", "Edit Request", time.Now(), nil, nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name")).
		WithArgs("Pending", "Edit Request", "%asha%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM villagers")).
		WithArgs("Pending", "Edit Request", "%asha%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.VillagerFilter{
		Status:      []models.VillagerStatus{models.VillagerStatusPending},
		RequestType: models.RequestTypeEditRequest,
		Search:      "Asha",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 1, total)
	require.True(t, list[0].DateOfBirth.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVillagerRepositoryApplyEditStoresSnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVillagerRepository(db)
	snapshot := []byte(`{"id":"v-1","address":"Ward 3"}`)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO villager_revisions")).
		WithArgs(sqlmock.AnyArg(), "v-1", snapshot, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE villagers SET full_name")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	villager := &models.Villager{ID: "v-1", Address: "Ward 7", Status: models.VillagerStatusApproved}
	require.NoError(t, repo.ApplyEdit(context.Background(), ApplyEditParams{Villager: villager, Snapshot: snapshot}))
	require.Equal(t, models.VillagerStatusPending, villager.Status)
	require.Equal(t, models.RequestTypeEditRequest, villager.RequestType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVillagerRepositoryApplyEditMissingRowRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVillagerRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE villagers SET full_name")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyEdit(context.Background(), ApplyEditParams{Villager: &models.Villager{ID: "missing"}})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVillagerRepositoryReviewApproveDiscardsSnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVillagerRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE villagers SET status = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM villager_revisions")).
		WithArgs("v-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	restored, err := repo.Review(context.Background(), ReviewVillagerParams{
		ID:         "v-1",
		Status:     models.VillagerStatusApproved,
		ReviewedBy: "admin-1",
		ReviewedAt: time.Now(),
	})
	require.NoError(t, err)
	require.False(t, restored)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVillagerRepositoryReviewRejectRestoresSnapshot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVillagerRepository(db)
	previous := models.Villager{
		ID:           "v-1",
		FullName:     "Asha Patil",
		MobileNumber: "9876543210",
		Address:      "Ward 3",
		Status:       models.VillagerStatusApproved,
		RequestType:  models.RequestTypeNewRegistration,
	}
	snapshot, err := json.Marshal(previous)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, villager_id, snapshot, created_at FROM villager_revisions")).
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "villager_id", "snapshot", "created_at"}).
			AddRow("rev-1", "v-1", snapshot, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE villagers SET full_name")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM villager_revisions")).
		WithArgs("v-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	restored, err := repo.Review(context.Background(), ReviewVillagerParams{
		ID:         "v-1",
		Status:     models.VillagerStatusRejected,
		ReviewedBy: "admin-1",
		ReviewedAt: time.Now(),
	})
	require.NoError(t, err)
	require.True(t, restored)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVillagerRepositoryReviewRequiresPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewVillagerRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, villager_id, snapshot, created_at FROM villager_revisions")).
		WithArgs("v-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE villagers SET status = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Review(context.Background(), ReviewVillagerParams{
		ID:         "v-1",
		Status:     models.VillagerStatusRejected,
		ReviewedBy: "admin-1",
		ReviewedAt: time.Now(),
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
