package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
)

type workerStoreStub struct {
	rows map[string]models.Worker
}

func (s *workerStoreStub) List(_ context.Context, _ models.WorkerFilter) ([]models.Worker, int, error) {
	var out []models.Worker
	for _, w := range s.rows {
		out = append(out, w)
	}
	return out, len(out), nil
}

func (s *workerStoreStub) FindByID(_ context.Context, id string) (*models.Worker, error) {
	w, ok := s.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &w, nil
}

func (s *workerStoreStub) Create(_ context.Context, w *models.Worker) error {
	w.ID = uuid.NewString()
	s.rows[w.ID] = *w
	return nil
}

func (s *workerStoreStub) Update(_ context.Context, w *models.Worker) error {
	if _, ok := s.rows[w.ID]; !ok {
		return sql.ErrNoRows
	}
	s.rows[w.ID] = *w
	return nil
}

func (s *workerStoreStub) Deactivate(_ context.Context, id string) error {
	w, ok := s.rows[id]
	if !ok {
		return sql.ErrNoRows
	}
	w.Status = models.WorkerStatusInactive
	s.rows[id] = w
	return nil
}

func TestWorkerServiceLifecycle(t *testing.T) {
	store := &workerStoreStub{rows: map[string]models.Worker{}}
	audit := &auditStub{}
	svc := NewWorkerService(store, audit, nil, nil)
	ctx := context.Background()

	w, err := svc.Create(ctx, dto.CreateWorkerRequest{Name: " Ramesh ", Department: "Water", Phone: "+91 91234 56789"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Ramesh", w.Name)
	assert.Equal(t, "9123456789", w.Phone)
	assert.Equal(t, models.WorkerStatusActive, w.Status)

	dept := "Sanitation"
	updated, err := svc.Update(ctx, w.ID, dto.UpdateWorkerRequest{Department: &dept}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Sanitation", updated.Department)
	assert.Equal(t, "Ramesh", updated.Name)

	blank := " "
	_, err = svc.Update(ctx, w.ID, dto.UpdateWorkerRequest{Name: &blank}, "admin-1")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	require.NoError(t, svc.Deactivate(ctx, w.ID, "admin-1"))
	got, err := svc.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkerStatusInactive, got.Status)

	assert.Equal(t, []string{
		models.AuditActionWorkerCreate,
		models.AuditActionWorkerUpdate,
		models.AuditActionWorkerDeactivate,
	}, audit.actions)
}

func TestWorkerServiceValidationAndNotFound(t *testing.T) {
	svc := NewWorkerService(&workerStoreStub{rows: map[string]models.Worker{}}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, dto.CreateWorkerRequest{Name: "Ramesh", Department: "Water", Phone: "12345"}, "admin-1")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	assert.Equal(t, http.StatusNotFound, statusOf(svc.Deactivate(ctx, "missing", "admin-1")))

	items, page, err := svc.List(ctx, dto.WorkerQuery{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Equal(t, 0, page.TotalCount)
}
