package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	appErrors "github.com/rushibamb/dig-village-sub001/pkg/errors"
)

type workerServiceMock struct {
	worker      *models.Worker
	err         error
	lastQuery   dto.WorkerQuery
	lastCreate  dto.CreateWorkerRequest
	lastUpdate  dto.UpdateWorkerRequest
	lastID      string
	lastActor   string
	deactivated bool
}

func (m *workerServiceMock) List(_ context.Context, query dto.WorkerQuery) ([]models.Worker, *models.Pagination, error) {
	m.lastQuery = query
	return []models.Worker{*m.worker}, models.NewPagination(query.Page, query.PageSize, 1), m.err
}

func (m *workerServiceMock) Get(_ context.Context, id string) (*models.Worker, error) {
	m.lastID = id
	return m.worker, m.err
}

func (m *workerServiceMock) Create(_ context.Context, req dto.CreateWorkerRequest, actor string) (*models.Worker, error) {
	m.lastCreate, m.lastActor = req, actor
	return m.worker, m.err
}

func (m *workerServiceMock) Update(_ context.Context, id string, req dto.UpdateWorkerRequest, actor string) (*models.Worker, error) {
	m.lastID, m.lastUpdate, m.lastActor = id, req, actor
	return m.worker, m.err
}

func (m *workerServiceMock) Deactivate(_ context.Context, id, actor string) error {
	m.lastID, m.lastActor = id, actor
	m.deactivated = m.err == nil
	return m.err
}

func ravi() *models.Worker {
	return &models.Worker{ID: "2d4e6f80-1a3b-4c5d-8e7f-9a0b1c2d3e4f", Name: "Ravi", Department: "Water", Phone: "9822012345", Status: models.WorkerStatusActive}
}

func TestWorkerHandlerListFilters(t *testing.T) {
	svc := &workerServiceMock{worker: ravi()}
	h := NewWorkerHandler(svc)
	c, w := newJSONContext(http.MethodGet, "/admin/workers?status=active&department=Water&search=ra&page=2&limit=5", "")
	asAdmin(c)

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.WorkerStatusActive, svc.lastQuery.Status)
	assert.Equal(t, "Water", svc.lastQuery.Department)
	assert.Equal(t, "ra", svc.lastQuery.Search)
	assert.Equal(t, 2, svc.lastQuery.Page)
	assert.Equal(t, 5, svc.lastQuery.PageSize)

	var workers []models.Worker
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &workers))
	require.Len(t, workers, 1)
	assert.Equal(t, "Ravi", workers[0].Name)
}

func TestWorkerHandlerCreateUsesCaller(t *testing.T) {
	svc := &workerServiceMock{worker: ravi()}
	h := NewWorkerHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/admin/workers", `{"name":"Ravi","department":"Water","phone":"9822012345"}`)
	asAdmin(c)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", svc.lastActor)
	assert.Equal(t, "Water", svc.lastCreate.Department)
}

func TestWorkerHandlerCreateRequiresActor(t *testing.T) {
	svc := &workerServiceMock{worker: ravi()}
	h := NewWorkerHandler(svc)
	c, w := newJSONContext(http.MethodPost, "/admin/workers", `{"name":"Ravi"}`)

	h.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, svc.lastCreate.Name)
}

func TestWorkerHandlerUpdateMissing(t *testing.T) {
	svc := &workerServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "worker not found")}
	h := NewWorkerHandler(svc)
	c, w := newJSONContext(http.MethodPut, "/admin/workers/9c8b7a65-4d3e-4f21-8a0b-c1d2e3f4a5b6", `{"status":"inactive"}`)
	c.Params = gin.Params{{Key: "id", Value: "9c8b7a65-4d3e-4f21-8a0b-c1d2e3f4a5b6"}}
	asAdmin(c)

	h.Update(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "9c8b7a65-4d3e-4f21-8a0b-c1d2e3f4a5b6", svc.lastID)
	require.NotNil(t, svc.lastUpdate.Status)
	assert.Equal(t, models.WorkerStatusInactive, *svc.lastUpdate.Status)
	env := decode(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, env.Error.Code)
}

func TestWorkerHandlerDelete(t *testing.T) {
	svc := &workerServiceMock{worker: ravi()}
	h := NewWorkerHandler(svc)
	c, _ := newJSONContext(http.MethodDelete, "/admin/workers/2d4e6f80-1a3b-4c5d-8e7f-9a0b1c2d3e4f", "")
	c.Params = gin.Params{{Key: "id", Value: "2d4e6f80-1a3b-4c5d-8e7f-9a0b1c2d3e4f"}}
	asAdmin(c)

	h.Delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.True(t, svc.deactivated)
	assert.Equal(t, "2d4e6f80-1a3b-4c5d-8e7f-9a0b1c2d3e4f", svc.lastID)
}
