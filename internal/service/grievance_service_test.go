package service

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
)

type grievanceStoreStub struct {
	mu      sync.Mutex
	rows    map[string]models.Grievance
	workers map[string]models.Worker
}

func newGrievanceStoreStub() *grievanceStoreStub {
	return &grievanceStoreStub{rows: map[string]models.Grievance{}, workers: map[string]models.Worker{}}
}

func (s *grievanceStoreStub) Create(_ context.Context, g *models.Grievance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	g.CreatedAt = time.Now().UTC()
	s.rows[g.ID] = *g
	return nil
}

func (s *grievanceStoreStub) FindByID(_ context.Context, id string) (*models.Grievance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &g, nil
}

func (s *grievanceStoreStub) List(_ context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Grievance
	for _, g := range s.rows {
		if filter.SubmittedBy != "" && g.SubmittedBy != filter.SubmittedBy {
			continue
		}
		out = append(out, g)
	}
	return out, len(out), nil
}

func (s *grievanceStoreStub) SetAdminStatus(_ context.Context, id string, status models.AdminStatus, note *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok || g.AdminStatus != models.AdminStatusUnapproved {
		return sql.ErrNoRows
	}
	g.AdminStatus = status
	if note != nil {
		g.AdminNote = note
	}
	s.rows[id] = g
	return nil
}

func (s *grievanceStoreStub) AssignWorker(_ context.Context, id string, workerID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok || g.AdminStatus != models.AdminStatusApproved {
		return sql.ErrNoRows
	}
	g.AssignedWorkerID, g.AssignedWorkerName = nil, nil
	if workerID != nil {
		w, ok := s.workers[*workerID]
		if !ok || w.Status != models.WorkerStatusActive {
			return sql.ErrNoRows
		}
		id, name := w.ID, w.Name
		g.AssignedWorkerID, g.AssignedWorkerName = &id, &name
	}
	s.rows[g.ID] = g
	return nil
}

func (s *grievanceStoreStub) SetProgressStatus(_ context.Context, id string, status models.ProgressStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok || g.AdminStatus != models.AdminStatusApproved {
		return sql.ErrNoRows
	}
	if status == models.ProgressResolved && len(g.ResolutionPhotos) == 0 {
		return sql.ErrNoRows
	}
	g.ProgressStatus = status
	if status != models.ProgressResolved {
		g.ResolvedAt = nil
	}
	s.rows[id] = g
	return nil
}

func (s *grievanceStoreStub) Resolve(_ context.Context, id string, photos []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.rows[id]
	if !ok || g.AdminStatus != models.AdminStatusApproved {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	g.ProgressStatus = models.ProgressResolved
	g.ResolutionPhotos = photos
	g.ResolvedAt = &now
	s.rows[id] = g
	return nil
}

func (s *grievanceStoreStub) FindWorker(id string) (*models.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &w, nil
}

type workerLookupFunc func(id string) (*models.Worker, error)

func (f workerLookupFunc) FindByID(_ context.Context, id string) (*models.Worker, error) {
	return f(id)
}

func newGrievanceFixture(t *testing.T) (*GrievanceService, *grievanceStoreStub, *auditStub) {
	t.Helper()
	store := newGrievanceStoreStub()
	store.workers["w-active"] = models.Worker{ID: "w-active", Name: "Ramesh", Status: models.WorkerStatusActive}
	store.workers["w-idle"] = models.Worker{ID: "w-idle", Name: "Sunil", Status: models.WorkerStatusInactive}
	audit := &auditStub{}
	svc := NewGrievanceService(store, workerLookupFunc(store.FindWorker), audit, nil, nil, WithGrievanceMetrics(NewMetricsService()))
	return svc, store, audit
}

func submitGrievance(t *testing.T, svc *GrievanceService) *models.Grievance {
	t.Helper()
	g, err := svc.Submit(context.Background(), dto.CreateGrievanceRequest{
		Title:       "Broken street light",
		Description: "The light near the temple has been out for a week",
		Category:    "Electricity",
	}, "citizen-1")
	require.NoError(t, err)
	return g
}

func TestGrievanceServiceSubmitDefaults(t *testing.T) {
	svc, _, audit := newGrievanceFixture(t)
	g := submitGrievance(t, svc)
	assert.Equal(t, models.PriorityNormal, g.Priority)
	assert.Equal(t, models.AdminStatusUnapproved, g.AdminStatus)
	assert.Equal(t, models.ProgressPending, g.ProgressStatus)
	assert.Equal(t, "citizen-1", g.SubmittedBy)
	assert.Equal(t, []string{models.AuditActionGrievanceSubmit}, audit.actions)

	_, err := svc.Submit(context.Background(), dto.CreateGrievanceRequest{Title: "x", Category: "y"}, "citizen-1")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
	_, err = svc.Submit(context.Background(), dto.CreateGrievanceRequest{Title: "x", Description: "d", Category: "y", Priority: "Critical"}, "citizen-1")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestGrievanceServiceUnapprovedIsFrozen(t *testing.T) {
	svc, store, _ := newGrievanceFixture(t)
	ctx := context.Background()
	g := submitGrievance(t, svc)
	worker := "w-active"

	_, err := svc.AssignWorker(ctx, g.ID, dto.AssignWorkerRequest{WorkerID: &worker}, "admin-1")
	assert.Equal(t, http.StatusPreconditionFailed, statusOf(err))
	_, err = svc.SetProgressStatus(ctx, g.ID, dto.SetProgressRequest{Status: models.ProgressInProgress}, "admin-1")
	assert.Equal(t, http.StatusPreconditionFailed, statusOf(err))
	_, err = svc.Resolve(ctx, g.ID, dto.ResolveGrievanceRequest{Photos: []string{"/files/a.jpg"}}, "admin-1")
	assert.Equal(t, http.StatusPreconditionFailed, statusOf(err))

	stored := store.rows[g.ID]
	assert.Equal(t, models.ProgressPending, stored.ProgressStatus)
	assert.Nil(t, stored.AssignedWorkerID)
}

func TestGrievanceServiceRejectedIsFinal(t *testing.T) {
	svc, _, _ := newGrievanceFixture(t)
	ctx := context.Background()
	g := submitGrievance(t, svc)

	rejected, err := svc.SetAdminStatus(ctx, g.ID, dto.SetAdminStatusRequest{Status: models.AdminStatusRejected, Note: "duplicate"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AdminStatusRejected, rejected.AdminStatus)
	require.NotNil(t, rejected.AdminNote)
	assert.Equal(t, "duplicate", *rejected.AdminNote)

	_, err = svc.SetAdminStatus(ctx, g.ID, dto.SetAdminStatusRequest{Status: models.AdminStatusApproved}, "admin-1")
	assert.Equal(t, http.StatusConflict, statusOf(err))
	_, err = svc.SetProgressStatus(ctx, g.ID, dto.SetProgressRequest{Status: models.ProgressInProgress}, "admin-1")
	assert.Equal(t, http.StatusPreconditionFailed, statusOf(err))

	_, err = svc.SetAdminStatus(ctx, g.ID, dto.SetAdminStatusRequest{Status: models.AdminStatusUnapproved}, "admin-1")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestGrievanceServiceAssignment(t *testing.T) {
	svc, _, _ := newGrievanceFixture(t)
	ctx := context.Background()
	g := submitGrievance(t, svc)
	_, err := svc.SetAdminStatus(ctx, g.ID, dto.SetAdminStatusRequest{Status: models.AdminStatusApproved}, "admin-1")
	require.NoError(t, err)

	worker := "w-active"
	assigned, err := svc.AssignWorker(ctx, g.ID, dto.AssignWorkerRequest{WorkerID: &worker}, "admin-1")
	require.NoError(t, err)
	require.NotNil(t, assigned.AssignedWorkerID)
	assert.Equal(t, "w-active", *assigned.AssignedWorkerID)
	assert.Equal(t, models.ProgressPending, assigned.ProgressStatus)

	idle := "w-idle"
	_, err = svc.AssignWorker(ctx, g.ID, dto.AssignWorkerRequest{WorkerID: &idle}, "admin-1")
	assert.Equal(t, http.StatusConflict, statusOf(err))
	missing := "w-missing"
	_, err = svc.AssignWorker(ctx, g.ID, dto.AssignWorkerRequest{WorkerID: &missing}, "admin-1")
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	unassigned, err := svc.AssignWorker(ctx, g.ID, dto.AssignWorkerRequest{WorkerID: nil}, "admin-1")
	require.NoError(t, err)
	assert.Nil(t, unassigned.AssignedWorkerID)
}

func TestGrievanceServiceResolvedRequiresPhotos(t *testing.T) {
	svc, _, audit := newGrievanceFixture(t)
	ctx := context.Background()
	g := submitGrievance(t, svc)
	_, err := svc.SetAdminStatus(ctx, g.ID, dto.SetAdminStatusRequest{Status: models.AdminStatusApproved}, "admin-1")
	require.NoError(t, err)

	inProgress, err := svc.SetProgressStatus(ctx, g.ID, dto.SetProgressRequest{Status: models.ProgressInProgress}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressInProgress, inProgress.ProgressStatus)

	_, err = svc.SetProgressStatus(ctx, g.ID, dto.SetProgressRequest{Status: models.ProgressResolved}, "admin-1")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
	_, err = svc.Resolve(ctx, g.ID, dto.ResolveGrievanceRequest{}, "admin-1")
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	resolved, err := svc.SetProgressStatus(ctx, g.ID, dto.SetProgressRequest{Status: models.ProgressResolved, Photos: []string{"/files/after.jpg"}}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressResolved, resolved.ProgressStatus)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, []string{"/files/after.jpg"}, []string(resolved.ResolutionPhotos))
	assert.Contains(t, audit.actions, models.AuditActionGrievanceResolve)

	reopened, err := svc.SetProgressStatus(ctx, g.ID, dto.SetProgressRequest{Status: models.ProgressInProgress}, "admin-1")
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)

	// Photos already on file allow the generic selector to resolve again.
	again, err := svc.SetProgressStatus(ctx, g.ID, dto.SetProgressRequest{Status: models.ProgressResolved}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressResolved, again.ProgressStatus)
}

func TestGrievanceServiceNotFound(t *testing.T) {
	svc, _, _ := newGrievanceFixture(t)
	_, err := svc.Get(context.Background(), "nope")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	_, err = svc.Resolve(context.Background(), "nope", dto.ResolveGrievanceRequest{Photos: []string{"a"}}, "admin-1")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestGrievanceServiceListBySubmitter(t *testing.T) {
	svc, _, _ := newGrievanceFixture(t)
	submitGrievance(t, svc)
	items, page, err := svc.List(context.Background(), dto.GrievanceQuery{SubmittedBy: "citizen-1"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)

	items, _, err = svc.List(context.Background(), dto.GrievanceQuery{SubmittedBy: "citizen-2"})
	require.NoError(t, err)
	assert.Empty(t, items)
}
