package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	appErrors "github.com/rushibamb/dig-village-sub001/pkg/errors"
	"github.com/rushibamb/dig-village-sub001/pkg/validation"
)

const grievanceCachePrefix = "grievances:list"

type grievanceStore interface {
	Create(ctx context.Context, grievance *models.Grievance) error
	FindByID(ctx context.Context, id string) (*models.Grievance, error)
	List(ctx context.Context, filter models.GrievanceFilter) ([]models.Grievance, int, error)
	SetAdminStatus(ctx context.Context, id string, status models.AdminStatus, note *string) error
	AssignWorker(ctx context.Context, id string, workerID *string) error
	SetProgressStatus(ctx context.Context, id string, status models.ProgressStatus) error
	Resolve(ctx context.Context, id string, photos []string) error
}

type workerLookup interface {
	FindByID(ctx context.Context, id string) (*models.Worker, error)
}

type grievanceListPage struct {
	Items []models.Grievance `json:"items"`
	Total int                `json:"total"`
}

// GrievanceService moves grievances along the review and progress axes.
// Progress and assignment only change while a grievance is approved.
type GrievanceService struct {
	repo      grievanceStore
	workers   workerLookup
	audit     auditLogger
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// GrievanceServiceOption configures the service.
type GrievanceServiceOption func(*GrievanceService)

// WithGrievanceCache enables list caching.
func WithGrievanceCache(cache *CacheService) GrievanceServiceOption {
	return func(s *GrievanceService) { s.cache = cache }
}

// WithGrievanceMetrics records status transitions.
func WithGrievanceMetrics(metrics *MetricsService) GrievanceServiceOption {
	return func(s *GrievanceService) { s.metrics = metrics }
}

// NewGrievanceService constructs the service.
func NewGrievanceService(repo grievanceStore, workers workerLookup, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...GrievanceServiceOption) *GrievanceService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &GrievanceService{repo: repo, workers: workers, audit: audit, validator: validate, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit records a citizen grievance awaiting review.
func (s *GrievanceService) Submit(ctx context.Context, req dto.CreateGrievanceRequest, actorID string) (*models.Grievance, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Category = strings.TrimSpace(req.Category)
	if missing := validation.Missing(
		validation.Field{Name: "title", Value: req.Title},
		validation.Field{Name: "description", Value: req.Description},
		validation.Field{Name: "category", Value: req.Category},
	); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Priority == "" {
		req.Priority = models.PriorityNormal
	}
	grievance := &models.Grievance{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Priority:       req.Priority,
		SubmittedBy:    actorID,
		Location:       req.Location,
		Photos:         req.Photos,
		AdminStatus:    models.AdminStatusUnapproved,
		ProgressStatus: models.ProgressPending,
	}
	if err := s.repo.Create(ctx, grievance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grievance")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actorID, models.AuditActionGrievanceSubmit, grievance.ID, nil, grievance)
	return grievance, nil
}

// List returns grievances with pagination metadata.
func (s *GrievanceService) List(ctx context.Context, query dto.GrievanceQuery) ([]models.Grievance, *models.Pagination, error) {
	filter := models.GrievanceFilter{
		AdminStatus:    query.AdminStatus,
		ProgressStatus: query.ProgressStatus,
		Priority:       query.Priority,
		Category:       strings.TrimSpace(query.Category),
		WorkerID:       query.WorkerID,
		SubmittedBy:    query.SubmittedBy,
		Search:         strings.TrimSpace(query.Search),
		Page:           query.Page,
		PageSize:       query.PageSize,
	}
	var page grievanceListPage
	key := s.cache.Key(grievanceCachePrefix, filter)
	if hit, _ := s.cache.Get(ctx, key, &page); !hit {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grievances")
		}
		page = grievanceListPage{Items: items, Total: total}
		_ = s.cache.Set(ctx, key, page, 0)
	}
	if page.Items == nil {
		page.Items = []models.Grievance{}
	}
	return page.Items, models.NewPagination(filter.Page, filter.PageSize, page.Total), nil
}

// Get loads a grievance by ID.
func (s *GrievanceService) Get(ctx context.Context, id string) (*models.Grievance, error) {
	grievance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grievance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grievance")
	}
	return grievance, nil
}

// SetAdminStatus approves or rejects an unapproved grievance. The decision is final.
func (s *GrievanceService) SetAdminStatus(ctx context.Context, id string, req dto.SetAdminStatusRequest, actorID string) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.AdminStatus != models.AdminStatusUnapproved {
		return nil, appErrors.Clone(appErrors.ErrConflict, "grievance has already been reviewed")
	}
	if err := s.repo.SetAdminStatus(ctx, id, req.Status, optionalString(req.Note)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "grievance has already been reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grievance")
	}
	s.metrics.RecordGrievanceTransition("admin", string(req.Status))
	return s.afterWrite(ctx, actorID, models.AuditActionGrievanceAdminStatus, current)
}

// AssignWorker sets or clears the assigned worker. Progress is left alone.
func (s *GrievanceService) AssignWorker(ctx context.Context, id string, req dto.AssignWorkerRequest, actorID string) (*models.Grievance, error) {
	current, err := s.approved(ctx, id)
	if err != nil {
		return nil, err
	}
	workerID := optionalStringPtr(req.WorkerID)
	if workerID != nil {
		worker, err := s.workers.FindByID(ctx, *workerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "worker not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load worker")
		}
		if worker.Status != models.WorkerStatusActive {
			return nil, appErrors.Clone(appErrors.ErrConflict, "worker is inactive")
		}
	}
	if err := s.repo.AssignWorker(ctx, id, workerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conditionalFailure(ctx, id, "grievance or worker changed, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign worker")
	}
	return s.afterWrite(ctx, actorID, models.AuditActionGrievanceAssign, current)
}

// SetProgressStatus moves the progress axis. Moving to Resolved needs
// resolution photos, either in this request or already on the grievance.
func (s *GrievanceService) SetProgressStatus(ctx context.Context, id string, req dto.SetProgressRequest, actorID string) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	current, err := s.approved(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == models.ProgressResolved {
		if len(req.Photos) > 0 {
			return s.resolve(ctx, current, req.Photos, actorID)
		}
		if len(current.ResolutionPhotos) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "resolution photos are required to resolve a grievance")
		}
	}
	if err := s.repo.SetProgressStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conditionalFailure(ctx, id, "grievance changed, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	s.metrics.RecordGrievanceTransition("progress", string(req.Status))
	return s.afterWrite(ctx, actorID, models.AuditActionGrievanceProgress, current)
}

// Resolve marks an approved grievance resolved with photographic proof.
func (s *GrievanceService) Resolve(ctx context.Context, id string, req dto.ResolveGrievanceRequest, actorID string) (*models.Grievance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	current, err := s.approved(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, current, req.Photos, actorID)
}

func (s *GrievanceService) resolve(ctx context.Context, current *models.Grievance, photos []string, actorID string) (*models.Grievance, error) {
	if err := s.repo.Resolve(ctx, current.ID, photos); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conditionalFailure(ctx, current.ID, "grievance changed, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve grievance")
	}
	s.metrics.RecordGrievanceTransition("progress", string(models.ProgressResolved))
	return s.afterWrite(ctx, actorID, models.AuditActionGrievanceResolve, current)
}

func (s *GrievanceService) approved(ctx context.Context, id string) (*models.Grievance, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanAdvanceProgress(current) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "grievance must be approved first")
	}
	return current, nil
}

// conditionalFailure explains why a guarded update matched no rows.
func (s *GrievanceService) conditionalFailure(ctx context.Context, id, fallback string) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanAdvanceProgress(current) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "grievance must be approved first")
	}
	return appErrors.Clone(appErrors.ErrConflict, fallback)
}

func (s *GrievanceService) afterWrite(ctx context.Context, actorID, action string, before *models.Grievance) (*models.Grievance, error) {
	s.invalidate(ctx)
	updated, err := s.Get(ctx, before.ID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, actorID, action, before.ID, before, updated)
	return updated, nil
}

func (s *GrievanceService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, grievanceCachePrefix+":*")
}

func (s *GrievanceService) emitAudit(ctx context.Context, actorID, action, grievanceID string, before, after *models.Grievance) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     action,
		Resource:   "grievance",
		ResourceID: &grievanceID,
		IPAddress:  "system",
		UserAgent:  "grievance-service",
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

func optionalStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	return optionalString(*value)
}
