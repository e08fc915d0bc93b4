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

type workerStore interface {
	List(ctx context.Context, filter models.WorkerFilter) ([]models.Worker, int, error)
	FindByID(ctx context.Context, id string) (*models.Worker, error)
	Create(ctx context.Context, worker *models.Worker) error
	Update(ctx context.Context, worker *models.Worker) error
	Deactivate(ctx context.Context, id string) error
}

// WorkerService manages the field workers grievances are assigned to.
type WorkerService struct {
	repo      workerStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWorkerService constructs the service.
func NewWorkerService(repo workerStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *WorkerService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns workers with pagination metadata.
func (s *WorkerService) List(ctx context.Context, query dto.WorkerQuery) ([]models.Worker, *models.Pagination, error) {
	filter := models.WorkerFilter{
		Status:     query.Status,
		Department: strings.TrimSpace(query.Department),
		Search:     strings.TrimSpace(query.Search),
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	workers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list workers")
	}
	if workers == nil {
		workers = []models.Worker{}
	}
	return workers, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get loads a worker by ID.
func (s *WorkerService) Get(ctx context.Context, id string) (*models.Worker, error) {
	worker, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "worker not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load worker")
	}
	return worker, nil
}

// Create registers an active worker.
func (s *WorkerService) Create(ctx context.Context, req dto.CreateWorkerRequest, actorID string) (*models.Worker, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Department = strings.TrimSpace(req.Department)
	req.Phone = validation.NormalizeMobile(req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	worker := &models.Worker{
		Name:       req.Name,
		Department: req.Department,
		Phone:      req.Phone,
		Email:      optionalStringPtr(req.Email),
		Status:     models.WorkerStatusActive,
	}
	if err := s.repo.Create(ctx, worker); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create worker")
	}
	s.emitAudit(ctx, actorID, models.AuditActionWorkerCreate, worker.ID, nil, worker)
	return worker, nil
}

// Update applies the non-nil fields of req.
func (s *WorkerService) Update(ctx context.Context, id string, req dto.UpdateWorkerRequest, actorID string) (*models.Worker, error) {
	if req.Phone != nil {
		phone := validation.NormalizeMobile(*req.Phone)
		req.Phone = &phone
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *current
	if req.Name != nil {
		if updated.Name = strings.TrimSpace(*req.Name); updated.Name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name cannot be blank")
		}
	}
	if req.Department != nil {
		if updated.Department = strings.TrimSpace(*req.Department); updated.Department == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "department cannot be blank")
		}
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}
	if req.Email != nil {
		updated.Email = optionalString(*req.Email)
	}
	if req.Status != nil {
		updated.Status = *req.Status
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "worker not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update worker")
	}
	s.emitAudit(ctx, actorID, models.AuditActionWorkerUpdate, id, current, &updated)
	return &updated, nil
}

// Deactivate stops a worker from taking new assignments. Existing
// assignments are kept.
func (s *WorkerService) Deactivate(ctx context.Context, id, actorID string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "worker not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate worker")
	}
	s.emitAudit(ctx, actorID, models.AuditActionWorkerDeactivate, id, nil, nil)
	return nil
}

func (s *WorkerService) emitAudit(ctx context.Context, actorID, action, workerID string, before, after *models.Worker) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     optionalString(actorID),
		Action:     action,
		Resource:   "worker",
		ResourceID: &workerID,
		IPAddress:  "system",
		UserAgent:  "worker-service",
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
