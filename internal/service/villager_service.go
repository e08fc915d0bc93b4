package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	"github.com/rushibamb/dig-village-sub001/internal/repository"
	appErrors "github.com/rushibamb/dig-village-sub001/pkg/errors"
	"github.com/rushibamb/dig-village-sub001/pkg/validation"
)

const villagerCachePrefix = "villagers:list"

type villagerStore interface {
	List(ctx context.Context, filter models.VillagerFilter) ([]models.Villager, int, error)
	FindByID(ctx context.Context, id string) (*models.Villager, error)
	FindByMobile(ctx context.Context, mobile string) (*models.Villager, error)
	ExistsByMobile(ctx context.Context, mobile, excludeID string) (bool, error)
	Create(ctx context.Context, villager *models.Villager) error
	UpdateFields(ctx context.Context, villager *models.Villager) error
	ApplyEdit(ctx context.Context, params repository.ApplyEditParams) error
	Review(ctx context.Context, params repository.ReviewVillagerParams) (bool, error)
}

type editChallenger interface {
	Issue(ctx context.Context, mobile, villagerID string) (*dto.OTPIssued, error)
	Verify(ctx context.Context, mobile, code string) (*models.OTPChallenge, error)
	IssueEditSession(ctx context.Context, villagerID, mobile string) (string, time.Time, error)
	ParseEditSession(token string) (*models.EditSessionClaims, error)
	ConsumeEditSession(ctx context.Context, claims *models.EditSessionClaims) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type villagerListPage struct {
	Items []models.Villager `json:"items"`
	Total int               `json:"total"`
}

// VillagerService runs villager registration, review and OTP-authorized edits.
type VillagerService struct {
	repo      villagerStore
	otp       editChallenger
	audit     auditLogger
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// VillagerServiceOption configures the service.
type VillagerServiceOption func(*VillagerService)

// WithVillagerCache enables list caching.
func WithVillagerCache(cache *CacheService) VillagerServiceOption {
	return func(s *VillagerService) { s.cache = cache }
}

// NewVillagerService constructs the service.
func NewVillagerService(repo villagerStore, otp editChallenger, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...VillagerServiceOption) *VillagerService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &VillagerService{repo: repo, otp: otp, audit: audit, validator: validate, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit records a self-service registration awaiting review.
func (s *VillagerService) Submit(ctx context.Context, req dto.VillagerRequest) (*models.Villager, error) {
	villager, err := s.create(ctx, req, models.VillagerStatusPending, nil)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, nil, models.AuditActionVillagerSubmit, villager.ID, nil, villager)
	return villager, nil
}

// AdminCreate records a villager directly as approved.
func (s *VillagerService) AdminCreate(ctx context.Context, req dto.VillagerRequest, actorID string) (*models.Villager, error) {
	villager, err := s.create(ctx, req, models.VillagerStatusApproved, &actorID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, &actorID, models.AuditActionVillagerAdminCreate, villager.ID, nil, villager)
	return villager, nil
}

func (s *VillagerService) create(ctx context.Context, req dto.VillagerRequest, status models.VillagerStatus, reviewer *string) (*models.Villager, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByMobile(ctx, req.MobileNumber, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mobile number")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a villager with this mobile number is already registered")
	}
	villager := &models.Villager{Status: status, RequestType: models.RequestTypeNewRegistration}
	applyRequest(villager, req)
	if reviewer != nil {
		now := time.Now().UTC()
		villager.ReviewedBy = reviewer
		villager.ReviewedAt = &now
	}
	if err := s.repo.Create(ctx, villager); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create villager")
	}
	s.invalidate(ctx)
	return villager, nil
}

// List returns villagers with pagination metadata.
func (s *VillagerService) List(ctx context.Context, query dto.VillagerQuery) ([]models.Villager, *models.Pagination, error) {
	filter := models.VillagerFilter{
		Status:      query.Status,
		RequestType: query.RequestType,
		Search:      strings.TrimSpace(query.Search),
		Page:        query.Page,
		PageSize:    query.PageSize,
	}
	var page villagerListPage
	key := s.cache.Key(villagerCachePrefix, filter)
	if hit, _ := s.cache.Get(ctx, key, &page); !hit {
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list villagers")
		}
		page = villagerListPage{Items: items, Total: total}
		_ = s.cache.Set(ctx, key, page, 0)
	}
	if page.Items == nil {
		page.Items = []models.Villager{}
	}
	return page.Items, models.NewPagination(filter.Page, filter.PageSize, page.Total), nil
}

// Get loads a villager by ID.
func (s *VillagerService) Get(ctx context.Context, id string) (*models.Villager, error) {
	villager, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "villager not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load villager")
	}
	return villager, nil
}

// Review approves or rejects a pending record. Rejecting an edit request puts
// the last approved values back.
func (s *VillagerService) Review(ctx context.Context, id string, req dto.ReviewVillagerRequest, reviewerID string) (*models.Villager, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.VillagerStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "villager is not awaiting review")
	}
	restored, err := s.repo.Review(ctx, repository.ReviewVillagerParams{
		ID:         id,
		Status:     req.Status,
		ReviewedBy: reviewerID,
		ReviewedAt: time.Now().UTC(),
		Note:       optionalString(req.Note),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "villager already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review villager")
	}
	s.invalidate(ctx)
	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if restored {
		s.logger.Info("edit request rejected, approved record restored", zap.String("villager_id", id))
	}
	s.emitAudit(ctx, &reviewerID, models.AuditActionVillagerReview, id, current, updated)
	return updated, nil
}

// AdminUpdate overwrites a record's fields as a privileged override. Review
// state is left alone.
func (s *VillagerService) AdminUpdate(ctx context.Context, id string, req dto.VillagerRequest, actorID string) (*models.Villager, error) {
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMobileFree(ctx, req.MobileNumber, id); err != nil {
		return nil, err
	}
	updated := *current
	applyRequest(&updated, req)
	if err := s.repo.UpdateFields(ctx, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "villager not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update villager")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, &actorID, models.AuditActionVillagerAdminOverride, id, current, &updated)
	return &updated, nil
}

// RequestEditOTP sends an edit code to a registered mobile number.
func (s *VillagerService) RequestEditOTP(ctx context.Context, req dto.RequestOTPRequest) (*dto.OTPIssued, error) {
	mobile := validation.NormalizeMobile(req.MobileNumber)
	if mobile == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mobileNumber is required")
	}
	villager, err := s.repo.FindByMobile(ctx, mobile)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no villager is registered with this mobile number")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up mobile number")
	}
	issued, err := s.otp.Issue(ctx, mobile, villager.ID)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, nil, models.AuditActionOTPIssued, villager.ID, nil, nil)
	return issued, nil
}

// VerifyEditOTP redeems a code and returns the current record with a
// single-use edit token.
func (s *VillagerService) VerifyEditOTP(ctx context.Context, req dto.VerifyOTPRequest) (*dto.EditSession, error) {
	mobile := validation.NormalizeMobile(req.MobileNumber)
	if mobile == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mobileNumber is required")
	}
	challenge, err := s.otp.Verify(ctx, mobile, req.OTP)
	if err != nil {
		return nil, err
	}
	villager, err := s.Get(ctx, challenge.VillagerID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.otp.IssueEditSession(ctx, villager.ID, mobile)
	if err != nil {
		return nil, err
	}
	s.emitAudit(ctx, nil, models.AuditActionOTPVerified, villager.ID, nil, nil)
	return &dto.EditSession{Villager: villager, EditToken: token, ExpiresAt: expiresAt}, nil
}

// SubmitEdit applies an OTP-authorized edit and re-queues the record for
// review as an edit request.
func (s *VillagerService) SubmitEdit(ctx context.Context, id, editToken string, req dto.VillagerRequest) (*models.Villager, error) {
	claims, err := s.otp.ParseEditSession(editToken)
	if err != nil {
		return nil, err
	}
	if claims.VillagerID != id {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "edit session does not cover this villager")
	}
	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMobileFree(ctx, req.MobileNumber, id); err != nil {
		return nil, err
	}
	if err := s.otp.ConsumeEditSession(ctx, claims); err != nil {
		return nil, err
	}

	var snapshot []byte
	if current.Status == models.VillagerStatusApproved {
		if snapshot, err = json.Marshal(current); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to capture approved record")
		}
	}
	edited := *current
	applyRequest(&edited, req)
	if err := s.repo.ApplyEdit(ctx, repository.ApplyEditParams{Villager: &edited, Snapshot: snapshot}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "villager not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save edit request")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, nil, models.AuditActionVillagerEdit, id, current, &edited)
	return &edited, nil
}

func (s *VillagerService) validateRequest(req *dto.VillagerRequest) error {
	req.Normalize()
	if missing := req.Missing(); len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "missing required fields: "+strings.Join(missing, ", "))
	}
	if err := s.validator.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

func (s *VillagerService) ensureMobileFree(ctx context.Context, mobile, id string) error {
	exists, err := s.repo.ExistsByMobile(ctx, mobile, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check mobile number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "another villager is registered with this mobile number")
	}
	return nil
}

func (s *VillagerService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, villagerCachePrefix+":*")
}

func (s *VillagerService) emitAudit(ctx context.Context, actorID *string, action, villagerID string, before, after *models.Villager) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "villager",
		ResourceID: &villagerID,
		IPAddress:  "system",
		UserAgent:  "villager-service",
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

func applyRequest(v *models.Villager, req dto.VillagerRequest) {
	v.FullName = req.FullName
	v.MobileNumber = req.MobileNumber
	v.Gender = req.Gender
	v.DateOfBirth = req.DateOfBirth
	v.AadharNumber = req.AadharNumber
	v.IDProofURL = req.IDProofURL
	v.Address = req.Address
	v.Email = req.Email
	v.Occupation = req.Occupation
	v.WardNumber = req.WardNumber
}

func validationError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fields: "+strings.Join(validation.Describe(err), ", "))
}

func optionalString(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
