package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/internal/models"
	appErrors "github.com/rushibamb/dig-village-sub001/pkg/errors"
	"github.com/rushibamb/dig-village-sub001/pkg/validation"
)

type otpStore interface {
	AcquireResendSlot(ctx context.Context, mobile string, cooldown time.Duration) (bool, error)
	CountIssue(ctx context.Context, mobile string, window time.Duration) (int, error)
	SaveChallenge(ctx context.Context, challenge *models.OTPChallenge, ttl time.Duration) error
	PeekChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error)
	IncrementAttempts(ctx context.Context, mobile string, ttl time.Duration) (int, error)
	ConsumeChallenge(ctx context.Context, mobile string) (bool, error)
	SaveEditSession(ctx context.Context, jti, villagerID string, ttl time.Duration) error
	ConsumeEditSession(ctx context.Context, jti string) (string, error)
}

// OTPSender delivers a verification code to a mobile number.
type OTPSender interface {
	SendOTP(ctx context.Context, mobile, code string, expiresAt time.Time) error
}

// OTPConfig tunes challenges and the edit sessions they unlock. IssueLimit
// caps codes issued per mobile within IssueWindow, so MaxAttempts bounds the
// guesses per window and not just per code.
type OTPConfig struct {
	TTL            time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
	IssueLimit     int
	IssueWindow    time.Duration
	HashCost       int
	SessionSecret  string
	SessionTTL     time.Duration
	Issuer         string
}

// OTPService issues and verifies single-use edit challenges and signs the
// edit sessions they yield.
type OTPService struct {
	store    otpStore
	sender   OTPSender
	config   OTPConfig
	metrics  *MetricsService
	logger   *zap.Logger
	generate func() (string, error)
	now      func() time.Time
}

// OTPOption configures the service.
type OTPOption func(*OTPService)

// WithOTPGenerator overrides code generation.
func WithOTPGenerator(fn func() (string, error)) OTPOption {
	return func(s *OTPService) {
		if fn != nil {
			s.generate = fn
		}
	}
}

// WithOTPMetrics records challenge outcomes.
func WithOTPMetrics(metrics *MetricsService) OTPOption {
	return func(s *OTPService) { s.metrics = metrics }
}

// NewOTPService constructs the service with defaults for unset limits.
func NewOTPService(store otpStore, sender OTPSender, logger *zap.Logger, cfg OTPConfig, opts ...OTPOption) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.IssueLimit <= 0 {
		cfg.IssueLimit = 5
	}
	if cfg.IssueWindow <= 0 {
		cfg.IssueWindow = time.Hour
	}
	if cfg.HashCost < bcrypt.MinCost {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 15 * time.Minute
	}
	svc := &OTPService{
		store:    store,
		sender:   sender,
		config:   cfg,
		logger:   logger,
		generate: randomCode,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Issue creates a fresh challenge for mobile and sends the code. Any earlier
// outstanding code for the number stops working.
func (s *OTPService) Issue(ctx context.Context, mobile, villagerID string) (*dto.OTPIssued, error) {
	ok, err := s.store.AcquireResendSlot(ctx, mobile, s.config.ResendCooldown)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve verification code")
	}
	if !ok {
		s.metrics.RecordOTP(OTPOutcomeRateLimited)
		return nil, appErrors.Clone(appErrors.ErrTooManyRequests, "please wait before requesting another code")
	}
	issued, err := s.store.CountIssue(ctx, mobile, s.config.IssueWindow)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve verification code")
	}
	if issued > s.config.IssueLimit {
		s.metrics.RecordOTP(OTPOutcomeRateLimited)
		s.logger.Warn("otp issue limit reached", zap.String("mobile", maskMobile(mobile)), zap.Int("issued", issued))
		return nil, appErrors.Clone(appErrors.ErrTooManyRequests, "too many codes requested, try again later")
	}

	code, err := s.generate()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate verification code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.config.HashCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash verification code")
	}
	now := s.now()
	challenge := &models.OTPChallenge{
		MobileNumber: mobile,
		VillagerID:   villagerID,
		CodeHash:     string(hash),
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.config.TTL),
	}
	if err := s.store.SaveChallenge(ctx, challenge, s.config.TTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store verification code")
	}
	if s.sender != nil {
		if err := s.sender.SendOTP(ctx, mobile, code, challenge.ExpiresAt); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to send verification code")
		}
	}
	s.metrics.RecordOTP(OTPOutcomeIssued)
	return &dto.OTPIssued{ExpiresAt: challenge.ExpiresAt, ResendAfter: now.Add(s.config.ResendCooldown)}, nil
}

// Verify checks code against the outstanding challenge and consumes it on
// success. A wrong code leaves the challenge in place until the attempt limit
// is reached.
func (s *OTPService) Verify(ctx context.Context, mobile, code string) (*models.OTPChallenge, error) {
	if !validation.IsOTP(code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("verification code must be %d digits", validation.OTPLength))
	}
	challenge, err := s.store.PeekChallenge(ctx, mobile)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			s.metrics.RecordOTP(OTPOutcomeExpired)
			return nil, appErrors.ErrOTPExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verification code")
	}

	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		attempts, err := s.store.IncrementAttempts(ctx, mobile, s.config.TTL)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record verification attempt")
		}
		if attempts >= s.config.MaxAttempts {
			if _, err := s.store.ConsumeChallenge(ctx, mobile); err != nil {
				s.logger.Warn("failed to drop exhausted challenge", zap.Error(err))
			}
			s.metrics.RecordOTP(OTPOutcomeRateLimited)
			return nil, appErrors.Clone(appErrors.ErrTooManyRequests, "too many wrong codes, request a new one")
		}
		s.metrics.RecordOTP(OTPOutcomeInvalid)
		return nil, appErrors.ErrOTPInvalid
	}

	consumed, err := s.store.ConsumeChallenge(ctx, mobile)
	if err != nil && !consumed {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume verification code")
	}
	if !consumed {
		s.metrics.RecordOTP(OTPOutcomeExpired)
		return nil, appErrors.ErrOTPExpired
	}
	s.metrics.RecordOTP(OTPOutcomeVerified)
	return challenge, nil
}

// IssueEditSession signs a single-use edit token for a verified villager.
func (s *OTPService) IssueEditSession(ctx context.Context, villagerID, mobile string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.SessionTTL)
	jti := uuid.NewString()
	claims := &models.EditSessionClaims{
		VillagerID:   villagerID,
		MobileNumber: mobile,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.Issuer,
			Subject:   villagerID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign edit session")
	}
	if err := s.store.SaveEditSession(ctx, jti, villagerID, s.config.SessionTTL); err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store edit session")
	}
	return signed, expiresAt, nil
}

// ParseEditSession validates an edit token's signature and expiry without
// consuming it.
func (s *OTPService) ParseEditSession(token string) (*models.EditSessionClaims, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrEditSession, "edit token is required")
	}
	parsed, err := jwt.ParseWithClaims(token, &models.EditSessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.SessionSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrEditSession.Code, appErrors.ErrEditSession.Status, appErrors.ErrEditSession.Message)
	}
	claims, ok := parsed.Claims.(*models.EditSessionClaims)
	if !ok || !parsed.Valid || claims.ID == "" || claims.VillagerID == "" {
		return nil, appErrors.ErrEditSession
	}
	return claims, nil
}

// ConsumeEditSession marks the session used. It fails if the session was
// already redeemed.
func (s *OTPService) ConsumeEditSession(ctx context.Context, claims *models.EditSessionClaims) error {
	villagerID, err := s.store.ConsumeEditSession(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return appErrors.ErrEditSession
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to redeem edit session")
	}
	if villagerID != claims.VillagerID {
		return appErrors.ErrEditSession
	}
	return nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
