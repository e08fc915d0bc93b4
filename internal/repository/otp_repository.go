package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushibamb/dig-village-sub001/internal/models"
	appErrors "github.com/rushibamb/dig-village-sub001/pkg/errors"
)

const (
	otpKeyPrefix         = "villager:otp:"
	editSessionKeyPrefix = "villager:edit-session:"
)

// OTPRepository keeps edit challenges and edit sessions in Redis.
type OTPRepository struct {
	client *redis.Client
}

// NewOTPRepository constructs the repository.
func NewOTPRepository(client *redis.Client) *OTPRepository {
	return &OTPRepository{client: client}
}

func challengeKey(mobile string) string { return otpKeyPrefix + mobile }
func attemptsKey(mobile string) string  { return otpKeyPrefix + mobile + ":attempts" }
func cooldownKey(mobile string) string  { return otpKeyPrefix + mobile + ":cooldown" }
func issuedKey(mobile string) string    { return otpKeyPrefix + mobile + ":issued" }

// AcquireResendSlot reserves the right to issue a code for mobile. It returns
// false while a previous issue is still cooling down.
func (r *OTPRepository) AcquireResendSlot(ctx context.Context, mobile string, cooldown time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, cooldownKey(mobile), 1, cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx otp cooldown: %w", err)
	}
	return ok, nil
}

// CountIssue records one more code issued for mobile and returns how many
// were issued in the current window. The window starts with the first issue
// and is not extended by later ones.
func (r *OTPRepository) CountIssue(ctx context.Context, mobile string, window time.Duration) (int, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, issuedKey(mobile))
	pipe.ExpireNX(ctx, issuedKey(mobile), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr otp issues: %w", err)
	}
	return int(incr.Val()), nil
}

// SaveChallenge replaces any outstanding challenge for the mobile number and
// resets its attempt counter.
func (r *OTPRepository) SaveChallenge(ctx context.Context, challenge *models.OTPChallenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal otp challenge: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, challengeKey(challenge.MobileNumber), payload, ttl)
	pipe.Del(ctx, attemptsKey(challenge.MobileNumber))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save otp challenge: %w", err)
	}
	return nil
}

// PeekChallenge reads the outstanding challenge without consuming it.
func (r *OTPRepository) PeekChallenge(ctx context.Context, mobile string) (*models.OTPChallenge, error) {
	raw, err := r.client.Get(ctx, challengeKey(mobile)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get otp challenge: %w", err)
	}
	var challenge models.OTPChallenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, fmt.Errorf("unmarshal otp challenge: %w", err)
	}
	return &challenge, nil
}

// IncrementAttempts records a failed verification and returns the running count.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, mobile string, ttl time.Duration) (int, error) {
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptsKey(mobile))
	pipe.Expire(ctx, attemptsKey(mobile), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr otp attempts: %w", err)
	}
	return int(incr.Val()), nil
}

// ConsumeChallenge atomically removes the challenge. It reports false when
// another request consumed it first.
func (r *OTPRepository) ConsumeChallenge(ctx context.Context, mobile string) (bool, error) {
	err := r.client.GetDel(ctx, challengeKey(mobile)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis getdel otp challenge: %w", err)
	}
	if err := r.client.Del(ctx, attemptsKey(mobile)).Err(); err != nil {
		return true, fmt.Errorf("redis clear otp attempts: %w", err)
	}
	return true, nil
}

// SaveEditSession records an issued edit session id.
func (r *OTPRepository) SaveEditSession(ctx context.Context, jti, villagerID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, editSessionKeyPrefix+jti, villagerID, ttl).Err(); err != nil {
		return fmt.Errorf("redis save edit session: %w", err)
	}
	return nil
}

// ConsumeEditSession removes an edit session and returns the villager it was
// issued for. A missing session yields ErrCacheMiss.
func (r *OTPRepository) ConsumeEditSession(ctx context.Context, jti string) (string, error) {
	villagerID, err := r.client.GetDel(ctx, editSessionKeyPrefix+jti).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("redis consume edit session: %w", err)
	}
	return villagerID, nil
}
