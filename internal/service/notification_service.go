package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rushibamb/dig-village-sub001/pkg/jobs"
)

// JobTypeOTPSMS is the job type used for edit verification texts.
const JobTypeOTPSMS = "otp.sms"

// SMSMessage is the payload handed to the SMS gateway.
type SMSMessage struct {
	To        string    `json:"to"`
	SenderID  string    `json:"senderId,omitempty"`
	Body      string    `json:"body"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MessagePublisher hands messages to the notification broker.
type MessagePublisher interface {
	Publish(ctx context.Context, messageType string, payload interface{}) error
}

type jobQueue interface {
	Enqueue(ctx context.Context, job jobs.Job) error
}

// NotificationService delivers verification codes off the request path.
type NotificationService struct {
	publisher MessagePublisher
	queue     jobQueue
	senderID  string
	metrics   *MetricsService
	logger    *zap.Logger
}

// NotificationOption configures the service.
type NotificationOption func(*NotificationService)

// WithNotificationMetrics records delivery outcomes.
func WithNotificationMetrics(metrics *MetricsService) NotificationOption {
	return func(s *NotificationService) { s.metrics = metrics }
}

// WithNotificationQueue delivers through a background queue instead of inline.
func WithNotificationQueue(queue jobQueue) NotificationOption {
	return func(s *NotificationService) { s.queue = queue }
}

// NewNotificationService constructs the service. A nil publisher logs messages
// instead of sending them, which is what development setups use.
func NewNotificationService(publisher MessagePublisher, senderID string, logger *zap.Logger, opts ...NotificationOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{publisher: publisher, senderID: senderID, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// SendOTP schedules delivery of an edit verification code.
func (s *NotificationService) SendOTP(ctx context.Context, mobile, code string, expiresAt time.Time) error {
	msg := SMSMessage{
		To:        mobile,
		SenderID:  s.senderID,
		Body:      fmt.Sprintf("%s is your Smart Village verification code. It expires at %s.", code, expiresAt.Local().Format("15:04")),
		ExpiresAt: expiresAt,
	}
	if s.queue == nil {
		return s.deliver(ctx, msg)
	}
	if err := s.queue.Enqueue(ctx, jobs.Job{Type: JobTypeOTPSMS, Payload: msg}); err != nil {
		return fmt.Errorf("enqueue otp sms: %w", err)
	}
	return nil
}

// HandleJob is the jobs.Handler for the notification queue.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(SMSMessage)
	if !ok {
		s.logger.Error("dropping job with unexpected payload", zap.String("type", job.Type), zap.String("job_id", job.ID))
		return nil
	}
	return s.deliver(ctx, msg)
}

func (s *NotificationService) deliver(ctx context.Context, msg SMSMessage) error {
	if s.publisher == nil {
		s.logger.Info("sms delivery disabled, message logged", zap.String("to", maskMobile(msg.To)))
		s.metrics.RecordNotification("log", true)
		return nil
	}
	if err := s.publisher.Publish(ctx, JobTypeOTPSMS, msg); err != nil {
		s.metrics.RecordNotification("sms", false)
		return err
	}
	s.metrics.RecordNotification("sms", true)
	return nil
}

func maskMobile(mobile string) string {
	if len(mobile) <= 4 {
		return "****"
	}
	return "******" + mobile[len(mobile)-4:]
}
