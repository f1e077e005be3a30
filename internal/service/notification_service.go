package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/jobs"
	"github.com/noah-isme/sma-escalation-api/pkg/sms"
)

const (
	channelSMS  = "sms"
	smsJobType  = "sms.send"
	smsQueueKey = "notifications"
)

var errMissingRecipient = errors.New("recipient phone is empty")

// NotificationConfig tunes SMS delivery.
type NotificationConfig struct {
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	Workers       int
	BufferSize    int
	DefaultRegion string
}

type notificationMetrics interface {
	RecordNotification(trigger string, delivered bool)
}

type smsDelivery struct {
	event     models.NotificationEvent
	attempts  int
	messageID string
}

// NotificationService delivers SMS alerts through a worker queue. Each event
// is delivered independently; failures are reported, never raised to callers
// that did not ask for the result.
type NotificationService struct {
	client  sms.Client
	queue   *jobs.Queue
	metrics notificationMetrics
	logger  *zap.Logger
	cfg     NotificationConfig
}

// NewNotificationService builds the dispatcher. Call Start before Dispatch.
func NewNotificationService(client sms.Client, metrics notificationMetrics, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = (*MetricsService)(nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	svc := &NotificationService{client: client, metrics: metrics, logger: logger, cfg: cfg}
	svc.queue = jobs.NewQueue(smsQueueKey, svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains queued notifications until ctx expires.
func (s *NotificationService) Stop(ctx context.Context) error {
	return s.queue.Stop(ctx)
}

// Dispatch queues event and returns a channel that yields exactly one result.
// Delivery is detached from ctx so that request cancellation does not drop alerts.
func (s *NotificationService) Dispatch(ctx context.Context, event models.NotificationEvent) <-chan models.DeliveryResult {
	out := make(chan models.DeliveryResult, 1)
	event.Channel = channelSMS
	event.Recipient = sms.NormalizePhone(event.Recipient, s.cfg.DefaultRegion)
	if event.Recipient == "" {
		s.finish(out, &smsDelivery{event: event}, errMissingRecipient)
		return out
	}

	delivery := &smsDelivery{event: event}
	done := make(chan error, 1)
	job := jobs.Job{ID: uuid.NewString(), Type: smsJobType, Payload: delivery, Done: done}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to queue notification", zap.String("trigger", string(event.Trigger)), zap.Error(err))
		s.finish(out, delivery, err)
		return out
	}

	go func() {
		s.finish(out, delivery, <-done)
	}()
	return out
}

// Send delivers one message synchronously with a single attempt.
func (s *NotificationService) Send(ctx context.Context, event models.NotificationEvent) (*models.DeliveryResult, error) {
	event.Channel = channelSMS
	event.Recipient = sms.NormalizePhone(event.Recipient, s.cfg.DefaultRegion)
	delivery := &smsDelivery{event: event}
	var err error
	if event.Recipient == "" {
		err = errMissingRecipient
	} else {
		err = s.attempt(ctx, delivery)
	}
	result := s.result(delivery, err)
	if err != nil {
		return &result, appErrors.Upstream(err, "failed to send sms")
	}
	return &result, nil
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	delivery, ok := job.Payload.(*smsDelivery)
	if !ok {
		return errors.New("unexpected sms job payload")
	}
	return s.attempt(ctx, delivery)
}

func (s *NotificationService) attempt(ctx context.Context, delivery *smsDelivery) error {
	delivery.attempts++
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	res, err := s.client.Send(sendCtx, delivery.event.Recipient, delivery.event.Body)
	if err != nil {
		return err
	}
	delivery.messageID = res.MessageID
	return nil
}

func (s *NotificationService) result(delivery *smsDelivery, err error) models.DeliveryResult {
	result := models.DeliveryResult{
		Recipient: delivery.event.Recipient,
		Trigger:   delivery.event.Trigger,
		Delivered: err == nil,
		MessageID: delivery.messageID,
		Attempts:  delivery.attempts,
	}
	if err != nil {
		result.Error = err.Error()
	}
	s.metrics.RecordNotification(string(delivery.event.Trigger), result.Delivered)
	return result
}

func (s *NotificationService) finish(out chan<- models.DeliveryResult, delivery *smsDelivery, err error) {
	result := s.result(delivery, err)
	if err != nil {
		s.logger.Warn("sms not delivered",
			zap.String("trigger", string(result.Trigger)),
			zap.String("recipient", result.Recipient),
			zap.Int("attempts", result.Attempts),
			zap.Error(err))
	} else {
		s.logger.Info("sms delivered",
			zap.String("trigger", string(result.Trigger)),
			zap.String("recipient", result.Recipient),
			zap.String("message_id", result.MessageID))
	}
	out <- result
	close(out)
}
