package job

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"krypton/internal/config"
	"krypton/internal/model"
	"krypton/internal/repository"
)

// Publisher 消息投递，生产环境是 mq.Producer
type Publisher interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender 把 PENDING 的 outbox 消息投递到 Kafka
type OutboxSender struct {
	outboxRepo    *repository.OutboxRepository
	publisher     Publisher
	maxRetryCount int
	log           *zap.Logger
	stopCh        chan struct{}
	interval      time.Duration
	batchSize     int
}

func NewOutboxSender(db *gorm.DB, publisher Publisher, cfg *config.Config, log *zap.Logger) *OutboxSender {
	maxRetry := cfg.Business.MaxRetryCount
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return &OutboxSender{
		outboxRepo:    repository.NewOutboxRepository(db),
		publisher:     publisher,
		maxRetryCount: maxRetry,
		log:           log.Named("outbox_sender"),
		stopCh:        make(chan struct{}),
		interval:      100 * time.Millisecond,
		batchSize:     100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("outbox sender started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("outbox sender exiting on context cancel")
			return
		case <-s.stopCh:
			s.log.Info("outbox sender stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error("query pending outbox messages failed", zap.Error(err))
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	log := s.log.With(zap.Int64("id", msg.ID), zap.String("topic", msg.Topic), zap.String("key", msg.MessageKey))

	sendErr := s.publisher.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if sendErr == nil {
		if err := s.outboxRepo.MarkAsSent(ctx, msg.ID, time.Now()); err != nil {
			log.Error("mark outbox message sent failed", zap.Error(err))
			return
		}
		log.Debug("outbox message sent")
		return
	}

	final := msg.RetryCount+1 >= s.maxRetryCount
	if err := s.outboxRepo.RecordFailure(ctx, msg.ID, sendErr, final); err != nil {
		log.Error("record outbox failure failed", zap.Error(err))
		return
	}
	if final {
		log.Warn("outbox message exceeded max retries", zap.Int("retry", msg.RetryCount+1), zap.Error(sendErr))
		return
	}
	log.Warn("send outbox message failed", zap.Int("retry", msg.RetryCount+1), zap.Error(sendErr))
}
