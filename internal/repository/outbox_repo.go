package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"krypton/internal/model"
	"krypton/pkg/idgen"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue 序列化事件写入发件箱，必须传入业务事务
// aggregateID 为事件所属用户，key 为空时生成 MSG 开头的 key
func (r *OutboxRepository) Enqueue(ctx context.Context, tx *gorm.DB, topic, aggregateID, key string, event interface{}) (*model.OutboxMessage, error) {
	if tx == nil {
		tx = r.db
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", topic, err)
	}
	if key == "" {
		key = idgen.GenerateMessageKey()
	}

	msg := &model.OutboxMessage{
		Topic:       topic,
		MessageKey:  key,
		AggregateID: aggregateID,
		Payload:     string(payload),
		Status:      model.OutboxStatusPending,
	}
	if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

// GetPendingMessages 按写入顺序取待投递消息
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *OutboxRepository) MarkAsSent(ctx context.Context, id int64, at time.Time) error {
	return r.pending(ctx, id).Updates(map[string]interface{}{
		"status":     model.OutboxStatusSent,
		"sent_at":    at,
		"last_error": "",
	}).Error
}

// RecordFailure 记录一次投递失败，final 为 true 时消息不再重试
func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, cause error, final bool) error {
	updates := map[string]interface{}{
		"retry_count": gorm.Expr("retry_count + 1"),
		"last_error":  model.TruncateOutboxError(cause.Error()),
	}
	if final {
		updates["status"] = model.OutboxStatusFailed
	}
	return r.pending(ctx, id).Updates(updates).Error
}

// 只更新仍处于 PENDING 的消息
func (r *OutboxRepository) pending(ctx context.Context, id int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusPending)
}
