package model

import (
	"time"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
	OutboxStatusFailed  OutboxStatus = "FAILED"
)

// 投递失败原因只保留前 255 个字符
const maxOutboxErrorLen = 255

// OutboxMessage 事件发件箱，和余额、重置令牌在同一事务里写入
type OutboxMessage struct {
	ID          int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic       string       `gorm:"type:varchar(64);not null;index:idx_outbox_topic_status" json:"topic"`
	MessageKey  string       `gorm:"type:varchar(64);not null" json:"message_key"`
	AggregateID string       `gorm:"type:varchar(36);index" json:"aggregate_id"`
	Payload     string       `gorm:"type:text;not null" json:"payload"`
	Status      OutboxStatus `gorm:"type:varchar(20);not null;default:PENDING;index:idx_outbox_topic_status" json:"status"`
	RetryCount  int          `gorm:"not null;default:0" json:"retry_count"`
	LastError   string       `gorm:"type:varchar(255)" json:"last_error,omitempty"`
	SentAt      *time.Time   `json:"sent_at,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// TruncateOutboxError 截断错误信息以适配 last_error 列
func TruncateOutboxError(msg string) string {
	if len(msg) <= maxOutboxErrorLen {
		return msg
	}
	return msg[:maxOutboxErrorLen]
}

// LedgerEvent ledger_events 上的消息体，每条完成的流水一条
type LedgerEvent struct {
	EntryNo      string          `json:"entry_no"`
	UserID       string          `json:"user_id"`
	Type         TransactionType `json:"type"`
	Asset        Asset           `json:"asset"`
	Amount       string          `json:"amount"`
	BalanceAfter string          `json:"balance_after"`
	Status       EntryStatus     `json:"status"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// PasswordResetEvent 交给邮件服务发送重置链接
type PasswordResetEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
