package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType 流水类型
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTrade      TransactionType = "TRADE"
	// TransactionTypeUpdate 管理员直接覆盖余额，Amount 记录的是新的绝对值而不是变动量
	TransactionTypeUpdate TransactionType = "UPDATE"
)

// ParseDeltaType 解析可以产生余额变动的流水类型，UPDATE 不在其中
func ParseDeltaType(s string) (TransactionType, bool) {
	switch t := TransactionType(s); t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTrade:
		return t, true
	}
	return "", false
}

// Sign 变动方向，提现为 -1，其余为 +1
func (t TransactionType) Sign() int {
	if t == TransactionTypeWithdrawal {
		return -1
	}
	return 1
}

// EntryStatus 流水状态
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusFailed    EntryStatus = "FAILED"
)

// ValidStatusTransitions COMPLETED 和 FAILED 都是终态
var ValidStatusTransitions = map[EntryStatus][]EntryStatus{
	EntryStatusPending: {EntryStatusCompleted, EntryStatusFailed},
}

func CanTransitionTo(currentStatus, targetStatus EntryStatus) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// LedgerEntry 余额流水表
// 只追加，除了 PENDING -> 终态 之外不做任何修改
type LedgerEntry struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryNo   string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"entry_no"`
	UserID    string          `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Type      TransactionType `gorm:"column:transaction_type;type:varchar(20);not null" json:"type"`
	Asset     Asset           `gorm:"type:varchar(8);not null" json:"asset"`
	Amount    decimal.Decimal `gorm:"type:decimal(36,18);not null" json:"amount"`
	Status    EntryStatus     `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LedgerEntry) TableName() string {
	return "transaction_history"
}
