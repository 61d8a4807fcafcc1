// Package idgen 生成流水号和消息 key
//
// ID 布局：1 位符号 | 41 位毫秒时间戳 | 10 位节点 | 12 位序列
package idgen

import (
	"fmt"
	"sync"
	"time"
)

const (
	epochMilli   = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	nodeBits     = 10
	sequenceBits = 12
	MaxNode      = int64(1)<<nodeBits - 1
	sequenceMask = int64(1)<<sequenceBits - 1
	nodeShift    = sequenceBits
	timeShift    = sequenceBits + nodeBits
)

// Snowflake 单节点 ID 生成器，并发安全
type Snowflake struct {
	mu       sync.Mutex
	node     int64
	lastMs   int64
	sequence int64
	now      func() time.Time
}

var (
	defaultGen  *Snowflake
	defaultOnce sync.Once
)

// Init 设置进程默认节点号，只有第一次调用生效
// 多个实例共用一个数据库时节点号必须互不相同，否则流水号可能冲突
func Init(node int64) {
	defaultOnce.Do(func() {
		defaultGen = NewSnowflake(node)
	})
}

// NewSnowflake node 超出 10 位时只保留低位
func NewSnowflake(node int64) *Snowflake {
	return &Snowflake{node: node & MaxNode, now: time.Now}
}

func defaultGenerator() *Snowflake {
	Init(1)
	return defaultGen
}

// Generate 返回严格递增的 ID
// 时钟回拨时沿用上一次的时间戳继续分配序列号
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := s.now().UnixMilli()
	if ms < s.lastMs {
		ms = s.lastMs
	}
	if ms == s.lastMs {
		s.sequence = (s.sequence + 1) & sequenceMask
		if s.sequence == 0 {
			ms = s.waitNextMilli()
		}
	} else {
		s.sequence = 0
	}
	s.lastMs = ms

	return (ms-epochMilli)<<timeShift | s.node<<nodeShift | s.sequence
}

func (s *Snowflake) waitNextMilli() int64 {
	ms := s.now().UnixMilli()
	for ms <= s.lastMs {
		time.Sleep(100 * time.Microsecond)
		ms = s.now().UnixMilli()
	}
	return ms
}

// Time 解析 ID 中的时间戳
func Time(id int64) time.Time {
	return time.UnixMilli(id>>timeShift + epochMilli).UTC()
}

// Node 解析 ID 中的节点号
func Node(id int64) int64 {
	return id >> nodeShift & MaxNode
}

// GenerateEntryNo 流水号：TXN + UTC 秒级时间 + ID 低 8 位
func GenerateEntryNo() string {
	return format("TXN", defaultGenerator().Generate())
}

// GenerateMessageKey 不对应流水的 outbox 消息 key
func GenerateMessageKey() string {
	return format("MSG", defaultGenerator().Generate())
}

func format(prefix string, id int64) string {
	return fmt.Sprintf("%s%s%08d", prefix, Time(id).Format("20060102150405"), id%100000000)
}
