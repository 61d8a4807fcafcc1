package mq

import (
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"krypton/internal/config"
)

const clientID = "krypton"

var contentTypeHeader = sarama.RecordHeader{Key: []byte("content-type"), Value: []byte("application/json")}

// Producer 同步投递 outbox 事件
type Producer struct {
	producer sarama.SyncProducer
}

// NewProducerConfig 所有副本确认后才算成功，broker 抖动时 sarama 内部重试 3 次
func NewProducerConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = clientID
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Retry.Max = 3
	c.Producer.Retry.Backoff = 200 * time.Millisecond
	c.Producer.Compression = sarama.CompressionSnappy
	c.Producer.Return.Successes = true
	return c
}

func InitKafka(cfg *config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka.brokers is empty")
	}
	sp, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer %v: %w", cfg.Brokers, err)
	}
	return NewProducer(sp), nil
}

// NewProducer 测试里传入 mocks.SyncProducer
func NewProducer(sp sarama.SyncProducer) *Producer {
	return &Producer{producer: sp}
}

// SendMessage 同一个 key 落在同一分区，保证单个用户的事件有序
func (p *Producer) SendMessage(topic, key, value string) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.StringEncoder(value),
		Headers: []sarama.RecordHeader{contentTypeHeader},
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
