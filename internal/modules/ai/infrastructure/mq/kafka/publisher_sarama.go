package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/infrastructure/mq"

	"github.com/IBM/sarama"
)

type PublisherConfig struct {
	Brokers  []string
	ClientID string
	// SendTimeout 单条消息等待 broker 确认的上限，默认 10 秒
	SendTimeout time.Duration
}

type saramaPublisher struct {
	p   sarama.SyncProducer
	now func() time.Time
}

// NewPublisher 画像事件的同步生产者；key 为 owner，同一用户的事件有序
func NewPublisher(cfg PublisherConfig) (mq.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}
	p, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &saramaPublisher{p: p, now: time.Now}, nil
}

// producerConfig 幂等写入要求 acks=all 且单连接最多一个在途请求
func producerConfig(cfg PublisherConfig) *sarama.Config {
	sc := newSaramaConfig(cfg.ClientID)
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Retry.Max = 5
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.Compression = sarama.CompressionNone
	sc.Producer.Timeout = cfg.SendTimeout
	if sc.Producer.Timeout <= 0 {
		sc.Producer.Timeout = 10 * time.Second
	}
	return sc
}

func (s *saramaPublisher) Publish(ctx context.Context, msg mq.Message) (mq.PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return mq.PublishResult{}, err
	}
	if strings.TrimSpace(msg.Topic) == "" {
		return mq.PublishResult{}, errors.New("kafka topic is empty")
	}
	pm := toProducerMessage(msg)
	pm.Timestamp = s.now()

	partition, offset, err := s.p.SendMessage(pm)
	if err != nil {
		return mq.PublishResult{}, err
	}
	return mq.PublishResult{Partition: partition, Offset: offset}, nil
}

func (s *saramaPublisher) Close() error {
	if s == nil || s.p == nil {
		return nil
	}
	return s.p.Close()
}

func toProducerMessage(msg mq.Message) *sarama.ProducerMessage {
	pm := &sarama.ProducerMessage{Topic: msg.Topic, Value: sarama.ByteEncoder(msg.Value)}
	if len(msg.Key) > 0 {
		pm.Key = sarama.ByteEncoder(msg.Key)
	}
	pm.Headers = make([]sarama.RecordHeader, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		if k = strings.TrimSpace(k); k != "" {
			pm.Headers = append(pm.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
		}
	}
	return pm
}
