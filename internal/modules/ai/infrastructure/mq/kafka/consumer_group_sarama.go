package kafka

import (
	"context"
	"errors"
	"strings"
	"time"

	"MarketMind/internal/modules/ai/infrastructure/mq"
	"MarketMind/pkg/zlog"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	ClientID string
	// FromOldest 新 group 从最早 offset 开始消费（默认从最新）
	FromOldest bool
}

type saramaConsumer struct {
	cg     sarama.ConsumerGroup
	topics []string
}

func NewConsumer(cfg ConsumerConfig) (mq.Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka consumer group id is empty")
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.New("kafka topics is empty")
	}

	cg, err := sarama.NewConsumerGroup(cfg.Brokers, strings.TrimSpace(cfg.GroupID), consumerConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &saramaConsumer{cg: cg, topics: cfg.Topics}, nil
}

// consumerConfig 使用 sticky 分配策略，offset 每秒自动提交
func consumerConfig(cfg ConsumerConfig) *sarama.Config {
	sc := newSaramaConfig(cfg.ClientID)
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	if cfg.FromOldest {
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	sc.Consumer.Offsets.AutoCommit.Interval = time.Second
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}
	sc.Consumer.Group.Rebalance.Timeout = 30 * time.Second
	sc.Consumer.Group.Session.Timeout = 30 * time.Second
	sc.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	sc.Consumer.Return.Errors = true
	return sc
}

// Run 阻塞直到 ctx 取消；每次 rebalance 后 Consume 返回，需要循环重新加入
func (c *saramaConsumer) Run(ctx context.Context, handler mq.Handler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}
	h := &consumerGroupHandler{h: handler}

	go func() {
		for err := range c.cg.Errors() {
			zlog.Warn("kafka consumer group error", zap.Error(err))
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.cg.Consume(ctx, c.topics, h); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
	}
}

func (c *saramaConsumer) Close() error {
	if c == nil {
		return nil
	}
	return c.cg.Close()
}

type consumerGroupHandler struct {
	h mq.Handler
}

func (consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim Handle 返回 nil 才提交 offset；失败的消息在下次 rebalance 后重投
func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case m, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.h.Handle(sess.Context(), fromConsumerMessage(m)); err != nil {
				zlog.Warn("kafka message handle failed",
					zap.String("topic", m.Topic),
					zap.Int32("partition", m.Partition),
					zap.Int64("offset", m.Offset),
					zap.Error(err))
				continue
			}
			sess.MarkMessage(m, "")
		}
	}
}

func fromConsumerMessage(m *sarama.ConsumerMessage) mq.Message {
	msg := mq.Message{Topic: m.Topic, Key: m.Key, Value: m.Value}
	for _, hdr := range m.Headers {
		if hdr == nil || len(hdr.Key) == 0 {
			continue
		}
		if msg.Headers == nil {
			msg.Headers = make(map[string]string, len(m.Headers))
		}
		msg.Headers[string(hdr.Key)] = string(hdr.Value)
	}
	return msg
}
