package initial

import (
	"MarketMind/internal/config"
	"MarketMind/internal/modules/ai/infrastructure/mq"
	"MarketMind/internal/modules/ai/infrastructure/mq/kafka"
	"MarketMind/pkg/zlog"

	"go.uber.org/zap"
)

// KafkaEnabled brokers 为空时画像写入走同步路径
func KafkaEnabled(conf *config.Config) bool {
	return len(conf.KafkaConfig.Brokers) > 0
}

// NewIngestPublisher 确保 ingest topic 存在并创建生产者；未配置 Kafka 时返回 (nil, nil)
func NewIngestPublisher(conf *config.Config) (mq.Publisher, error) {
	if !KafkaEnabled(conf) {
		zlog.Info("kafka not configured, profile ingest runs inline")
		return nil, nil
	}
	kc := conf.KafkaConfig
	if err := kafka.EnsureTopic(kafka.TopicAdminConfig{Brokers: kc.Brokers, ClientID: kc.ClientID}, kc.IngestTopic, kc.Partitions, kc.Replication); err != nil {
		zlog.Warn("kafka ensure topic failed", zap.String("topic", kc.IngestTopic), zap.Error(err))
	}
	return kafka.NewPublisher(kafka.PublisherConfig{Brokers: kc.Brokers, ClientID: kc.ClientID})
}

// NewIngestConsumer 消费组订阅 ingest topic
func NewIngestConsumer(conf *config.Config) (mq.Consumer, error) {
	kc := conf.KafkaConfig
	return kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:    kc.Brokers,
		GroupID:    kc.ConsumerGroupID,
		Topics:     []string{kc.IngestTopic},
		ClientID:   kc.ClientID,
		FromOldest: true,
	})
}
