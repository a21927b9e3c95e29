package kafka

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"MarketMind/pkg/zlog"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type TopicAdminConfig struct {
	Brokers   []string
	ClientID  string
	Retention time.Duration // 默认 7 天
}

// EnsureTopic 不存在则创建画像 ingest topic；已存在时不修改其配置
func EnsureTopic(cfg TopicAdminConfig, topic string, partitions int32, replicationFactor int16) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka brokers is empty")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("kafka topic is empty")
	}

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, newSaramaConfig(cfg.ClientID))
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()

	topics, err := admin.ListTopics()
	if err != nil {
		return err
	}
	if _, ok := topics[topic]; ok {
		return nil
	}

	td := topicDetail(partitions, replicationFactor, cfg.Retention)
	err = admin.CreateTopic(topic, td, false)
	if err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return err
	}
	zlog.Info("kafka topic ready", zap.String("topic", topic), zap.Int32("partitions", td.NumPartitions), zap.Int16("replication", td.ReplicationFactor))
	return nil
}

// topicDetail 过期删除；多副本时 min.insync.replicas=2
func topicDetail(partitions int32, replicationFactor int16, retention time.Duration) *sarama.TopicDetail {
	if partitions <= 0 {
		partitions = 1
	}
	if replicationFactor <= 0 {
		replicationFactor = 1
	}
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	retentionMs := strconv.FormatInt(retention.Milliseconds(), 10)
	cleanup := "delete"
	entries := map[string]*string{
		"retention.ms":   &retentionMs,
		"cleanup.policy": &cleanup,
	}
	if replicationFactor > 1 {
		minISR := "2"
		entries["min.insync.replicas"] = &minISR
	}
	return &sarama.TopicDetail{
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
		ConfigEntries:     entries,
	}
}

func newSaramaConfig(clientID string) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	if sc.ClientID = strings.TrimSpace(clientID); sc.ClientID == "" {
		sc.ClientID = "marketmind"
	}
	return sc
}
