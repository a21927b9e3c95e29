package mq

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type PublishResult struct {
	Partition int32
	Offset    int64
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) (PublishResult, error)
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

type Consumer interface {
	Run(ctx context.Context, handler Handler) error
	Close() error
}

const (
	HeaderEventType = "event_type"
	HeaderOwnerID   = "owner_id"
)

var ErrInvalidEventID = errors.New("invalid ingest event id")

// NewIngestEventMessage 消息体只携带事件 ID，key 为 owner，保证同一用户的事件落在同一分区
func NewIngestEventMessage(topic string, eventID, ownerID int64, eventType string) Message {
	owner := strconv.FormatInt(ownerID, 10)
	return Message{
		Topic: topic,
		Key:   []byte(owner),
		Value: []byte(strconv.FormatInt(eventID, 10)),
		Headers: map[string]string{
			HeaderEventType: eventType,
			HeaderOwnerID:   owner,
		},
	}
}

// ParseIngestEventID 解析消息体中的事件 ID
func ParseIngestEventID(msg Message) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(msg.Value)), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidEventID
	}
	return id, nil
}
