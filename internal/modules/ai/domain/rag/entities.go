package rag

import (
	"time"
)

const (
	IngestEventStatusPending    int8 = 0
	IngestEventStatusProcessing int8 = 1
	IngestEventStatusSucceeded  int8 = 2
	IngestEventStatusFailed     int8 = 3
)

const IngestEventTypeProfileUpdated = "profile_updated"

// BusinessProfile 用户提交的营销画像（关系库中的权威副本）
type BusinessProfile struct {
	Id                 int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerId            int64     `gorm:"column:owner_id;not null;uniqueIndex:uniq_business_profile_owner"`
	CompanyName        string    `gorm:"column:company_name;type:varchar(255)"`
	ProductDescription string    `gorm:"column:product_description;type:text"`
	TargetAudience     string    `gorm:"column:target_audience;type:text"`
	ToneOfVoice        string    `gorm:"column:tone_of_voice;type:varchar(255)"`
	CreatedAt          time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (BusinessProfile) TableName() string { return "business_profile" }

// Fields 将画像展开为 kind → text，供 Ingestion 使用
func (p *BusinessProfile) Fields() map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return map[string]string{
		KindCompanyName:        p.CompanyName,
		KindProductDescription: p.ProductDescription,
		KindTargetAudience:     p.TargetAudience,
		KindToneOfVoice:        p.ToneOfVoice,
	}
}

// AIIngestEvent 异步向量化事件（Kafka 消息体只携带事件 ID）
type AIIngestEvent struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventType   string    `gorm:"column:event_type;type:varchar(40);not null"`
	OwnerId     int64     `gorm:"column:owner_id;not null;index:idx_ai_event_owner"`
	PayloadJson string    `gorm:"column:payload_json;type:json"`
	Status      int8      `gorm:"column:status;type:tinyint;not null;default:0;index:idx_ai_event_status"`
	RetryCount  int       `gorm:"column:retry_count;type:int;not null;default:0"`
	LastError   string    `gorm:"column:last_error;type:varchar(255)"`
	CreatedAt   time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (AIIngestEvent) TableName() string { return "ai_ingest_event" }
