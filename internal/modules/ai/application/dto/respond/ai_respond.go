package respond

import "MarketMind/internal/modules/ai/domain/repository"

// 元数据抽取状态
const (
	MetadataStatusComplete           = "complete"
	MetadataStatusNeedsClarification = "needs_clarification"
)

// MetadataRespond Values 中 nil 表示仍缺失
type MetadataRespond struct {
	Values  map[string]*string `json:"values"`
	Status  string             `json:"status"`
	Missing []string           `json:"missing"`
}

type ResearchItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	RecordID string `json:"record_id,omitempty"`
	Status   string `json:"status"` // stored / failed / skipped
	Error    string `json:"error,omitempty"`
}

type ResearchRespond struct {
	OwnerID    int64          `json:"owner_id"`
	Questions  []string       `json:"questions"`
	Items      []ResearchItem `json:"items"`
	Stored     int            `json:"stored"`
	Failed     int            `json:"failed"`
	CacheHit   bool           `json:"cache_hit"`
	DurationMs int64          `json:"duration_ms"`
}

type ContentRespond struct {
	Content      string                 `json:"content"`
	Records      []repository.VectorHit `json:"records"`
	ContextEmpty bool                   `json:"context_empty"`
	TokensUsed   int                    `json:"tokens_used"`
	DurationMs   int64                  `json:"duration_ms"`
}

type BusinessProfileRespond struct {
	OwnerID            int64  `json:"owner_id"`
	CompanyName        string `json:"company_name"`
	ProductDescription string `json:"product_description"`
	TargetAudience     string `json:"target_audience"`
	ToneOfVoice        string `json:"tone_of_voice"`
	UpdatedAt          string `json:"updated_at"`
	IngestEventID      int64  `json:"ingest_event_id,omitempty"`
	IngestMode         string `json:"ingest_mode,omitempty"` // kafka / inline
}
