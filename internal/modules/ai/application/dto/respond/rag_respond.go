package respond

import "MarketMind/internal/modules/ai/domain/repository"

type RAGFieldResult struct {
	Kind     string `json:"kind"`
	RecordID string `json:"record_id,omitempty"`
	Status   string `json:"status"` // stored / skipped / failed
	Error    string `json:"error,omitempty"`
}

type RAGIngestRespond struct {
	OwnerID    int64            `json:"owner_id"`
	Fields     []RAGFieldResult `json:"fields"`
	Stored     int              `json:"stored"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	DurationMs int64            `json:"duration_ms"`
}

// RAGRetrieveRespond Records = Profile + Research
type RAGRetrieveRespond struct {
	QueryID      string                 `json:"query_id"`
	Query        string                 `json:"query"`
	Profile      []repository.VectorHit `json:"profile"`
	Research     []repository.VectorHit `json:"research"`
	Records      []repository.VectorHit `json:"records"`
	IsEmpty      bool                   `json:"is_empty"`
	Message      string                 `json:"message,omitempty"`
	DurationMs   int64                  `json:"duration_ms"`
	GuaranteedMs int64                  `json:"guaranteed_ms"`
	ContextualMs int64                  `json:"contextual_ms"`
}

type RAGDeleteRespond struct {
	OwnerID int64 `json:"owner_id"`
	Deleted int   `json:"deleted"` // 按 ID 删除时为 ID 数；按 owner 删除时为 -1
}
