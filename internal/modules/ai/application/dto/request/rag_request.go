package request

// RAGIngestRequest 写入一组命名字段（每个字段一条向量记录）
type RAGIngestRequest struct {
	Fields   map[string]string `json:"fields" binding:"required"` // kind → text
	Metadata map[string]any    `json:"metadata,omitempty"`
}

// RAGRetrieveRequest 两路召回
type RAGRetrieveRequest struct {
	Query string `json:"query"` // 为空时只返回核心画像
	TopK  int    `json:"top_k"` // 默认 5，上限 50
}

// RAGNotesRequest 自由文本笔记，切片后写入
type RAGNotesRequest struct {
	Text     string         `json:"text" binding:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RAGDeleteRequest 按 IDs 删除；All 为 true 时删除当前用户的全部向量记录，此时不能再带 IDs
type RAGDeleteRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

// ExtractMetadataRequest Supplied 为用户补充的字段，覆盖模型结果
type ExtractMetadataRequest struct {
	Text     string            `json:"text" binding:"required"`
	Supplied map[string]string `json:"supplied,omitempty"`
}

type ResearchGenerateRequest struct {
	MaxQuestions int `json:"max_questions"` // 默认取配置 maxQuestionsPerRun
}

type ContentGenerateRequest struct {
	Request string `json:"request" binding:"required"`
	TopK    int    `json:"top_k"`
}
