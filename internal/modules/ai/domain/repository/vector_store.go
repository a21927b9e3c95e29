package repository

import (
	"context"
	"errors"
)

// VectorStore 是 domain 层定义的“向量库能力抽象”。
//
// application / pipeline 只依赖本接口；Milvus、Qdrant、内存实现位于 infrastructure/vectordb。
// 所有读操作都必须携带 OwnerID 过滤，实现方对缺少 owner 的 Filter 直接返回 ErrMissingOwner。

var ErrMissingOwner = errors.New("vector filter missing owner_id")

// ErrInvalidRecord 写入或查询参数不合法（缺 ID、维度不符），重试无意义
var ErrInvalidRecord = errors.New("invalid vector record")

// VectorRecord 向量写入单元
type VectorRecord struct {
	ID        string
	Vector    []float32
	OwnerID   int64
	Kind      string
	Text      string
	Metadata  map[string]any
	CreatedAt int64 // unix 毫秒
}

// VectorHit 检索结果；Scan 返回的 Score 恒为 0
type VectorHit struct {
	ID        string         `json:"id"`
	Score     float32        `json:"score"`
	OwnerID   int64          `json:"owner_id"`
	Kind      string         `json:"kind"`
	Text      string         `json:"text"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt int64          `json:"created_at"`
}

// Filter 记录过滤条件：owner 相等 AND kind IN KindsIn AND kind NOT IN KindsNotIn
type Filter struct {
	OwnerID    int64
	KindsIn    []string
	KindsNotIn []string
}

// Validate 校验过滤条件必须限定 owner
func (f Filter) Validate() error {
	if f.OwnerID <= 0 {
		return ErrMissingOwner
	}
	return nil
}

// Match 判断单条记录是否满足过滤条件（内存实现与测试使用）
func (f Filter) Match(ownerID int64, kind string) bool {
	if ownerID != f.OwnerID {
		return false
	}
	if len(f.KindsIn) > 0 && !containsString(f.KindsIn, kind) {
		return false
	}
	if containsString(f.KindsNotIn, kind) {
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// VectorStore 向量数据库接口
type VectorStore interface {
	Upsert(ctx context.Context, records []VectorRecord) ([]string, error)
	// Scan 非排序的过滤扫描
	Scan(ctx context.Context, filter Filter, limit int) ([]VectorHit, error)
	// Search 过滤后的相似度检索（余弦，分数越大越相近）
	Search(ctx context.Context, vector []float32, filter Filter, limit int) ([]VectorHit, error)
	// DeleteByIDs 只删除属于 ownerID 的记录
	DeleteByIDs(ctx context.Context, ownerID int64, ids []string) error
	DeleteByOwner(ctx context.Context, ownerID int64) error
}
