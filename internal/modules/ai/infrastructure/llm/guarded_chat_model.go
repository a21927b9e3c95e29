package llm

import (
	"context"

	"MarketMind/internal/modules/ai/infrastructure/resilience"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// GuardedChatModel 对 LLM 调用加并发上限、超时与重试
type GuardedChatModel struct {
	inner model.BaseChatModel
	guard *resilience.Guard
}

var _ model.BaseChatModel = (*GuardedChatModel)(nil)

func NewGuardedChatModel(inner model.BaseChatModel, guard *resilience.Guard) *GuardedChatModel {
	return &GuardedChatModel{inner: inner, guard: guard}
}

func (m *GuardedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return resilience.Call(ctx, m.guard, "generate", func(ctx context.Context) (*schema.Message, error) {
		return m.inner.Generate(ctx, input, opts...)
	})
}

// Stream 不经过 Guard：单次尝试的超时 ctx 会在返回时取消，流的读取还在其后
func (m *GuardedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return m.inner.Stream(ctx, input, opts...)
}
