package chunking

import (
	"context"
	"strings"
	"sync"

	"MarketMind/pkg/zlog"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// NoteSplitter 把长笔记切成带重叠的片段，每段单独写入一条 Note 记录。
// 优先按段落/句子递归切分；递归切分器不可用时退化为按字符窗口切分。
type NoteSplitter struct {
	ChunkSize    int
	ChunkOverlap int

	initOnce sync.Once
	impl     document.Transformer
}

func NewNoteSplitter(size, overlap int) *NoteSplitter {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &NoteSplitter{ChunkSize: size, ChunkOverlap: overlap}
}

// Split 返回去掉首尾空白后的非空片段
func (c *NoteSplitter) Split(ctx context.Context, text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{}, nil
	}
	if len([]rune(text)) <= c.ChunkSize {
		return []string{text}, nil
	}

	c.initOnce.Do(func() {
		impl, err := recursive.NewSplitter(ctx, &recursive.Config{
			ChunkSize:   c.ChunkSize,
			OverlapSize: c.ChunkOverlap,
			Separators:  []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "},
			LenFunc: func(s string) int {
				return len([]rune(s))
			},
			KeepType: recursive.KeepTypeEnd,
		})
		if err != nil {
			zlog.Warn("recursive splitter unavailable, using window split", zap.Error(err))
			return
		}
		c.impl = impl
	})
	if c.impl == nil {
		return c.windowSplit(text), nil
	}

	frags, err := c.impl.Transform(ctx, []*schema.Document{{Content: text}})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(frags))
	for _, f := range frags {
		if f == nil {
			continue
		}
		if s := strings.TrimSpace(f.Content); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// windowSplit 按 rune 数量滑窗切分，避免截断多字节字符
func (c *NoteSplitter) windowSplit(text string) []string {
	runes := []rune(text)
	total := len(runes)
	if total <= c.ChunkSize {
		return []string{text}
	}
	step := c.ChunkSize - c.ChunkOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []string
	for i := 0; i < total; i += step {
		end := i + c.ChunkSize
		if end > total {
			end = total
		}
		if s := strings.TrimSpace(string(runes[i:end])); s != "" {
			chunks = append(chunks, s)
		}
		if end == total {
			break
		}
	}
	return chunks
}
