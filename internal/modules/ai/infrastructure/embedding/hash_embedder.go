package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/components/embedding"
)

// HashEmbedder 离线、确定性的 embedder：对小写词做特征哈希后归一化。
// 相同文本得到相同向量，共享词越多余弦越高；用于本地开发与测试。
type HashEmbedder struct {
	Dim int
}

var _ embedding.Embedder = (*HashEmbedder)(nil)

func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &HashEmbedder{Dim: dim}
}

func (m *HashEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := make([][]float64, len(texts))
	for i, t := range texts {
		result[i] = m.embed(t)
	}
	return result, nil
}

func (m *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, m.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		idx := int(sum % uint64(m.Dim))
		if (sum>>63)&1 == 1 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		// 空文本给一个固定的单位向量
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
