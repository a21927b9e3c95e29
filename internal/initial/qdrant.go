package initial

import (
	"context"
	"fmt"
	"strings"

	"MarketMind/internal/config"
	"MarketMind/pkg/zlog"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// NewQdrantClient 连接 Qdrant（gRPC），确保 collection 及 owner_id / kind 的 payload 索引存在
func NewQdrantClient(ctx context.Context, conf *config.Config, dim int) (*qdrant.Client, error) {
	qc := conf.QdrantConfig
	host := strings.TrimSpace(qc.Host)
	if host == "" {
		return nil, fmt.Errorf("qdrant host is empty")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dim: %d", dim)
	}

	cli, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   qc.Port,
		APIKey: qc.APIKey,
		UseTLS: qc.UseTLS,
	})
	if err != nil {
		return nil, err
	}
	if err := ensureQdrantCollection(ctx, cli, qc.CollectionName, dim); err != nil {
		_ = cli.Close()
		return nil, err
	}
	return cli, nil
}

func ensureQdrantCollection(ctx context.Context, cli *qdrant.Client, collection string, dim int) error {
	exists, err := cli.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		info, err := cli.GetCollectionInfo(ctx, collection)
		if err != nil {
			return err
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		return checkCollectionDim(collection, int(size), dim)
	}

	zlog.Info("creating qdrant collection", zap.String("collection", collection), zap.Int("dim", dim))
	err = cli.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	indexes := map[string]qdrant.FieldType{
		"owner_id": qdrant.FieldType_FieldTypeInteger,
		"kind":     qdrant.FieldType_FieldTypeKeyword,
	}
	for field, typ := range indexes {
		if _, err := cli.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collection,
			FieldName:      field,
			FieldType:      typ.Enum(),
		}); err != nil {
			return fmt.Errorf("create qdrant index %s: %w", field, err)
		}
	}
	return nil
}
