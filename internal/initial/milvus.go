package initial

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"MarketMind/internal/config"
	"MarketMind/pkg/zlog"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"
)

// NewMilvusClient 连接 Milvus，确保 database 与 collection 存在并加载。
// collection 字段与 vectordb.MilvusStore 的读写字段一一对应。
func NewMilvusClient(ctx context.Context, conf *config.Config, dim int) (mclient.Client, error) {
	mc := conf.MilvusConfig
	addr := strings.TrimSpace(mc.Address)
	if addr == "" {
		return nil, fmt.Errorf("milvus address is empty")
	}
	if dim <= 0 {
		dim = mc.VectorDim
	}
	dbName := strings.TrimSpace(mc.DBName)
	if dbName == "" {
		dbName = "marketmind"
	}

	if err := ensureMilvusDatabase(ctx, mc, dbName); err != nil {
		return nil, fmt.Errorf("ensure milvus database %s: %w", dbName, err)
	}

	cli, err := mclient.NewClient(ctx, mclient.Config{
		Address:  addr,
		Username: strings.TrimSpace(mc.Username),
		Password: strings.TrimSpace(mc.Password),
		DBName:   dbName,
	})
	if err != nil {
		return nil, err
	}
	if err := ensureMilvusCollection(ctx, cli, mc.CollectionName, dim, MilvusMetricType(mc.MetricType)); err != nil {
		_ = cli.Close()
		return nil, err
	}
	if err := cli.LoadCollection(ctx, mc.CollectionName, false); err != nil {
		zlog.Warn("milvus load collection failed", zap.String("collection", mc.CollectionName), zap.Error(err))
	}
	return cli, nil
}

// MilvusMetricType 配置字符串转 entity.MetricType，未知值按 COSINE 处理
func MilvusMetricType(s string) entity.MetricType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L2":
		return entity.L2
	case "IP":
		return entity.IP
	default:
		return entity.COSINE
	}
}

func ensureMilvusDatabase(ctx context.Context, mc config.MilvusConfig, dbName string) error {
	cli, err := mclient.NewClient(ctx, mclient.Config{
		Address:  strings.TrimSpace(mc.Address),
		Username: strings.TrimSpace(mc.Username),
		Password: strings.TrimSpace(mc.Password),
		DBName:   "default",
	})
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	dbs, err := cli.ListDatabases(ctx)
	if err != nil {
		return err
	}
	for _, db := range dbs {
		if db.Name == dbName {
			return nil
		}
	}
	zlog.Info("creating milvus database", zap.String("db", dbName))
	return cli.CreateDatabase(ctx, dbName)
}

func ensureMilvusCollection(ctx context.Context, cli mclient.Client, collection string, dim int, metric entity.MetricType) error {
	exists, err := cli.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		coll, err := cli.DescribeCollection(ctx, collection)
		if err != nil {
			return err
		}
		return checkCollectionDim(collection, milvusVectorDim(coll.Schema), dim)
	}

	schema := entity.NewSchema().
		WithName(collection).
		WithDescription("marketing assistant records").
		WithField(entity.NewField().WithName("id").WithDataType(entity.FieldTypeVarChar).WithIsPrimaryKey(true).WithMaxLength(128)).
		WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dim))).
		WithField(entity.NewField().WithName("owner_id").WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName("kind").WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
		WithField(entity.NewField().WithName("text").WithDataType(entity.FieldTypeVarChar).WithMaxLength(4096 * 4)).
		WithField(entity.NewField().WithName("metadata").WithDataType(entity.FieldTypeJSON)).
		WithField(entity.NewField().WithName("created_at").WithDataType(entity.FieldTypeInt64))

	zlog.Info("creating milvus collection", zap.String("collection", collection), zap.Int("dim", dim))
	if err := cli.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return err
	}
	idx, err := entity.NewIndexAUTOINDEX(metric)
	if err != nil {
		return err
	}
	return cli.CreateIndex(ctx, collection, "vector", idx, false)
}

func milvusVectorDim(s *entity.Schema) int {
	if s == nil {
		return 0
	}
	for _, f := range s.Fields {
		if f.DataType == entity.FieldTypeFloatVector {
			d, _ := strconv.Atoi(f.TypeParams[entity.TypeParamDim])
			return d
		}
	}
	return 0
}

// checkCollectionDim 已有集合的向量维度必须与 embedder 输出一致
func checkCollectionDim(collection string, got, want int) error {
	if got != want {
		return fmt.Errorf("collection %s has vector dim %d, embedder produces %d", collection, got, want)
	}
	return nil
}
