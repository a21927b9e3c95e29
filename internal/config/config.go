package config

import (
	"log"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

const DefaultConfigPath = "configs/config_local.toml"

type MainConfig struct {
	AppName string `toml:"appName"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	// SSLRedirect 为 true 时由 secure 中间件强制跳转 https
	SSLRedirect bool `toml:"sslRedirect"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath    string `toml:"logPath"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"maxSizeMB"`
	MaxBackups int    `toml:"maxBackups"`
	MaxAgeDays int    `toml:"maxAgeDays"`
}

type JwtConfig struct {
	Key           string `toml:"key"`
	ExpireMinutes int    `toml:"expireMinutes"`
	Issuer        string `toml:"issuer"`
	CookieName    string `toml:"cookieName"`
}

type VectorStoreConfig struct {
	// Backend: milvus / qdrant / memory
	Backend string `toml:"backend"`
}

type MilvusConfig struct {
	Address        string `toml:"address"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	DBName         string `toml:"dbName"`
	CollectionName string `toml:"collectionName"`
	VectorDim      int    `toml:"vectorDim"`
	MetricType     string `toml:"metricType"`
}

type QdrantConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	APIKey         string `toml:"apiKey"`
	UseTLS         bool   `toml:"useTLS"`
	CollectionName string `toml:"collectionName"`
}

type KafkaConfig struct {
	Brokers         []string `toml:"brokers"`
	ClientID        string   `toml:"clientID"`
	IngestTopic     string   `toml:"ingestTopic"`
	ConsumerGroupID string   `toml:"consumerGroupID"`
	Partitions      int32    `toml:"partitions"`
	Replication     int16    `toml:"replication"`
}

type AIEmbeddingConfig struct {
	Provider        string `toml:"provider"`
	APIKey          string `toml:"apiKey"`
	AccessKey       string `toml:"accessKey"`
	SecretKey       string `toml:"secretKey"`
	BaseURL         string `toml:"baseURL"`
	Region          string `toml:"region"`
	Model           string `toml:"model"`
	Dimensions      int    `toml:"dimensions"`
	TimeoutSeconds  int    `toml:"timeoutSeconds"`
	ByAzure         bool   `toml:"byAzure"`
	AzureAPIVersion string `toml:"azureApiVersion"`
}

type AIChatModelConfig struct {
	Provider        string  `toml:"provider"`
	APIKey          string  `toml:"apiKey"`
	AccessKey       string  `toml:"accessKey"`
	SecretKey       string  `toml:"secretKey"`
	BaseURL         string  `toml:"baseURL"`
	Region          string  `toml:"region"`
	Model           string  `toml:"model"`
	Temperature     float32 `toml:"temperature"`
	TimeoutSeconds  int     `toml:"timeoutSeconds"`
	RetryTimes      int     `toml:"retryTimes"`
	ByAzure         bool    `toml:"byAzure"`
	AzureAPIVersion string  `toml:"azureApiVersion"`
}

// AICacheConfig 缓存配置
type AICacheConfig struct {
	EmbeddingSize       int `toml:"embeddingSize"`       // 嵌入 LRU 容量，<=0 关闭
	CompletionTTLSecond int `toml:"completionTTLSecond"` // LLM 插件结果缓存 TTL
}

// AIRetrievalConfig 召回配置
type AIRetrievalConfig struct {
	DefaultTopK         int `toml:"defaultTopK"`
	MaxTopK             int `toml:"maxTopK"`
	MaxResearchPerOwner int `toml:"maxResearchPerOwner"` // 每个 owner 最多保留的研究问题数，0 表示不限
	MaxQuestionsPerRun  int `toml:"maxQuestionsPerRun"`
	NoteChunkSize       int `toml:"noteChunkSize"`
	NoteChunkOverlap    int `toml:"noteChunkOverlap"`
}

// AIResilienceConfig 外部调用的并发上限、超时与重试
type AIResilienceConfig struct {
	MaxConcurrent    int64 `toml:"maxConcurrent"`
	TimeoutSeconds   int   `toml:"timeoutSeconds"`
	InitialBackoffMs int   `toml:"initialBackoffMs"`
	MaxRetries       int   `toml:"maxRetries"`
}

type AIConfig struct {
	Embedding  AIEmbeddingConfig  `toml:"embedding"`
	ChatModel  AIChatModelConfig  `toml:"chatModel"`
	Cache      AICacheConfig      `toml:"cache"`
	Retrieval  AIRetrievalConfig  `toml:"retrieval"`
	Resilience AIResilienceConfig `toml:"resilience"`
}

// MCPConfig MCP 工具服务配置
type MCPConfig struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
	Version string `toml:"version"`
	Path    string `toml:"path"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type Config struct {
	MainConfig        `toml:"mainConfig"`
	MysqlConfig       `toml:"mysqlConfig"`
	JwtConfig         `toml:"jwtConfig"`
	VectorStoreConfig `toml:"vectorStoreConfig"`
	MilvusConfig      `toml:"milvusConfig"`
	QdrantConfig      `toml:"qdrantConfig"`
	KafkaConfig       `toml:"kafkaConfig"`
	AIConfig          `toml:"aiConfig"`
	LogConfig         `toml:"logConfig"`
	MCPConfig         `toml:"mcpConfig"`
	MetricsConfig     `toml:"metricsConfig"`
	RedisConfig       `toml:"redisConfig"`
}

var (
	config *Config
	mu     sync.Mutex
)

// Load 从指定路径解析配置并补齐默认值
func Load(path string) (*Config, error) {
	c := new(Config)
	if strings.TrimSpace(path) == "" {
		path = DefaultConfigPath
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		c.ApplyDefaults()
		return c, err
	}
	c.ApplyDefaults()
	return c, nil
}

// LoadConfig 加载配置并设置为全局配置
func LoadConfig(path string) error {
	c, err := Load(path)
	if err != nil {
		log.Printf("加载配置文件失败: %v, 使用默认设置", err)
	}
	SetConfig(c)
	return err
}

// SetConfig 替换全局配置（测试与 CLI 使用）
func SetConfig(c *Config) {
	mu.Lock()
	defer mu.Unlock()
	config = c
}

func GetConfig() *Config {
	mu.Lock()
	if config != nil {
		c := config
		mu.Unlock()
		return c
	}
	mu.Unlock()
	_ = LoadConfig(DefaultConfigPath)
	mu.Lock()
	defer mu.Unlock()
	return config
}

// ApplyDefaults 为未配置的字段填充默认值
func (c *Config) ApplyDefaults() {
	if c.AppName == "" {
		c.AppName = "marketmind"
	}
	if c.MainConfig.Host == "" {
		c.MainConfig.Host = "0.0.0.0"
	}
	if c.MainConfig.Port == 0 {
		c.MainConfig.Port = 8000
	}
	if c.JwtConfig.ExpireMinutes <= 0 {
		c.JwtConfig.ExpireMinutes = 30
	}
	if c.JwtConfig.CookieName == "" {
		c.JwtConfig.CookieName = "access_token"
	}
	if c.VectorStoreConfig.Backend == "" {
		c.VectorStoreConfig.Backend = "milvus"
	}
	if c.MilvusConfig.DBName == "" {
		c.MilvusConfig.DBName = "marketmind"
	}
	if c.MilvusConfig.CollectionName == "" {
		c.MilvusConfig.CollectionName = "marketing_data"
	}
	if c.MilvusConfig.VectorDim <= 0 {
		c.MilvusConfig.VectorDim = 768
	}
	if c.MilvusConfig.MetricType == "" {
		c.MilvusConfig.MetricType = "COSINE"
	}
	if c.QdrantConfig.Port == 0 {
		c.QdrantConfig.Port = 6334
	}
	if c.QdrantConfig.CollectionName == "" {
		c.QdrantConfig.CollectionName = "marketing_data"
	}
	if c.KafkaConfig.IngestTopic == "" {
		c.KafkaConfig.IngestTopic = "marketmind.profile.ingest"
	}
	if c.KafkaConfig.ConsumerGroupID == "" {
		c.KafkaConfig.ConsumerGroupID = "marketmind-ingest"
	}
	if c.AIConfig.Cache.EmbeddingSize == 0 {
		c.AIConfig.Cache.EmbeddingSize = 2048
	}
	if c.AIConfig.Cache.CompletionTTLSecond <= 0 {
		c.AIConfig.Cache.CompletionTTLSecond = 1800
	}
	if c.AIConfig.Retrieval.DefaultTopK <= 0 {
		c.AIConfig.Retrieval.DefaultTopK = 5
	}
	if c.AIConfig.Retrieval.MaxTopK <= 0 {
		c.AIConfig.Retrieval.MaxTopK = 50
	}
	if c.AIConfig.Retrieval.MaxQuestionsPerRun <= 0 {
		c.AIConfig.Retrieval.MaxQuestionsPerRun = 12
	}
	if c.AIConfig.Retrieval.NoteChunkSize <= 0 {
		c.AIConfig.Retrieval.NoteChunkSize = 800
	}
	if c.AIConfig.Retrieval.NoteChunkOverlap < 0 {
		c.AIConfig.Retrieval.NoteChunkOverlap = 0
	}
	if c.AIConfig.Resilience.MaxConcurrent <= 0 {
		c.AIConfig.Resilience.MaxConcurrent = 8
	}
	if c.AIConfig.Resilience.TimeoutSeconds <= 0 {
		c.AIConfig.Resilience.TimeoutSeconds = 30
	}
	if c.AIConfig.Resilience.InitialBackoffMs <= 0 {
		c.AIConfig.Resilience.InitialBackoffMs = 200
	}
	if c.AIConfig.Resilience.MaxRetries <= 0 {
		c.AIConfig.Resilience.MaxRetries = 1
	}
	if c.MCPConfig.Name == "" {
		c.MCPConfig.Name = "marketmind"
	}
	if c.MCPConfig.Version == "" {
		c.MCPConfig.Version = "1.0.0"
	}
	if c.MCPConfig.Path == "" {
		c.MCPConfig.Path = "/mcp"
	}
	if c.MetricsConfig.Path == "" {
		c.MetricsConfig.Path = "/metrics"
	}
}
