package http

import (
	"MarketMind/internal/config"
	"MarketMind/internal/initial"
	jwtMiddleware "MarketMind/internal/middleware/jwt"
	aiService "MarketMind/internal/modules/ai/application/service"
	mcpServer "MarketMind/internal/modules/ai/infrastructure/mcp/server"
	"MarketMind/internal/modules/ai/infrastructure/mq"
	aiPersistence "MarketMind/internal/modules/ai/infrastructure/persistence"
	"MarketMind/internal/modules/ai/infrastructure/queue"
	aiHandler "MarketMind/internal/modules/ai/interface/http"
	"MarketMind/internal/modules/user/application/service"
	"MarketMind/internal/modules/user/infrastructure/persistence"
	userHandler "MarketMind/internal/modules/user/interface/http"
	"MarketMind/pkg/ssl"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies serve 命令装配好的外部资源
type Dependencies struct {
	DB        *gorm.DB
	AI        *initial.AIComponents
	Publisher mq.Publisher // 为 nil 时画像写入同步执行
}

// NewRouter 注册全部路由；/register /login 与 /metrics 之外都需要 JWT
func NewRouter(conf *config.Config, deps Dependencies) *gin.Engine {
	ge := gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Mcp-Session-Id"}
	ge.Use(cors.New(corsConfig))
	ge.Use(ssl.SecureHandler(conf.MainConfig.Host, conf.MainConfig.Port, conf.MainConfig.SSLRedirect))

	ai := deps.AI
	userRepo := persistence.NewUserInfoRepository(deps.DB)
	profileRepo := aiPersistence.NewBusinessProfileRepository(deps.DB)
	eventRepo := aiPersistence.NewIngestEventRepository(deps.DB)
	// 同步路径复用 worker 的事件处理逻辑
	inlineProcessor := queue.NewIngestConsumerWorker(nil, eventRepo, profileRepo, ai.Ingest, ai.Store)

	retrieval := conf.AIConfig.Retrieval
	userSvc := service.NewUserInfoService(userRepo)
	ingestSvc := aiService.NewIngestService(ai.Ingest, ai.Splitter, ai.Store, ai.Metrics)
	retrieveSvc := aiService.NewRetrieveService(ai.Retrieve, ai.Metrics)
	metadataSvc := aiService.NewMetadataService(ai.Completion)
	researchSvc := aiService.NewResearchService(ai.Retrieve, profileRepo, ai.Completion, ai.Ingest, ai.Store, ai.Locker, aiService.ResearchOptions{
		MaxQuestionsPerRun:  retrieval.MaxQuestionsPerRun,
		MaxResearchPerOwner: retrieval.MaxResearchPerOwner,
	})
	contentSvc := aiService.NewContentService(ai.Retrieve, ai.Completion)
	profileSvc := aiService.NewProfileService(profileRepo, eventRepo, deps.Publisher, conf.KafkaConfig.IngestTopic, inlineProcessor)

	userH := userHandler.NewUserInfoHandler(userSvc)
	ragH := aiHandler.NewRAGHandler(ingestSvc, retrieveSvc)
	assistantH := aiHandler.NewAssistantHandler(profileSvc, metadataSvc, researchSvc, contentSvc)

	ge.POST("/register", userH.Register)
	ge.POST("/login", userH.Login)
	if conf.MetricsConfig.Enabled {
		ge.GET(conf.MetricsConfig.Path, gin.WrapH(ai.Metrics.Handler()))
	}

	authed := ge.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.GET("/auth/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"user_id":  jwtMiddleware.UserID(c),
			"username": c.GetString(jwtMiddleware.CtxUsername),
		})
	})

	aiGroup := authed.Group("/ai")
	aiGroup.POST("/rag/ingest", ragH.Ingest)
	aiGroup.POST("/rag/retrieve", ragH.Retrieve)
	aiGroup.POST("/rag/notes", ragH.Notes)
	aiGroup.DELETE("/rag/records", ragH.DeleteRecords)
	aiGroup.PUT("/profile", assistantH.PutProfile)
	aiGroup.GET("/profile", assistantH.GetProfile)
	aiGroup.POST("/metadata/extract", assistantH.ExtractMetadata)
	aiGroup.POST("/research/generate", assistantH.GenerateResearch)
	aiGroup.POST("/content/generate", assistantH.GenerateContent)

	if conf.MCPConfig.Enabled {
		mcpConf := mcpServer.ServerConfig{
			Name:    conf.MCPConfig.Name,
			Version: conf.MCPConfig.Version,
			Path:    conf.MCPConfig.Path,
		}
		s := mcpServer.NewMCPServer(mcpConf, mcpServer.ServerDependencies{
			IngestSvc:   ingestSvc,
			RetrieveSvc: retrieveSvc,
			MetadataSvc: metadataSvc,
		})
		authed.Any(conf.MCPConfig.Path, gin.WrapH(mcpServer.NewHTTPHandler(s, mcpConf)))
	}

	return ge
}
