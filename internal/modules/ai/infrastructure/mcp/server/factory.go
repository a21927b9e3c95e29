package server

import (
	"context"
	"net/http"

	"MarketMind/internal/modules/ai/application/service"
	mcpHandlers "MarketMind/internal/modules/ai/infrastructure/mcp/server/handlers"
	"MarketMind/pkg/util/myjwt"

	"github.com/mark3labs/mcp-go/server"
)

// ServerConfig MCP Server 配置
type ServerConfig struct {
	Name    string
	Version string
	Path    string // 默认 /mcp
}

// ServerDependencies 为 nil 的服务对应工具不注册
type ServerDependencies struct {
	IngestSvc   service.IngestService
	RetrieveSvc service.RetrieveService
	MetadataSvc service.MetadataService
}

// NewMCPServer 创建并注册 RAG 相关工具
func NewMCPServer(conf ServerConfig, deps ServerDependencies) *server.MCPServer {
	if conf.Name == "" {
		conf.Name = "marketmind"
	}
	if conf.Version == "" {
		conf.Version = "1.0.0"
	}
	s := server.NewMCPServer(
		conf.Name,
		conf.Version,
		server.WithToolCapabilities(true),
	)

	if deps.IngestSvc != nil && deps.RetrieveSvc != nil {
		mcpHandlers.NewRAGToolHandler(deps.IngestSvc, deps.RetrieveSvc).RegisterTools(s)
	}
	if deps.MetadataSvc != nil {
		mcpHandlers.NewMetadataToolHandler(deps.MetadataSvc).RegisterTools(s)
	}
	return s
}

// NewHTTPHandler streamable HTTP 传输；需挂在 JWT 中间件之后，owner 从请求上下文带入工具调用
func NewHTTPHandler(s *server.MCPServer, conf ServerConfig) http.Handler {
	path := conf.Path
	if path == "" {
		path = "/mcp"
	}
	return server.NewStreamableHTTPServer(s,
		server.WithEndpointPath(path),
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if claims := myjwt.ClaimsFromContext(r.Context()); claims != nil {
				return myjwt.WithClaims(ctx, claims)
			}
			return ctx
		}),
	)
}
