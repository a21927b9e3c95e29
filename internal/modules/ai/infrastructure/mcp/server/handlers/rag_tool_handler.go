package handlers

import (
	"context"

	aiRequest "MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/service"
	"MarketMind/pkg/zlog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// RAGToolHandler rag_retrieve / rag_ingest 工具
type RAGToolHandler struct {
	ingestSvc   service.IngestService
	retrieveSvc service.RetrieveService
}

func NewRAGToolHandler(ingestSvc service.IngestService, retrieveSvc service.RetrieveService) *RAGToolHandler {
	return &RAGToolHandler{ingestSvc: ingestSvc, retrieveSvc: retrieveSvc}
}

// RegisterTools 注册到 Server
func (h *RAGToolHandler) RegisterTools(s *server.MCPServer) {
	retrieveTool := mcp.NewTool("rag_retrieve",
		mcp.WithDescription("Return the caller's business profile plus the research records most similar to the query"),
		mcp.WithString("query", mcp.Description("Free text query; empty returns only the business profile")),
		mcp.WithNumber("top_k", mcp.Description("Number of research records to return (default 5, max 50)")),
	)
	s.AddTool(retrieveTool, h.handleRetrieve)

	ingestTool := mcp.NewTool("rag_ingest",
		mcp.WithDescription("Store named text fields for the caller, one vector record per non-empty field"),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Map of field name to text, e.g. {\"Company Name\": \"Acme\"}")),
		mcp.WithObject("metadata", mcp.Description("Extra metadata copied into every record")),
	)
	s.AddTool(ingestTool, h.handleIngest)
}

func (h *RAGToolHandler) handleRetrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := argsOf(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format, expected map"), nil
	}
	query, _ := args["query"].(string)
	ownerID := ownerFromContext(ctx)

	res, err := h.retrieveSvc.Retrieve(ctx, aiRequest.RAGRetrieveRequest{Query: query, TopK: intArg(args, "top_k")}, ownerID)
	if err != nil {
		zlog.Warn("mcp rag_retrieve failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		return errorResult(err), nil
	}
	return jsonResult(res)
}

func (h *RAGToolHandler) handleIngest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := argsOf(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format, expected map"), nil
	}
	fields := stringMapArg(args, "fields")
	if len(fields) == 0 {
		return mcp.NewToolResultError("fields is required"), nil
	}
	meta, _ := args["metadata"].(map[string]interface{})
	ownerID := ownerFromContext(ctx)

	res, err := h.ingestSvc.Ingest(ctx, aiRequest.RAGIngestRequest{Fields: fields, Metadata: meta}, ownerID)
	if err != nil {
		zlog.Warn("mcp rag_ingest failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		return errorResult(err), nil
	}
	return jsonResult(res)
}
