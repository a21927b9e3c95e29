package handlers

import (
	"context"
	"strings"

	aiRequest "MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/service"
	"MarketMind/pkg/zlog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// MetadataToolHandler metadata_extract 工具
type MetadataToolHandler struct {
	metadataSvc service.MetadataService
}

func NewMetadataToolHandler(metadataSvc service.MetadataService) *MetadataToolHandler {
	return &MetadataToolHandler{metadataSvc: metadataSvc}
}

func (h *MetadataToolHandler) RegisterTools(s *server.MCPServer) {
	tool := mcp.NewTool("metadata_extract",
		mcp.WithDescription("Classify free text into industry, type, topic and tone; status is needs_clarification when a field is still missing"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to classify")),
		mcp.WithObject("supplied", mcp.Description("Field values supplied by the user, overriding the model")),
	)
	s.AddTool(tool, h.handleExtract)
}

func (h *MetadataToolHandler) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := argsOf(request)
	if !ok {
		return mcp.NewToolResultError("invalid arguments format, expected map"), nil
	}
	text, _ := args["text"].(string)
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	ownerID := ownerFromContext(ctx)

	res, err := h.metadataSvc.Extract(ctx, aiRequest.ExtractMetadataRequest{Text: text, Supplied: stringMapArg(args, "supplied")}, ownerID)
	if err != nil {
		zlog.Warn("mcp metadata_extract failed", zap.Int64("owner_id", ownerID), zap.Error(err))
		return errorResult(err), nil
	}
	return jsonResult(res)
}
