package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"MarketMind/pkg/util/myjwt"
	"MarketMind/pkg/xerr"

	"github.com/mark3labs/mcp-go/mcp"
)

// ownerFromContext 工具调用的 owner 只取自 JWT，不接受参数传入
func ownerFromContext(ctx context.Context) int64 {
	claims := myjwt.ClaimsFromContext(ctx)
	if claims == nil {
		return 0
	}
	return claims.UserID
}

func argsOf(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("encode result failed"), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// errorResult 业务错误以工具错误返回给调用方，不中断 MCP 会话
func errorResult(err error) *mcp.CallToolResult {
	var ce *xerr.CodeError
	if errors.As(err, &ce) {
		return mcp.NewToolResultError(ce.Message)
	}
	return mcp.NewToolResultError(xerr.ErrServerError.Message)
}

func intArg(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func stringMapArg(args map[string]interface{}, key string) map[string]string {
	raw, ok := args[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
