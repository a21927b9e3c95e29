package handlers

import (
	"context"
	"encoding/json"
	"testing"

	aiRequest "MarketMind/internal/modules/ai/application/dto/request"
	aiRespond "MarketMind/internal/modules/ai/application/dto/respond"
	"MarketMind/pkg/util/myjwt"
	"MarketMind/pkg/xerr"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRAG struct {
	owner  int64
	fields map[string]string
	topK   int
}

func (f *fakeRAG) Ingest(ctx context.Context, req aiRequest.RAGIngestRequest, ownerID int64) (*aiRespond.RAGIngestRespond, error) {
	f.owner = ownerID
	f.fields = req.Fields
	return &aiRespond.RAGIngestRespond{OwnerID: ownerID, Stored: len(req.Fields)}, nil
}

func (f *fakeRAG) IngestNotes(ctx context.Context, req aiRequest.RAGNotesRequest, ownerID int64) (*aiRespond.RAGIngestRespond, error) {
	return nil, nil
}

func (f *fakeRAG) DeleteRecords(ctx context.Context, req aiRequest.RAGDeleteRequest, ownerID int64) (*aiRespond.RAGDeleteRespond, error) {
	return nil, nil
}

func (f *fakeRAG) Retrieve(ctx context.Context, req aiRequest.RAGRetrieveRequest, ownerID int64) (*aiRespond.RAGRetrieveRespond, error) {
	if ownerID <= 0 {
		return nil, xerr.ErrUnauthorized
	}
	f.owner = ownerID
	f.topK = req.TopK
	return &aiRespond.RAGRetrieveRespond{Query: req.Query, IsEmpty: true}, nil
}

type fakeMetadata struct {
	supplied map[string]string
}

func (f *fakeMetadata) Extract(ctx context.Context, req aiRequest.ExtractMetadataRequest, ownerID int64) (*aiRespond.MetadataRespond, error) {
	f.supplied = req.Supplied
	return &aiRespond.MetadataRespond{Status: aiRespond.MetadataStatusNeedsClarification, Missing: []string{"tone"}}, nil
}

func callReq(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func authed(owner int64) context.Context {
	return myjwt.WithClaims(context.Background(), &myjwt.CustomClaims{UserID: owner})
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestRetrieveToolUsesTokenOwner(t *testing.T) {
	f := &fakeRAG{}
	h := NewRAGToolHandler(f, f)

	res, err := h.handleRetrieve(authed(7), callReq(map[string]interface{}{"query": "skates", "top_k": float64(3)}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, int64(7), f.owner)
	assert.Equal(t, 3, f.topK)

	var out aiRespond.RAGRetrieveRespond
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "skates", out.Query)
	assert.True(t, out.IsEmpty)
}

func TestRetrieveToolWithoutTokenIsToolError(t *testing.T) {
	f := &fakeRAG{}
	h := NewRAGToolHandler(f, f)
	res, err := h.handleRetrieve(context.Background(), callReq(map[string]interface{}{"query": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, xerr.ErrUnauthorized.Message, resultText(t, res))
}

func TestIngestToolParsesFields(t *testing.T) {
	f := &fakeRAG{}
	h := NewRAGToolHandler(f, f)

	res, err := h.handleIngest(authed(7), callReq(map[string]interface{}{
		"fields": map[string]interface{}{"Company Name": "Acme", "bad": 3},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, map[string]string{"Company Name": "Acme"}, f.fields)

	res, err = h.handleIngest(authed(7), callReq(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMetadataTool(t *testing.T) {
	f := &fakeMetadata{}
	h := NewMetadataToolHandler(f)

	res, err := h.handleExtract(authed(7), callReq(map[string]interface{}{
		"text":     "launching skates",
		"supplied": map[string]interface{}{"industry": "Retail"},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, map[string]string{"industry": "Retail"}, f.supplied)
	assert.Contains(t, resultText(t, res), "needs_clarification")

	res, err = h.handleExtract(authed(7), callReq(map[string]interface{}{"text": " "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
