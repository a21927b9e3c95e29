package http

import (
	"errors"
	"io"

	aiRequest "MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/service"
	"MarketMind/internal/middleware/jwt"
	"MarketMind/pkg/back"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RAGHandler 向量写入 / 召回 / 删除
type RAGHandler struct {
	ingestSvc   service.IngestService
	retrieveSvc service.RetrieveService
}

func NewRAGHandler(ingestSvc service.IngestService, retrieveSvc service.RetrieveService) *RAGHandler {
	return &RAGHandler{ingestSvc: ingestSvc, retrieveSvc: retrieveSvc}
}

// Ingest 路由: POST /ai/rag/ingest
func (h *RAGHandler) Ingest(c *gin.Context) {
	var req aiRequest.RAGIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("rag ingest bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.ingestSvc.Ingest(c.Request.Context(), req, jwt.UserID(c))
	back.Result(c, data, err)
}

// Retrieve 路由: POST /ai/rag/retrieve
//
// 请求体: RAGRetrieveRequest；query 为空时只返回核心画像
func (h *RAGHandler) Retrieve(c *gin.Context) {
	var req aiRequest.RAGRetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("rag retrieve bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.retrieveSvc.Retrieve(c.Request.Context(), req, jwt.UserID(c))
	back.Result(c, data, err)
}

// Notes 路由: POST /ai/rag/notes
func (h *RAGHandler) Notes(c *gin.Context) {
	var req aiRequest.RAGNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("rag notes bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.ingestSvc.IngestNotes(c.Request.Context(), req, jwt.UserID(c))
	back.Result(c, data, err)
}

// DeleteRecords 路由: DELETE /ai/rag/records；删除全部需显式传 {"all": true}
func (h *RAGHandler) DeleteRecords(c *gin.Context) {
	var req aiRequest.RAGDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		zlog.Warn("rag delete bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.ingestSvc.DeleteRecords(c.Request.Context(), req, jwt.UserID(c))
	back.Result(c, data, err)
}
