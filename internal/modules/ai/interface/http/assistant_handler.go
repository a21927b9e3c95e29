package http

import (
	aiRequest "MarketMind/internal/modules/ai/application/dto/request"
	"MarketMind/internal/modules/ai/application/service"
	"MarketMind/internal/middleware/jwt"
	"MarketMind/pkg/back"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AssistantHandler 营销助手：画像、元数据、研究、内容生成
type AssistantHandler struct {
	profileSvc  service.ProfileService
	metadataSvc service.MetadataService
	researchSvc service.ResearchService
	contentSvc  service.ContentService
}

func NewAssistantHandler(profileSvc service.ProfileService, metadataSvc service.MetadataService, researchSvc service.ResearchService, contentSvc service.ContentService) *AssistantHandler {
	return &AssistantHandler{
		profileSvc:  profileSvc,
		metadataSvc: metadataSvc,
		researchSvc: researchSvc,
		contentSvc:  contentSvc,
	}
}

// PutProfile 路由: PUT /ai/profile
func (h *AssistantHandler) PutProfile(c *gin.Context) {
	var req aiRequest.BusinessProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("profile bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.profileSvc.Upsert(c.Request.Context(), req, jwt.UserID(c))
	back.Result(c, data, err)
}

// GetProfile 路由: GET /ai/profile
func (h *AssistantHandler) GetProfile(c *gin.Context) {
	data, err := h.profileSvc.Get(c.Request.Context(), jwt.UserID(c))
	back.Result(c, data, err)
}

// ExtractMetadata 路由: POST /ai/metadata/extract
func (h *AssistantHandler) ExtractMetadata(c *gin.Context) {
	var req aiRequest.ExtractMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("metadata extract bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.metadataSvc.Extract(c.Request.Context(), req, jwt.UserID(c))
	back.Result(c, data, err)
}

// GenerateResearch 路由: POST /ai/research/generate，请求体可省略
func (h *AssistantHandler) GenerateResearch(c *gin.Context) {
	var req aiRequest.ResearchGenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			zlog.Warn("research bind failed", zap.Error(err))
			back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
			return
		}
	}
	data, err := h.researchSvc.Generate(c.Request.Context(), req, jwt.UserID(c))
	if err != nil {
		zlog.Warn("research generate failed", zap.Int64("owner_id", jwt.UserID(c)), zap.Error(err))
	}
	back.Result(c, data, err)
}

// GenerateContent 路由: POST /ai/content/generate
func (h *AssistantHandler) GenerateContent(c *gin.Context) {
	var req aiRequest.ContentGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		zlog.Warn("content bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.contentSvc.Generate(c.Request.Context(), req, jwt.UserID(c))
	back.Result(c, data, err)
}
