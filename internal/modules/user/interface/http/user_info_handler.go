package handler

import (
	"net/http"
	"time"

	"MarketMind/internal/config"
	"MarketMind/internal/modules/user/application/dto/request"
	"MarketMind/internal/modules/user/application/service"
	"MarketMind/pkg/back"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserInfoHandler struct {
	svc service.UserInfoService
}

func NewUserInfoHandler(svc service.UserInfoService) *UserInfoHandler {
	return &UserInfoHandler{svc: svc}
}

// Login 成功后 token 同时写入 body 与 cookie
func (h *UserInfoHandler) Login(c *gin.Context) {
	var loginReq request.LoginRequest
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		zlog.Warn("login bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.Login(c.Request.Context(), loginReq)
	if err == nil {
		setTokenCookie(c, data.Token, data.ExpiresAt)
	}
	back.Result(c, data, err)
}

func (h *UserInfoHandler) Register(c *gin.Context) {
	var registerReq request.RegisterRequest
	if err := c.ShouldBindJSON(&registerReq); err != nil {
		zlog.Warn("register bind failed", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}
	data, err := h.svc.Register(c.Request.Context(), registerReq)
	back.Result(c, data, err)
}

func setTokenCookie(c *gin.Context, token, expiresAt string) {
	conf := config.GetConfig()
	maxAge := conf.JwtConfig.ExpireMinutes * 60
	if t, err := time.Parse(time.RFC3339, expiresAt); err == nil {
		maxAge = int(time.Until(t).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(conf.JwtConfig.CookieName, token, maxAge, "/", "", conf.MainConfig.SSLRedirect, true)
}
