package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"MarketMind/internal/modules/user/application/dto/request"
	"MarketMind/internal/modules/user/application/dto/respond"
	"MarketMind/internal/modules/user/domain/entity"
	"MarketMind/internal/modules/user/domain/repository"
	"MarketMind/pkg/util/myjwt"
	"MarketMind/pkg/xerr"
	"MarketMind/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	maxUsernameLen = 64
)

// UserInfoService 接口定义 (Application Service)
type UserInfoService interface {
	Register(ctx context.Context, req request.RegisterRequest) (*respond.RegisterRespond, error)
	Login(ctx context.Context, req request.LoginRequest) (*respond.LoginRespond, error)
}

type userInfoServiceImpl struct {
	repo       repository.UserInfoRepository
	bcryptCost int
	issueToken func(userID int64, username string) (string, time.Time, error)
}

// NewUserInfoService 构造函数
func NewUserInfoService(repo repository.UserInfoRepository) UserInfoService {
	return &userInfoServiceImpl{repo: repo, bcryptCost: bcrypt.DefaultCost, issueToken: myjwt.GenerateToken}
}

func (u *userInfoServiceImpl) Register(ctx context.Context, req request.RegisterRequest) (*respond.RegisterRespond, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLen {
		return nil, xerr.New(xerr.BadRequest, "用户名不合法")
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLen {
		return nil, xerr.New(xerr.BadRequest, "密码至少 6 位")
	}

	existing, err := u.repo.GetUserInfoByUsername(ctx, username)
	if err != nil {
		zlog.Error("get user by username failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if existing != nil {
		return nil, xerr.New(xerr.Conflict, "用户已存在")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), u.bcryptCost)
	if err != nil {
		zlog.Error("hash password failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	user := &entity.UserInfo{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := u.repo.CreateUserInfo(ctx, user); err != nil {
		zlog.Error("create user failed", zap.String("username", username), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	zlog.Info("user registered", zap.Int64("user_id", user.Id), zap.String("username", username))
	return &respond.RegisterRespond{Id: user.Id, Username: user.Username}, nil
}

func (u *userInfoServiceImpl) Login(ctx context.Context, req request.LoginRequest) (*respond.LoginRespond, error) {
	username := strings.TrimSpace(req.Username)
	user, err := u.repo.GetUserInfoByUsername(ctx, username)
	if err != nil {
		zlog.Error("get user by username failed", zap.Error(err))
		return nil, xerr.ErrServerError
	}
	// 用户不存在与密码错误返回同一提示
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, xerr.New(xerr.Unauthorized, "用户名或密码错误")
	}

	token, expiresAt, err := u.issueToken(user.Id, user.Username)
	if err != nil {
		zlog.Error("generate token failed", zap.Int64("user_id", user.Id), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	return &respond.LoginRespond{
		Id:        user.Id,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	}, nil
}
