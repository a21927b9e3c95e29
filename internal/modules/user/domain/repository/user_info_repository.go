package repository

import (
	"context"

	"MarketMind/internal/modules/user/domain/entity"
)

// UserInfoRepository 接口定义
type UserInfoRepository interface {
	CreateUserInfo(ctx context.Context, user *entity.UserInfo) error
	GetUserInfoById(ctx context.Context, id int64) (*entity.UserInfo, error)
	// GetUserInfoByUsername 不存在时返回 (nil, nil)
	GetUserInfoByUsername(ctx context.Context, username string) (*entity.UserInfo, error)
}
