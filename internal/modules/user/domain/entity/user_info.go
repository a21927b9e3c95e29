package entity

import "time"

// UserInfo 登录账号；用户 ID 即向量记录的 owner_id
type UserInfo struct {
	Id           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;type:varchar(64);not null;uniqueIndex:uniq_user_info_username"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(100);not null"`
	CreatedAt    time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (UserInfo) TableName() string { return "user_info" }
