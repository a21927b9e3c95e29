package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"MarketMind/internal/config"
	aiRag "MarketMind/internal/modules/ai/domain/rag"
	userEntity "MarketMind/internal/modules/user/domain/entity"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGormDB 连接 MySQL，不做迁移
func NewGormDB(conf *config.Config) (*gorm.DB, error) {
	if conf == nil {
		return nil, fmt.Errorf("nil config")
	}
	m := conf.MysqlConfig
	dbName := m.DatabaseName
	if dbName == "" {
		dbName = conf.AppName
	}
	port := m.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", m.User, m.Password, m.Host, port, dbName)
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
}

// Migrate 自动建表
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userEntity.UserInfo{},
		&aiRag.BusinessProfile{},
		&aiRag.AIIngestEvent{},
	)
}
