package models

import (
	"log"
	"os"
	"path/filepath"

	"github.com/GrainArc/IndoorMap/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// 是否连接的PostGIS库, 坐标转换依赖ST_Transform
var isPostgres bool

func HasPostgres() bool {
	return DB != nil && isPostgres
}

// InitDB 配置了DSN时连PostGIS, 否则本地SQLite兜底
func InitDB() {
	var err error
	if config.DSN != "" {
		DB, err = gorm.Open(postgres.Open(config.DSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		isPostgres = true
	} else {
		if err := os.MkdirAll(config.MainConfig.Download, os.ModePerm); err != nil {
			log.Fatalf("创建存储目录失败: %v", err)
		}
		dbPath := filepath.Join(config.MainConfig.Download, "sessions.db")
		DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			log.Fatalf("Failed to open session database: %v", err)
		}
	}

	// 设置命名策略
	DB.NamingStrategy = schema.NamingStrategy{
		SingularTable: true,
	}

	if err := DB.AutoMigrate(&SessionRow{}); err != nil {
		log.Printf("Failed to migrate tables: %v", err)
	}
}
