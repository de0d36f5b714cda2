package resource

import (
	"sync"

	"gorm.io/gorm"

	"merge-service/ddd/infrastructure/database/po"
	"merge-service/pkg/assert"
	"merge-service/pkg/config"
	"merge-service/pkg/logger"
	"merge-service/pkg/manager"
	"merge-service/pkg/repository"
)

var (
	mysqlResourceOnce      sync.Once
	singletonMysqlResource *MysqlResource
)

// MysqlResource MySQL资源管理器
type MysqlResource struct {
	database *repository.Database
}

// DefaultMysqlResource 获取MySQL资源单例
func DefaultMysqlResource() *MysqlResource {
	assert.NotCircular()
	mysqlResourceOnce.Do(func() {
		singletonMysqlResource = &MysqlResource{}
	})
	assert.NotNil(singletonMysqlResource)
	return singletonMysqlResource
}

// MustOpen 初始化MySQL连接并迁移表结构
func (r *MysqlResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized")
	}

	database, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		panic("failed to connect mysql: " + err.Error())
	}
	r.database = database

	if err := r.database.Self.AutoMigrate(
		&po.UploadSessionPO{},
		&po.MergeSessionPO{},
	); err != nil {
		panic("failed to migrate database: " + err.Error())
	}

	logger.Info("MySQL resource opened", map[string]interface{}{
		"host": cfg.Database.Host,
		"name": cfg.Database.Database,
	})
}

// MainDB 获取主库连接
func (r *MysqlResource) MainDB() *gorm.DB {
	assert.NotNil(r.database)
	return r.database.Self
}

// Close 关闭MySQL连接
func (r *MysqlResource) Close() {
	if r.database != nil {
		if err := r.database.Close(); err != nil {
			logger.Warnf("close mysql failed error=%s", err.Error())
		}
	}
}

// MySqlResourcePlugin MySQL资源插件
type MySqlResourcePlugin struct{}

func (p *MySqlResourcePlugin) Name() string {
	return "mysql"
}

func (p *MySqlResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultMysqlResource()
}
