package ioc

import (
	"excel2dataverse/internal/app"
	"excel2dataverse/internal/dataverse"
	"go.uber.org/zap"
)

// InitDataverseClient 构建 Dataverse Web API 客户端。
func InitDataverseClient(cfg app.Config) (dataverse.Client, error) {
	client, err := app.NewDataverseClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// InitAppService 构建迁移服务。
func InitAppService(cfg app.Config, client dataverse.Client, logger *zap.Logger) (*app.Service, error) {
	return app.NewService(cfg, client, logger)
}
