package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"excel2dataverse/internal/dataverse"
	"excel2dataverse/internal/loader"
	"excel2dataverse/internal/sheet"
	"excel2dataverse/internal/transform"
	"go.uber.org/zap"
)

// Service 负责装配迁移流程并提供统一入口。
type Service struct {
	cfg       Config
	client    dataverse.Client
	errLog    *loader.ErrorLog
	Migration *MigrationFlow
	logger    *zap.Logger
}

// NewDataverseClient 按配置构建带 client credentials 令牌缓存的 Dataverse 客户端。
func NewDataverseClient(cfg Config) (*dataverse.HTTPClient, error) {
	dv := cfg.Dataverse
	if dv.Authority == "" {
		return nil, errors.New("dataverse authority 或 tenant_id 必须配置")
	}
	timeout := time.Duration(dv.TimeoutSeconds) * time.Second
	ts, err := dataverse.NewClientCredentialsTokenSource(dataverse.ClientCredentialsConfig{
		Authority:    dv.Authority,
		ClientID:     dv.ClientID,
		ClientSecret: dv.ClientSecret,
		Resource:     dv.Resource,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 token source 失败: %w", err)
	}
	return dataverse.NewHTTPClient(dataverse.HTTPConfig{
		Resource:    dv.Resource,
		APIVersion:  dv.APIVersion,
		TokenSource: ts,
		Timeout:     timeout,
	})
}

// NewService 根据配置构建 Service。
func NewService(cfg Config, client dataverse.Client, logger *zap.Logger) (*Service, error) {
	if client == nil {
		return nil, errors.New("必须提供 dataverse client")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	errLog := loader.NewErrorLog(cfg.Migration.ErrorLog)
	recordLoader := loader.NewRecordLoader(client, errLog, loader.Options{
		Workers:  cfg.Migration.ParallelWorkers,
		Attempts: cfg.Migration.Retry.Attempts,
		Backoff:  time.Duration(cfg.Migration.Retry.BackoffSeconds) * time.Second,
	}, logger)

	flow := &MigrationFlow{
		Mappings: cfg.Mappings(),
		Read:     sheet.ReadFile,
		Cleaners: transform.DefaultRegistry(),
		Loader:   recordLoader,
		ErrorLog: errLog,
		Logger:   logger,
	}
	return &Service{
		cfg:       cfg,
		client:    client,
		errLog:    errLog,
		Migration: flow,
		logger:    logger,
	}, nil
}

// Migrate 执行一次迁移。
func (s *Service) Migrate(ctx context.Context) (Report, error) {
	if s.Migration == nil {
		return Report{}, errors.New("未初始化 migration flow")
	}
	return s.Migration.Run(ctx)
}

// ErrorLogPath 返回错误日志路径。
func (s *Service) ErrorLogPath() string {
	return s.errLog.Path()
}

// Close 释放资源。
func (s *Service) Close() error {
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return s.errLog.Close()
}
