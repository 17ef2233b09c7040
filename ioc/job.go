package ioc

import (
	"excel2dataverse/internal/admin"
	"excel2dataverse/internal/app"
	"excel2dataverse/internal/job"
	"go.uber.org/zap"
)

// InitScheduler 构建会话清理任务。
func InitScheduler(cfg app.Config, sessions admin.SessionStore, logger *zap.Logger) *job.Scheduler {
	return job.NewScheduler("session-janitor", cfg.Admin.JanitorCron, admin.PruneTask(sessions, logger), logger)
}
