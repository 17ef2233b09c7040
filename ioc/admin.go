package ioc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"excel2dataverse/internal/admin"
	"excel2dataverse/internal/app"
	"excel2dataverse/internal/configstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitConfigStore 构建配置列表存储。
func InitConfigStore(cfg app.Config, logger *zap.Logger) *configstore.Store {
	return configstore.NewStore(cfg.Admin.ConfigDir, logger)
}

// InitSessionStore 按 admin.session_store 选择内存或 Redis 会话存储。
func InitSessionStore(cfg app.Config) (admin.SessionStore, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Admin.SessionStore)) {
	case "", "memory":
		return admin.NewMemoryStore(nil), func() {}, nil
	case "redis":
		rc := cfg.Admin.Redis
		if rc.Addr == "" {
			return nil, nil, fmt.Errorf("admin.redis.addr 不能为空")
		}
		client := redis.NewClient(&redis.Options{
			Addr:         rc.Addr,
			Password:     rc.Password,
			DB:           rc.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("连接 Redis 会话存储失败: %w", err)
		}
		return admin.NewRedisStore(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("未知的 admin.session_store: %s", cfg.Admin.SessionStore)
	}
}

// InitVerifier 从 admin.password_hash 构建 bcrypt 校验器。
func InitVerifier(cfg app.Config) (admin.Verifier, error) {
	return admin.NewBcryptVerifier(cfg.Admin.PasswordHash)
}

// InitSigner 构建会话 cookie 签名器。
func InitSigner(cfg app.Config) (*admin.Signer, error) {
	return admin.NewSigner(cfg.Admin.SessionSecret, nil)
}

// InitAdminHandler 构建后台 HTTP 处理器。
func InitAdminHandler(cfg app.Config, lists *configstore.Store, sessions admin.SessionStore, verifier admin.Verifier, signer *admin.Signer, logger *zap.Logger) (*admin.Handler, error) {
	return admin.NewHandler(lists, sessions, verifier, signer, admin.Options{
		SessionTTL:   time.Duration(cfg.Admin.SessionTTLMinutes) * time.Minute,
		SecureCookie: cfg.Admin.SecureCookie,
	}, logger)
}
