package app

import (
	"fmt"
	"os"
	"strings"

	"excel2dataverse/internal/domain"
	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Listen string `yaml:"listen"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Admin struct {
	ConfigDir         string `yaml:"config_dir"`
	PasswordHash      string `yaml:"password_hash"`
	SessionSecret     string `yaml:"session_secret"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	SessionStore      string `yaml:"session_store"`
	SecureCookie      bool   `yaml:"secure_cookie"`
	JanitorCron       string `yaml:"janitor_cron"`
	Redis             Redis  `yaml:"redis"`
}

type Dataverse struct {
	Resource       string            `yaml:"resource"`
	TenantID       string            `yaml:"tenant_id"`
	ClientID       string            `yaml:"client_id"`
	ClientSecret   string            `yaml:"client_secret"`
	Authority      string            `yaml:"authority"`
	APIVersion     string            `yaml:"api_version"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Tables         map[string]string `yaml:"tables"`
}

type Retry struct {
	Attempts       int `yaml:"attempts"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

type Migration struct {
	BaseDir         string              `yaml:"base_dir"`
	ErrorLog        string              `yaml:"error_log"`
	ParallelWorkers int                 `yaml:"parallel_workers"`
	Retry           Retry               `yaml:"retry"`
	Entities        []domain.SourceFile `yaml:"entities"`
}

type Metrics struct {
	Textfile string `yaml:"textfile"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
	Admin     Admin     `yaml:"admin"`
	Dataverse Dataverse `yaml:"dataverse"`
	Migration Migration `yaml:"migration"`
	Metrics   Metrics   `yaml:"metrics"`
}

// LoadConfig 从文件加载配置，${VAR} 形式的占位符先用环境变量展开。
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("读取配置失败: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig 解析 YAML 内容并补齐默认值。
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.HTTP.Listen) == "" {
		c.HTTP.Listen = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Admin.ConfigDir == "" {
		c.Admin.ConfigDir = "config"
	}
	if c.Admin.SessionTTLMinutes <= 0 {
		c.Admin.SessionTTLMinutes = 12 * 60
	}
	if c.Admin.SessionStore == "" {
		c.Admin.SessionStore = "memory"
	}
	if c.Admin.JanitorCron == "" {
		c.Admin.JanitorCron = "@every 15m"
	}
	if c.Dataverse.APIVersion == "" {
		c.Dataverse.APIVersion = "v9.2"
	}
	if c.Dataverse.TimeoutSeconds <= 0 {
		c.Dataverse.TimeoutSeconds = 30
	}
	if c.Dataverse.Authority == "" && c.Dataverse.TenantID != "" {
		c.Dataverse.Authority = "https://login.microsoftonline.com/" + c.Dataverse.TenantID
	}
	if c.Migration.BaseDir == "" {
		c.Migration.BaseDir = "."
	}
	if c.Migration.ErrorLog == "" {
		c.Migration.ErrorLog = "migration_errors.log"
	}
	if c.Migration.ParallelWorkers <= 0 {
		c.Migration.ParallelWorkers = 1
	}
	if c.Migration.Retry.Attempts <= 0 {
		c.Migration.Retry.Attempts = 1
	}
	if len(c.Migration.Entities) == 0 {
		c.Migration.Entities = domain.DefaultSources()
	}
}

// Mappings 根据配置构造实体映射。
func (c Config) Mappings() []domain.EntityMapping {
	return domain.BuildMappings(c.Migration.BaseDir, c.Migration.Entities, c.Dataverse.Tables)
}
