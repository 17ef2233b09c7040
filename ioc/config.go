package ioc

import (
	"os"

	"excel2dataverse/internal/app"
)

const defaultConfigPath = "configs/config.yaml"

// InitConfig 读取应用配置，CONFIG_PATH 可覆盖默认路径。
func InitConfig() (app.Config, error) {
	path := defaultConfigPath
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		path = p
	}
	return app.LoadConfig(path)
}
