package ioc

import (
	"excel2dataverse/internal/admin"
	"excel2dataverse/internal/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// InitGinEngine 构建 gin 引擎。
func InitGinEngine(adminHandler *admin.Handler, logger *zap.Logger) *gin.Engine {
	return router.NewEngine(adminHandler, logger)
}
