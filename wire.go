//go:build wireinject

package main

import (
	"excel2dataverse/ioc"
	"excel2dataverse/pkg/server"
	"github.com/google/wire"
)

func InitApp() (*server.HTTPServer, func(), error) {
	panic(wire.Build(
		ioc.InitConfig,
		ioc.InitLogger,
		ioc.InitConfigStore,
		ioc.InitSessionStore,
		ioc.InitVerifier,
		ioc.InitSigner,
		ioc.InitAdminHandler,
		ioc.InitGinEngine,
		ioc.InitScheduler,
		server.NewHTTPServer,
	))
}
