package main

import (
	"github.com/OFFIS-RIT/relex/internal/server"
	"github.com/OFFIS-RIT/relex/internal/util"
	"github.com/OFFIS-RIT/relex/pkg/logger"
	"github.com/OFFIS-RIT/relex/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Prefix: "server",
		Format: util.GetEnvString("LOG_FORMAT", "text"),
	})
	logger.Init(consoleLogger)

	server.Init()
}
