package main

import (
	"github.com/OFFIS-RIT/factgraph/internal/server"
	"github.com/OFFIS-RIT/factgraph/internal/util"
	"github.com/OFFIS-RIT/factgraph/pkg/logger"
	"github.com/OFFIS-RIT/factgraph/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
		JSON:  util.GetEnvString("LOG_FORMAT", "text") == "json",
	})
	logger.Init(consoleLogger)

	server.Init()
}
