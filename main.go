package main

import (
	_ "decoyd/cmd"
	"decoyd/cmd/root"
	"decoyd/internal/logger"
	"os"
)

func main() {
	// Commands that want file logging re-initialize the logger after
	// loading their runtime configuration.
	logger.InitDefault()

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
