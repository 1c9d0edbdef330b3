package main

import (
	"os"

	"github.com/yigit/marketday/internal/bootstrap"
	"github.com/yigit/marketday/internal/pkg/logger"
	"github.com/yigit/marketday/internal/server"
)

func main() {
	configPath := bootstrap.DefaultConfigPath
	if p := os.Getenv("MARKETDAY_CONFIG"); p != "" {
		configPath = p
	}

	srv, err := server.NewServer(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
