// Package main runs the token wallet controller behind a local HTTP API.
package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/cmd/httpserver"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/middleware"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/configpkg"
)

func main() {
	configDir := pflag.String("config-dir", "./configs", "directory holding app.env")
	envFile := pflag.String("env-file", ".env", "optional dotenv file loaded before the config")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal().Err(err).Msg("cannot load env file")
	}

	config, err := configpkg.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.GetLogger(config)

	server, err := httpserver.New(logger, config)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	logger.Info().Str("address", config.ServerAddress).Msg("TOKEN WALLET SERVER HAS STARTED")

	err = server.Engine.Run(config.ServerAddress)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot start server")
	}
}
