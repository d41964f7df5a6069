package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// @title EZFOIA API
// @version 1.0
// @description Backend for drafting, paying for and tracking Freedom of Information Act requests.
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

var rootCmd = &cobra.Command{
	Use:   "foia_api",
	Short: "EZFOIA backend",
	Long: `EZFOIA backend: drafts FOIA requests with an AI gateway, takes payment
through Stripe, tracks request status and notifies requesters.

Running without a subcommand starts the HTTP server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Warn().Msg("No .env file found, using system environment variables")
		}
		configureLogging(os.Getenv("LOG_LEVEL"))
	},
	Run: runServe,
}

func configureLogging(level string) {
	switch level {
	case "TRACE":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
