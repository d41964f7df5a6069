package main

import (
	"github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/services"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the EZFOIA API server",
	Long: `Start the HTTP API and its background workers.

Configuration is read from the environment (and .env when present). The
metrics server listens on PROMETHEUS_PORT, the API on HTTP_PORT.`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, err := context.NewCtx(
		&services.RedisService{},
		&services.PostgresService{},
		&services.MinIOService{},
		&services.JWTService{},
		&services.MonitoringService{},
		&services.RateLimitService{},

		&services.EmailService{},
		&services.TwilioService{},
		&services.BillingService{},
		&services.DraftingService{},
		&services.NotificationService{},
		&services.StatusListenerService{},

		&services.SubmissionService{},
		&services.FoiaService{},
		&services.ProfileService{},
		&services.DocumentService{},
		&services.ChatService{},

		&services.AuthMiddleware{},
		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure services")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
		return
	}
}
