package main

import (
	"context"
	"os"

	"github.com/ezfoia/foia_api/seed/seeders"
	"github.com/ezfoia/foia_api/services"
	"github.com/ezfoia/foia_api/shared"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	seedType     string
	seedAccounts seeders.Accounts
	seedTokens   bool
	seedNoMinio  bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample requests, documents and an admin account",
	Long: `Seed writes development data: a profile and one request per status for
the demo user, a released document for the completed request, and the admin
role for the admin account. Existing rows are left alone.

Examples:
  # Seed everything
  ./foia_api seed --user-id 2b6f... --admin-id 91c0...

  # Only grant the admin role
  ./foia_api seed --type admin --admin-id 91c0...

  # Also print signed development tokens (needs SUPABASE_JWT_SECRET)
  ./foia_api seed --user-id 2b6f... --tokens`,
	Run: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVarP(&seedType, "type", "t", "all", "What to seed: all, requests, documents, admin")
	seedCmd.Flags().StringVar(&seedAccounts.UserID, "user-id", os.Getenv("SEED_USER_ID"), "Demo user ID (token subject)")
	seedCmd.Flags().StringVar(&seedAccounts.UserEmail, "email", "demo@ezfoia.com", "Demo user email")
	seedCmd.Flags().StringVar(&seedAccounts.AdminID, "admin-id", os.Getenv("SEED_ADMIN_ID"), "Admin user ID (token subject)")
	seedCmd.Flags().StringVar(&seedAccounts.AdminEmail, "admin-email", "admin@ezfoia.com", "Admin email")
	seedCmd.Flags().BoolVar(&seedTokens, "tokens", false, "Print signed development tokens for the seeded accounts")
	seedCmd.Flags().BoolVar(&seedNoMinio, "no-minio", false, "Skip object storage and document seeding")
}

func runSeed(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	pg := services.NewPostgresService(services.DatabaseURL())
	if err := pg.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Shutdown()

	var objects seeders.ObjectUploader
	if !seedNoMinio {
		minioSvc := services.NewMinIOServiceFromEnv()
		if err := minioSvc.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to object storage")
		}
		objects = minioSvc
	}

	seeder := seeders.NewMainSeeder(pg.Requests(), pg.Profiles(), objects, seedAccounts)

	var err error
	switch seedType {
	case "all":
		err = seeder.SeedAll(ctx)
	case "requests":
		err = seeder.SeedRequestsOnly()
	case "documents":
		err = seeder.SeedDocumentsOnly(ctx)
	case "admin":
		err = seeder.SeedAdminOnly()
	default:
		log.Fatal().Str("type", seedType).Msg("Unknown seed type. Use 'all', 'requests', 'documents' or 'admin'")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	if seedTokens {
		printTokens()
	}
	log.Info().Msg("Seeding operation completed successfully")
}

func printTokens() {
	jwtSvc := services.NewJWTService(os.Getenv("SUPABASE_JWT_SECRET"))

	for _, account := range []struct {
		role, id, email string
	}{
		{"user", seedAccounts.UserID, seedAccounts.UserEmail},
		{shared.RoleAdmin, seedAccounts.AdminID, seedAccounts.AdminEmail},
	} {
		if account.id == "" {
			continue
		}
		token, err := jwtSvc.ToJWT(account.id, account.email)
		if err != nil {
			log.Error().Err(err).Str("account", account.role).Msg("Could not sign development token")
			continue
		}
		log.Info().Str("account", account.role).Str("user_id", account.id).Str("token", token).Msg("Development token")
	}
}
