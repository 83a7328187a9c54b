package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FluidspaceWeb/development-server/internal/config"
	"github.com/FluidspaceWeb/development-server/internal/server"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the development server",
		Long:  `Start the module development server and its integration credential API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connectCancel()

	deps, err := BuildServerDependencies(connectCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build server dependencies")
	}

	defer func() {
		if err := deps.MongoClient.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("MongoDB disconnect failed")
		}
		if err := deps.RedisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Redis close failed")
		}
	}()

	app := server.NewHTTPServer(server.HTTPServerDependencies{
		IntegrationController: deps.IntegrationController,
		IDCodec:               deps.IDCodec,
	})

	log.Info().Str("address", cfg.HTTPAddress).Msg("Starting development server")

	if err := app.Listen(cfg.HTTPAddress, fiber.ListenConfig{
		GracefulContext:       ctx,
		DisableStartupMessage: true,
	}); err != nil {
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}

	log.Info().Msg("Development server stopped")
	return nil
}
