package server

import (
	"time"

	"github.com/FluidspaceWeb/development-server/internal/controllers"
	"github.com/FluidspaceWeb/development-server/internal/domain"
	"github.com/FluidspaceWeb/development-server/internal/middlewares"
	"github.com/FluidspaceWeb/development-server/internal/version"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

type HTTPServerDependencies struct {
	IntegrationController *controllers.IntegrationController
	IDCodec               domain.IDCodec
}

func NewHTTPServer(deps HTTPServerDependencies) *fiber.App {
	router := fiber.New(fiber.Config{
		AppName: "fluidspace-development-server",
	})

	router.Use(cors.New())
	router.Use(requestid.New())
	router.Use(logger.New())

	// Health check endpoint (no module credentials required)
	router.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":    "healthy",
			"service":   "fluidspace-development-server",
			"version":   version.Get(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	integration := router.Group("/api/integration")
	integration.Use(middlewares.ModuleAuthMiddleware(deps.IDCodec))
	integration.Use(middlewares.SessionMiddleware())

	integration.Post("/getAuthProviderConfig", deps.IntegrationController.GetAuthProviderConfig)
	integration.Post("/addAccount", deps.IntegrationController.AddAccount)
	integration.Post("/getAccounts", deps.IntegrationController.GetAccounts)
	integration.Post("/deleteAccount", deps.IntegrationController.DeleteAccount)
	integration.Get("/getRequestCredentials", deps.IntegrationController.GetRequestCredentials)
	integration.Post("/makeRequest", deps.IntegrationController.MakeRequest)

	return router
}
