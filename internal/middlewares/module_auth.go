package middlewares

import (
	"github.com/FluidspaceWeb/development-server/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// Module credential headers set by the embedding application's module
	// loader on every integration API call.
	HeaderModuleType = "X-Module-Type"
	HeaderModuleID   = "X-Module-Id"
	HeaderModuleFn   = "X-Module-Fn"

	moduleTypeIntegration = "integration"

	// SessionCookieName carries the login session id scoping the session
	// credential cache.
	SessionCookieName = "dev_session"

	LocalModuleID  = "module_id"
	LocalSessionID = "session_id"
)

// ModuleAuthMiddleware validates the module credential headers and decodes
// the obfuscated module id into the integration's configuration id.
func ModuleAuthMiddleware(codec domain.IDCodec) fiber.Handler {
	return func(c fiber.Ctx) error {
		moduleType := c.Get(HeaderModuleType)
		moduleID := c.Get(HeaderModuleID)
		moduleFn := c.Get(HeaderModuleFn)

		if moduleType != moduleTypeIntegration || moduleID == "" || moduleFn == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"request_status": fiber.StatusBadRequest,
				"message":        "Invalid Request",
			})
		}

		integrationID, err := codec.Decode(moduleID)
		if err != nil {
			log.Warn().Str("module_id", moduleID).Msg("Rejected request with undecodable module id")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"request_status": fiber.StatusBadRequest,
				"message":        "Invalid Request",
			})
		}

		c.Locals(LocalModuleID, integrationID)

		return c.Next()
	}
}

// SessionMiddleware resolves the caller's login session id, minting one
// when the cookie is absent. The development server has no real login;
// the cookie stands in for the session the embedding application owns.
func SessionMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		if sessionID == "" {
			sessionID = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookieName,
				Value:    sessionID,
				HTTPOnly: true,
			})
		}

		c.Locals(LocalSessionID, sessionID)

		return c.Next()
	}
}
