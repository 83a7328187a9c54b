package controllers

import (
	"strings"

	"github.com/FluidspaceWeb/development-server/internal/domain"
	"github.com/FluidspaceWeb/development-server/internal/managers"
	"github.com/FluidspaceWeb/development-server/internal/middlewares"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// IntegrationController exposes the credential engine to integration
// modules over the development server's JSON API.
type IntegrationController struct {
	authManager *managers.IntegrationAuthManager
	ownerID     string
}

type IntegrationControllerDependencies struct {
	AuthManager *managers.IntegrationAuthManager
	// OwnerID is the development user every request is scoped to; the
	// embedding application supplies real user sessions in production.
	OwnerID string
}

func NewIntegrationController(deps IntegrationControllerDependencies) *IntegrationController {
	return &IntegrationController{
		authManager: deps.AuthManager,
		ownerID:     deps.OwnerID,
	}
}

type providerConfigRequest struct {
	ProviderName string `json:"provider_name"`
}

func (c *IntegrationController) GetAuthProviderConfig(ctx fiber.Ctx) error {
	var req providerConfigRequest
	if err := ctx.Bind().Body(&req); err != nil || strings.TrimSpace(req.ProviderName) == "" {
		return invalidRequest(ctx, "Invalid request, missing required fields!")
	}

	result := c.authManager.GetProviderConfig(ctx.RequestCtx(), c.integrationID(ctx), req.ProviderName)

	return ctx.JSON(result)
}

type addAccountRequest struct {
	ProviderName string `json:"provider_name"`
	AccessType   string `json:"access_type"`
	AuthCode     string `json:"auth_code"`
}

func (c *IntegrationController) AddAccount(ctx fiber.Ctx) error {
	var req addAccountRequest
	if err := ctx.Bind().Body(&req); err != nil {
		return invalidRequest(ctx, "Invalid request, missing required fields!")
	}

	// Shared accounts are a stubbed extension point; creation stays
	// forbidden until their session handling is decided.
	if req.AccessType == string(domain.AccessTypeShared) {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"request_status": fiber.StatusForbidden,
			"message":        "Adding shared account forbidden!",
		})
	}

	if req.ProviderName == "" || req.AccessType == "" {
		return invalidRequest(ctx, "Invalid request, missing required fields!")
	}

	result := c.authManager.AddAccount(ctx.RequestCtx(), managers.AddAccountParams{
		OwnerID:       c.ownerID,
		IntegrationID: c.integrationID(ctx),
		SessionID:     sessionID(ctx),
		ProviderName:  req.ProviderName,
		AccessType:    req.AccessType,
		AuthCode:      req.AuthCode,
	})

	return ctx.JSON(result)
}

type listAccountsRequest struct {
	AccessType string `json:"access_type"`
}

func (c *IntegrationController) GetAccounts(ctx fiber.Ctx) error {
	var req listAccountsRequest
	if err := ctx.Bind().Body(&req); err != nil {
		return invalidRequest(ctx, "Invalid request, missing required fields!")
	}

	result := c.authManager.ListAccounts(ctx.RequestCtx(), managers.AccountListParams{
		OwnerID:       c.ownerID,
		IntegrationID: c.integrationID(ctx),
		AccessType:    req.AccessType,
	})

	return ctx.JSON(result)
}

type deleteAccountRequest struct {
	AccountID  string `json:"account_id"`
	AccessType string `json:"access_type"`
}

func (c *IntegrationController) DeleteAccount(ctx fiber.Ctx) error {
	var req deleteAccountRequest
	if err := ctx.Bind().Body(&req); err != nil || req.AccountID == "" || req.AccessType == "" {
		return invalidRequest(ctx, "Invalid request, missing required fields!")
	}

	if !domain.AccessType(req.AccessType).Valid() {
		return invalidRequest(ctx, "Invalid access_type!")
	}

	result := c.authManager.DeleteAccount(ctx.RequestCtx(), managers.DeleteAccountParams{
		OwnerID:       c.ownerID,
		IntegrationID: c.integrationID(ctx),
		SessionID:     sessionID(ctx),
		AccountID:     req.AccountID,
		AccessType:    req.AccessType,
	})

	return ctx.JSON(result)
}

func (c *IntegrationController) GetRequestCredentials(ctx fiber.Ctx) error {
	accountID := ctx.Query("account_id")
	accessType := ctx.Query("access_type")
	if accountID == "" || accessType == "" {
		return invalidRequest(ctx, "Invalid request, missing required fields!")
	}

	result := c.authManager.GetRequestCredentials(ctx.RequestCtx(), managers.RequestCredentialParams{
		OwnerID:       c.ownerID,
		IntegrationID: c.integrationID(ctx),
		SessionID:     sessionID(ctx),
		AccountID:     accountID,
		AccessType:    accessType,
	})

	return ctx.JSON(result)
}

type makeRequestRequest struct {
	AccountID  string                   `json:"account_id"`
	AccessType string                   `json:"access_type"`
	Request    managers.OutboundRequest `json:"request"`
}

func (c *IntegrationController) MakeRequest(ctx fiber.Ctx) error {
	var req makeRequestRequest
	if err := ctx.Bind().Body(&req); err != nil || req.AccountID == "" || req.AccessType == "" {
		return invalidRequest(ctx, "Invalid request, missing required fields!")
	}

	outcome := c.authManager.ExecuteRequest(ctx.RequestCtx(), managers.RequestCredentialParams{
		OwnerID:       c.ownerID,
		IntegrationID: c.integrationID(ctx),
		SessionID:     sessionID(ctx),
		AccountID:     req.AccountID,
		AccessType:    req.AccessType,
	}, req.Request)

	return ctx.JSON(outcome)
}

func (c *IntegrationController) integrationID(ctx fiber.Ctx) string {
	if id, ok := ctx.Locals(middlewares.LocalModuleID).(string); ok {
		return id
	}

	log.Error().Str("path", ctx.Path()).Msg("Integration id missing from request context")
	return ""
}

func sessionID(ctx fiber.Ctx) string {
	if id, ok := ctx.Locals(middlewares.LocalSessionID).(string); ok {
		return id
	}
	return ""
}

func invalidRequest(ctx fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"request_status": fiber.StatusBadRequest,
		"message":        message,
	})
}
