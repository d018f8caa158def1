package handlers

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PlatformHandler struct {
	oauth    service.OAuthService
	registry *platform.Registry
	cfg      config.Config
}

func NewPlatformHandler(oauth service.OAuthService, registry *platform.Registry, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{oauth: oauth, registry: registry, cfg: cfg}
}

func (h *PlatformHandler) Authorize(c *fiber.Ctx) error {
	platformID := c.Params("platform")
	authURL, _, err := h.oauth.BeginAuthorization(c.Context(), GetUserID(c), platformID)
	if err != nil {
		return err
	}
	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

// Callback finishes the handshake. The user is identified by the stored
// session, and the browser is always sent back to the frontend.
func (h *PlatformHandler) Callback(c *fiber.Ctx) error {
	platformID := c.Params("platform")

	result := "success"
	if errParam := c.Query("error"); errParam != "" {
		slog.Info("authorization denied", "platform", platformID, "error", errParam)
		result = "failed"
	} else if _, err := h.oauth.CompleteAuthorization(c.Context(), platformID, c.Query("code"), c.Query("state")); err != nil {
		slog.Info("authorization failed", "platform", platformID, "error", err)
		result = "failed"
	}

	redirectURL := fmt.Sprintf("%s/?connection=%s", h.cfg.FrontendURL, result)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) ListConnections(c *fiber.Ctx) error {
	creds, err := h.oauth.ListConnections(c.Context(), GetUserID(c))
	if err != nil {
		return err
	}

	connected := make(map[string]transfer.ConnectionResponse, len(creds))
	for _, cred := range creds {
		resp := transfer.ConnectionResponse{Platform: cred.PlatformID, Connected: true}
		if !cred.ExpiresAt.IsZero() {
			expires := cred.ExpiresAt
			resp.ExpiresAt = &expires
		}
		connected[cred.PlatformID] = resp
	}

	var out []transfer.ConnectionResponse
	for _, p := range h.registry.All() {
		if !p.SupportsAuthorization() || !h.cfg.Enabled(p.ID) {
			continue
		}
		resp, ok := connected[p.ID]
		if !ok {
			resp = transfer.ConnectionResponse{Platform: p.ID}
		}
		resp.DisplayName = p.DisplayName
		out = append(out, resp)
	}

	return c.Status(fiber.StatusOK).JSON(out)
}

func (h *PlatformHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.oauth.Disconnect(c.Context(), GetUserID(c), c.Params("platform")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PlatformHandler) ListPlatforms(c *fiber.Ctx) error {
	type platformInfo struct {
		platform.Platform
		Connectable bool `json:"connectable"`
	}

	var out []platformInfo
	for _, p := range h.registry.All() {
		out = append(out, platformInfo{
			Platform:    p,
			Connectable: p.SupportsAuthorization() && h.cfg.Enabled(p.ID),
		})
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

