package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

// SocialHandler publishes content straight to one platform and answers with
// the platform's own response.
type SocialHandler struct {
	s        service.PostService
	registry *platform.Registry
}

func NewSocialHandler(s service.PostService, registry *platform.Registry) *SocialHandler {
	return &SocialHandler{s: s, registry: registry}
}

func (h *SocialHandler) Post(c *fiber.Ctx) error {
	platformID := c.Params("platform")
	if _, err := h.registry.Lookup(platformID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Unsupported platform",
		})
	}

	var req transfer.SocialPostRequest
	if err := parseBody(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	res, err := h.s.Submit(c.Context(), GetUserID(c), service.PostInput{
		Content:  req.Content,
		Platform: platformID,
		MediaIDs: req.Media,
	}, service.SubmitOptions{})
	if err != nil {
		body := fiber.Map{"message": err.Error()}
		if service.IsReconnectRequired(err) {
			body["reconnect"] = platformID
		}
		var le *apperrors.LengthError
		if errors.As(err, &le) {
			body["maxAllowed"] = le.Max
			body["actual"] = le.Actual
		}
		return c.Status(fiber.StatusInternalServerError).JSON(body)
	}

	if payload := res.Receipt.Payload; json.Valid(payload) {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusOK).Send(payload)
	}
	return c.Status(fiber.StatusOK).JSON(res.Receipt)
}
