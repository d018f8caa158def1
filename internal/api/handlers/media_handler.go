package handlers

import (
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type MediaHandler struct {
	s service.MediaService
}

func NewMediaHandler(s service.MediaService) *MediaHandler {
	return &MediaHandler{s: s}
}

func (h *MediaHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		slog.Info(err.Error())
		return apperrors.ErrInvalidRequest.WithDetails("missing file")
	}

	f, err := fh.Open()
	if err != nil {
		slog.Error(err.Error())
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error(err.Error())
		return err
	}

	asset, err := h.s.AttachUpload(c.Context(), GetUserID(c), service.UploadFile{
		Name:         fh.Filename,
		DeclaredMIME: fh.Header.Get(fiber.HeaderContentType),
		Data:         data,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(asset)
}

func (h *MediaHandler) Generate(c *fiber.Ctx) error {
	var req transfer.GenerateMediaRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	asset, report, err := h.s.GenerateFromPrompt(c.Context(), GetUserID(c), req.Prompt)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"asset": asset, "report": report})
}

func (h *MediaHandler) Get(c *fiber.Ctx) error {
	asset, err := h.s.Get(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(asset)
}
