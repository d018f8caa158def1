package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s  service.PostService
	tr service.ContentTransformer
}

func NewPostHandler(s service.PostService, tr service.ContentTransformer) *PostHandler {
	return &PostHandler{s: s, tr: tr}
}

func (h *PostHandler) Transform(c *fiber.Ctx) error {
	var req transfer.TransformRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	out, err := h.tr.Transform(c.Context(), req.Content, req.Platform, req.Tone)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(transfer.TransformResponse{TransformedContent: out})
}

func (h *PostHandler) Schedule(c *fiber.Ctx) error {
	var req transfer.ScheduleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	res, err := h.s.Submit(c.Context(), GetUserID(c), service.PostInput{
		Content:  req.Content,
		Platform: req.Platform,
		Tone:     req.Tone,
		MediaIDs: req.MediaIDs,
	}, service.SubmitOptions{Transform: req.Transform, ScheduledTime: req.ScheduledTime})
	if err != nil {
		return withPlatform(err, req.Platform)
	}

	return c.Status(fiber.StatusOK).JSON(submitResponse(res))
}

func submitResponse(res *service.SubmitResult) fiber.Map {
	if res.Receipt != nil {
		return fiber.Map{"message": "Post published successfully", "post": res.Post, "receipt": res.Receipt}
	}
	return fiber.Map{"message": "Post scheduled successfully", "post": res.Post}
}

func (h *PostHandler) ListScheduled(c *fiber.Ctx) error {
	posts, err := h.s.ListScheduled(c.Context(), GetUserID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(summarize(posts))
}

func (h *PostHandler) SaveDraft(c *fiber.Ctx) error {
	var req transfer.DraftRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	post, err := h.s.SaveDraft(c.Context(), GetUserID(c), draftInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) UpdateDraft(c *fiber.Ctx) error {
	var req transfer.DraftRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	post, err := h.s.UpdateDraft(c.Context(), GetUserID(c), c.Params("id"), draftInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func draftInput(req transfer.DraftRequest) service.PostInput {
	return service.PostInput{
		Content:  req.Content,
		Platform: req.Platform,
		Tone:     req.Tone,
		MediaIDs: req.MediaIDs,
	}
}

func (h *PostHandler) ListDrafts(c *fiber.Ctx) error {
	posts, err := h.s.ListDrafts(c.Context(), GetUserID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(summarize(posts))
}

func (h *PostHandler) SubmitDraft(c *fiber.Ctx) error {
	var req transfer.SubmitDraftRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	userID := GetUserID(c)
	res, err := h.s.SubmitDraft(c.Context(), userID, c.Params("id"), service.SubmitOptions{
		Transform:     req.Transform,
		ScheduledTime: req.ScheduledTime,
	})
	if err != nil {
		return h.postError(c, userID, err)
	}
	return c.Status(fiber.StatusOK).JSON(submitResponse(res))
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	if err := h.s.Remove(c.Context(), GetUserID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.Get(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	receipt, err := h.s.PublishNow(c.Context(), userID, c.Params("id"))
	if err != nil {
		return h.postError(c, userID, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Post published successfully", "receipt": receipt})
}

func (h *PostHandler) Retry(c *fiber.Ctx) error {
	userID := GetUserID(c)
	res, err := h.s.Retry(c.Context(), userID, c.Params("id"))
	if err != nil {
		return h.postError(c, userID, err)
	}
	return c.Status(fiber.StatusOK).JSON(submitResponse(res))
}

func (h *PostHandler) Cancel(c *fiber.Ctx) error {
	post, err := h.s.Cancel(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

// postError attaches the post's platform so authorization failures name the
// connection to renew.
func (h *PostHandler) postError(c *fiber.Ctx, userID int64, err error) error {
	post, lookupErr := h.s.Get(c.Context(), userID, c.Params("id"))
	if lookupErr != nil {
		return err
	}
	return withPlatform(err, post.PlatformID)
}
