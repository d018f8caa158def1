package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/apperrors"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(id, 10, 64)
	return userID
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.ErrInvalidRequest.WithDetails("malformed body")
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.ErrInvalidRequest.WithDetails("%s failed %s", fe.Field(), fe.Tag())
		}
		return apperrors.ErrInvalidRequest.Wrap(err)
	}
	return nil
}

func summarize(posts []*models.Post) []transfer.PostSummary {
	out := make([]transfer.PostSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, transfer.PostSummary{
			ID:            p.ID,
			Platform:      p.PlatformID,
			Content:       p.FinalContent(),
			Status:        string(p.Status),
			ScheduledTime: p.ScheduledTime,
			MediaCount:    len(p.MediaAssetIDs),
		})
	}
	return out
}
