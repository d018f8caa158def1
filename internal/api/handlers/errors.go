package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/apperrors"
)

// platformError ties an error to the platform it concerns so authorization
// failures can tell the client which connection to renew.
type platformError struct {
	platformID string
	err        error
}

func (e *platformError) Error() string { return e.err.Error() }

func (e *platformError) Unwrap() error { return e.err }

func withPlatform(err error, platformID string) error {
	if err == nil {
		return nil
	}
	return &platformError{platformID: platformID, err: err}
}

// ErrorHandler renders every error returned by a handler as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	kind, ok := apperrors.KindOf(err)
	if !ok {
		slog.Error("unhandled error", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	body := fiber.Map{"error": err.Error()}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body["code"] = appErr.Code()
	}

	switch kind {
	case apperrors.KindAuthorization:
		var pe *platformError
		if errors.As(err, &pe) {
			body["reconnect"] = pe.platformID
		}
	case apperrors.KindConstraint:
		var le *apperrors.LengthError
		if errors.As(err, &le) {
			body["code"] = apperrors.ErrViolatesLength.Code()
			body["maxAllowed"] = le.Max
			body["actual"] = le.Actual
		}
	case apperrors.KindFailed, apperrors.KindGeneration:
		body["lastError"] = err.Error()
	default:
		if kind.HTTPCode() >= fiber.StatusInternalServerError {
			slog.Error(err.Error())
		}
	}

	return c.Status(kind.HTTPCode()).JSON(body)
}
