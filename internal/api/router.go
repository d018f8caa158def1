package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
	"github.com/maheshrc27/crosspost/internal/api/middleware"
)

type Handlers struct {
	Posts     *handlers.PostHandler
	Platforms *handlers.PlatformHandler
	Social    *handlers.SocialHandler
	Media     *handlers.MediaHandler
}

// Register mounts every route. Only the OAuth callback is public; it finds
// the user through the stored authorization session.
func Register(app *fiber.App, auth *middleware.AuthMiddleware, h Handlers) {
	app.Get("/auth/:platform/callback", h.Platforms.Callback)

	protected := app.Group("", auth.AuthMiddleware())

	protected.Get("/platforms", h.Platforms.ListPlatforms)
	protected.Get("/auth/connections", h.Platforms.ListConnections)
	protected.Get("/auth/:platform/authorize", h.Platforms.Authorize)
	protected.Delete("/auth/:platform", h.Platforms.Disconnect)

	content := protected.Group("/content")
	content.Post("/transform", h.Posts.Transform)
	content.Post("/schedule", h.Posts.Schedule)
	content.Get("/scheduled", h.Posts.ListScheduled)

	content.Post("/drafts", h.Posts.SaveDraft)
	content.Get("/drafts", h.Posts.ListDrafts)
	content.Put("/drafts/:id", h.Posts.UpdateDraft)
	content.Post("/drafts/:id/submit", h.Posts.SubmitDraft)
	content.Delete("/drafts/:id", h.Posts.RemovePost)

	content.Get("/posts/:id", h.Posts.GetPost)
	content.Post("/posts/:id/publish", h.Posts.PublishNow)
	content.Post("/posts/:id/retry", h.Posts.Retry)
	content.Post("/posts/:id/cancel", h.Posts.Cancel)
	content.Delete("/posts/:id", h.Posts.RemovePost)

	protected.Post("/social/:platform/post", h.Social.Post)

	media := protected.Group("/media")
	media.Post("/upload", h.Media.Upload)
	media.Post("/generate", h.Media.Generate)
	media.Get("/:id", h.Media.Get)
}
