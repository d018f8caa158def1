package transfer

import "time"

type TransformRequest struct {
	Content  string `json:"content"`
	Platform string `json:"platform" validate:"required"`
	Tone     string `json:"tone" validate:"omitempty,max=50"`
}

type TransformResponse struct {
	TransformedContent string `json:"transformedContent"`
}

// ScheduleRequest submits content for immediate publishing or, when
// ScheduledTime is set, for publishing at that time.
type ScheduleRequest struct {
	Content       string     `json:"content"`
	Platform      string     `json:"platform" validate:"required"`
	Tone          string     `json:"tone" validate:"omitempty,max=50"`
	Transform     bool       `json:"transform"`
	MediaIDs      []string   `json:"mediaIds" validate:"omitempty,max=10,dive,required"`
	ScheduledTime *time.Time `json:"scheduledTime"`
}

type DraftRequest struct {
	Content  string   `json:"content"`
	Platform string   `json:"platform" validate:"required"`
	Tone     string   `json:"tone" validate:"omitempty,max=50"`
	MediaIDs []string `json:"mediaIds" validate:"omitempty,max=10,dive,required"`
}

type SubmitDraftRequest struct {
	Transform     bool       `json:"transform"`
	ScheduledTime *time.Time `json:"scheduledTime"`
}

type SocialPostRequest struct {
	Content string   `json:"content"`
	Media   []string `json:"media" validate:"omitempty,max=10,dive,required"`
}

type GenerateMediaRequest struct {
	Prompt string `json:"prompt"`
}

type PostSummary struct {
	ID            string     `json:"id"`
	Platform      string     `json:"platform"`
	Content       string     `json:"content"`
	Status        string     `json:"status"`
	ScheduledTime *time.Time `json:"scheduledTime"`
	MediaCount    int        `json:"mediaCount"`
}
