package models

import "time"

type PostStatus string

const (
	PostStatusDraft            PostStatus = "draft"
	PostStatusPendingTransform PostStatus = "pending_transform"
	PostStatusReady            PostStatus = "ready"
	PostStatusScheduled        PostStatus = "scheduled"
	PostStatusPublishing       PostStatus = "publishing"
	PostStatusPublished        PostStatus = "published"
	PostStatusFailed           PostStatus = "failed"
)

type Post struct {
	ID                 string            `db:"id" json:"id"`
	UserID             int64             `db:"user_id" json:"userId"`
	RawContent         string            `db:"raw_content" json:"rawContent"`
	TransformedContent *string           `db:"transformed_content" json:"transformedContent"`
	Tone               string            `db:"tone" json:"tone,omitempty"`
	PlatformID         string            `db:"platform_id" json:"platform"`
	MediaAssetIDs      []string          `db:"-" json:"mediaAssetIds"`
	ScheduledTime      *time.Time        `db:"scheduled_time" json:"scheduledTime"`
	Status             PostStatus        `db:"status" json:"status"`
	LastError          *string           `db:"last_error" json:"lastError"`
	AttemptCount       int               `db:"attempt_count" json:"attemptCount"`
	Receipt            *PublishedReceipt `db:"-" json:"receipt,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// FinalContent is the text that gets validated and published: the transformed
// content when a transform ran, the raw content otherwise.
func (p *Post) FinalContent() string {
	if p.TransformedContent != nil {
		return *p.TransformedContent
	}
	return p.RawContent
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	cp := *p
	if p.TransformedContent != nil {
		v := *p.TransformedContent
		cp.TransformedContent = &v
	}
	if p.ScheduledTime != nil {
		v := *p.ScheduledTime
		cp.ScheduledTime = &v
	}
	if p.LastError != nil {
		v := *p.LastError
		cp.LastError = &v
	}
	if p.Receipt != nil {
		r := *p.Receipt
		r.Payload = append([]byte(nil), p.Receipt.Payload...)
		cp.Receipt = &r
	}
	cp.MediaAssetIDs = append([]string(nil), p.MediaAssetIDs...)
	return &cp
}

type PublishedReceipt struct {
	PostID      string    `db:"post_id" json:"postId"`
	PlatformID  string    `db:"platform_id" json:"platform"`
	ExternalID  string    `db:"external_id" json:"externalId"`
	URL         string    `db:"url" json:"url,omitempty"`
	PublishedAt time.Time `db:"published_at" json:"publishedAt"`
	Payload     []byte    `db:"payload" json:"-"`
}

type MediaSourceType string

const (
	MediaSourceUpload    MediaSourceType = "upload"
	MediaSourceGenerated MediaSourceType = "generated"
)

type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindPDF      MediaKind = "pdf"
	MediaKindDocument MediaKind = "document"
)

type ProcessingState string

const (
	ProcessingPending ProcessingState = "pending"
	ProcessingReady   ProcessingState = "ready"
	ProcessingFailed  ProcessingState = "failed"
)

type MediaAsset struct {
	ID              string          `db:"id" json:"id"`
	UserID          int64           `db:"user_id" json:"userId"`
	SourceType      MediaSourceType `db:"source_type" json:"sourceType"`
	Kind            MediaKind       `db:"kind" json:"kind"`
	MimeType        string          `db:"mime_type" json:"mimeType"`
	ProcessingState ProcessingState `db:"processing_state" json:"processingState"`
	ByteRef         string          `db:"byte_ref" json:"byteRef"`
	Size            int64           `db:"size" json:"size"`
	LastError       string          `db:"last_error" json:"lastError,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
}
