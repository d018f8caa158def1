package platform

import (
	"fmt"

	"github.com/maheshrc27/crosspost/internal/apperrors"
)

const (
	Twitter   = "twitter"
	LinkedIn  = "linkedin"
	Instagram = "instagram"
	Facebook  = "facebook"
	TikTok    = "tiktok"
	YouTube   = "youtube"
	Snapchat  = "snapchat"
)

// Platform is an immutable catalog entry describing what a network accepts
// and how its authorization handshake is performed.
type Platform struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	// MaxContentLength is nil when the platform does not limit text length.
	MaxContentLength *int `json:"maxContentLength"`

	AuthorizationEndpoint string   `json:"-"`
	TokenEndpoint         string   `json:"-"`
	RequiredScopes        []string `json:"requiredScopes"`
	ScopeSeparator        string   `json:"-"`
	ClientIDParam         string   `json:"-"`
	RequiresClientSecret  bool     `json:"-"`

	// AuthParams are extra query parameters for the authorization URL.
	AuthParams map[string]string `json:"-"`

	SupportsMedia bool `json:"supportsMedia"`
	RequiresMedia bool `json:"requiresMedia"`
	// AcceptedKinds lists the media kinds the platform takes ("image",
	// "video"). Empty means any kind.
	AcceptedKinds []string `json:"acceptedKinds,omitempty"`

	// StyleDirective is the per-platform hint given to the text transformer.
	StyleDirective string `json:"-"`
}

// SupportsAuthorization reports whether the platform can be connected.
func (p Platform) SupportsAuthorization() bool {
	return p.AuthorizationEndpoint != "" && p.TokenEndpoint != ""
}

// Accepts reports whether media of the given kind can be attached.
func (p Platform) Accepts(kind string) bool {
	if len(p.AcceptedKinds) == 0 {
		return true
	}
	for _, k := range p.AcceptedKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Limit returns the length limit and whether one exists.
func (p Platform) Limit() (int, bool) {
	if p.MaxContentLength == nil {
		return 0, false
	}
	return *p.MaxContentLength, true
}

func limit(n int) *int { return &n }

// table is the single place platform constants live. Adding a platform is one
// entry here plus a publisher adapter.
var table = []Platform{
	{
		ID:                    Twitter,
		DisplayName:           "X (Twitter)",
		MaxContentLength:      limit(280),
		AuthorizationEndpoint: "https://twitter.com/i/oauth2/authorize",
		TokenEndpoint:         "https://api.twitter.com/2/oauth2/token",
		RequiredScopes:        []string{"tweet.read", "tweet.write", "users.read", "media.write", "offline.access"},
		ScopeSeparator:        " ",
		ClientIDParam:         "client_id",
		RequiresClientSecret:  false,
		SupportsMedia:         true,
		AcceptedKinds:         []string{"image", "video"},
		StyleDirective:        "Keep it concise and engaging. Include 2-3 relevant hashtags.",
	},
	{
		ID:                    LinkedIn,
		DisplayName:           "LinkedIn",
		MaxContentLength:      limit(3000),
		AuthorizationEndpoint: "https://www.linkedin.com/oauth/v2/authorization",
		TokenEndpoint:         "https://www.linkedin.com/oauth/v2/accessToken",
		RequiredScopes:        []string{"openid", "profile", "w_member_social"},
		ScopeSeparator:        " ",
		ClientIDParam:         "client_id",
		RequiresClientSecret:  true,
		SupportsMedia:         false,
		StyleDirective:        "Professional tone, industry insights, structured with paragraphs, 2-3 relevant hashtags.",
	},
	{
		ID:                    Instagram,
		DisplayName:           "Instagram",
		MaxContentLength:      limit(2200),
		AuthorizationEndpoint: "https://www.instagram.com/oauth/authorize",
		TokenEndpoint:         "https://api.instagram.com/oauth/access_token",
		RequiredScopes:        []string{"instagram_business_basic", "instagram_business_content_publish"},
		ScopeSeparator:        ",",
		ClientIDParam:         "client_id",
		RequiresClientSecret:  true,
		SupportsMedia:         true,
		AcceptedKinds:         []string{"image", "video"},
		RequiresMedia:         true,
		StyleDirective:        "Visual-friendly, engaging tone, add line breaks, include up to 20 relevant hashtags.",
	},
	{
		ID:                    Facebook,
		DisplayName:           "Facebook",
		MaxContentLength:      limit(63206),
		AuthorizationEndpoint: "https://www.facebook.com/v21.0/dialog/oauth",
		TokenEndpoint:         "https://graph.facebook.com/v21.0/oauth/access_token",
		RequiredScopes:        []string{"pages_show_list", "pages_manage_posts", "pages_read_engagement"},
		ScopeSeparator:        ",",
		ClientIDParam:         "client_id",
		RequiresClientSecret:  true,
		SupportsMedia:         true,
		AcceptedKinds:         []string{"image"},
		StyleDirective:        "Conversational tone, encourage engagement, longer format is fine.",
	},
	{
		ID:                    TikTok,
		DisplayName:           "TikTok",
		MaxContentLength:      limit(2200),
		AuthorizationEndpoint: "https://www.tiktok.com/v2/auth/authorize/",
		TokenEndpoint:         "https://open.tiktokapis.com/v2/oauth/token/",
		RequiredScopes:        []string{"user.info.basic", "video.publish", "video.upload"},
		ScopeSeparator:        ",",
		ClientIDParam:         "client_key",
		RequiresClientSecret:  true,
		SupportsMedia:         true,
		AcceptedKinds:         []string{"image", "video"},
		RequiresMedia:         true,
		StyleDirective:        "Casual, trendy language, short and punchy, include trending hashtags and a call-to-action.",
	},
	{
		ID:                    YouTube,
		DisplayName:           "YouTube",
		MaxContentLength:      limit(5000),
		AuthorizationEndpoint: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenEndpoint:         "https://oauth2.googleapis.com/token",
		RequiredScopes:        []string{"https://www.googleapis.com/auth/youtube.upload"},
		ScopeSeparator:        " ",
		ClientIDParam:         "client_id",
		RequiresClientSecret:  true,
		AuthParams:            map[string]string{"access_type": "offline", "prompt": "consent"},
		SupportsMedia:         true,
		AcceptedKinds:         []string{"video"},
		RequiresMedia:         true,
		StyleDirective:        "Write a video description: a hook in the first line, a short summary, then relevant hashtags.",
	},
	{
		ID:             Snapchat,
		DisplayName:    "Snapchat",
		SupportsMedia:  true,
		AcceptedKinds:  []string{"image", "video"},
		StyleDirective: "Very casual, young audience, short and snappy content.",
	},
}

// Registry resolves platform IDs to their catalog entries.
type Registry struct {
	byID  map[string]Platform
	order []string
}

// NewRegistry builds a registry from the built-in table.
func NewRegistry() *Registry {
	return NewRegistryFrom(table)
}

// NewRegistryFrom builds a registry from an explicit table. Endpoints in tests
// point at local servers through this constructor.
func NewRegistryFrom(platforms []Platform) *Registry {
	r := &Registry{byID: make(map[string]Platform, len(platforms))}
	for _, p := range platforms {
		if _, dup := r.byID[p.ID]; dup {
			panic(fmt.Sprintf("platform %q registered twice", p.ID))
		}
		p.RequiredScopes = append([]string(nil), p.RequiredScopes...)
		p.AuthParams = copyParams(p.AuthParams)
		p.AcceptedKinds = append([]string(nil), p.AcceptedKinds...)
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

// Lookup returns the platform with the given ID.
func (r *Registry) Lookup(platformID string) (Platform, error) {
	p, ok := r.byID[platformID]
	if !ok {
		return Platform{}, apperrors.ErrPlatformNotFound.WithDetails("%q", platformID)
	}
	p.RequiredScopes = append([]string(nil), p.RequiredScopes...)
	p.AuthParams = copyParams(p.AuthParams)
	p.AcceptedKinds = append([]string(nil), p.AcceptedKinds...)
	return p, nil
}

func copyParams(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// All returns every platform in table order.
func (r *Registry) All() []Platform {
	out := make([]Platform, 0, len(r.order))
	for _, id := range r.order {
		p, _ := r.Lookup(id)
		out = append(out, p)
	}
	return out
}

// Builtin returns a copy of the built-in table.
func Builtin() []Platform {
	out := make([]Platform, len(table))
	copy(out, table)
	return out
}
