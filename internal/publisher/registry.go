package publisher

import (
	"net/http"

	"github.com/maheshrc27/crosspost/internal/platform"
)

// NewDefaultRegistry registers an adapter for every platform that can
// publish, pointed at the production APIs.
func NewDefaultRegistry(hc *http.Client) *Registry {
	r := NewRegistry()
	r.Register(platform.Twitter, NewTwitterPublisher(TwitterAPIURL, TwitterUploadURL, hc))
	r.Register(platform.LinkedIn, NewLinkedInPublisher(LinkedInAPIURL, hc))
	r.Register(platform.Instagram, NewInstagramPublisher(InstagramGraphURL, hc))
	r.Register(platform.Facebook, NewFacebookPublisher(FacebookGraphURL, hc))
	r.Register(platform.TikTok, NewTikTokPublisher(TikTokAPIURL, hc))
	r.Register(platform.YouTube, NewYouTubePublisher("", hc))
	return r
}
