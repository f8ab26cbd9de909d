// Package classify assigns content-type labels to captured items.
package classify

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

// rule matches a host (exact or subdomain) and optionally a path prefix.
type rule struct {
	host       string
	pathPrefix string
	label      string
}

// rules are evaluated in order; the first match wins. More specific rules
// (short video paths) come before the generic host rules.
var rules = []rule{
	// Code hosting
	{host: "github.com", label: domain.ContentTypeRepositories},
	{host: "gitlab.com", label: domain.ContentTypeRepositories},
	{host: "bitbucket.org", label: domain.ContentTypeRepositories},
	{host: "codeberg.org", label: domain.ContentTypeRepositories},

	// Short-form video
	{host: "tiktok.com", label: domain.ContentTypeReel},
	{host: "instagram.com", pathPrefix: "/reel", label: domain.ContentTypeReel},
	{host: "youtube.com", pathPrefix: "/shorts/", label: domain.ContentTypeReel},
	{host: "facebook.com", pathPrefix: "/reel", label: domain.ContentTypeReel},

	// Micro-blogging
	{host: "twitter.com", label: domain.ContentTypeTweet},
	{host: "x.com", label: domain.ContentTypeTweet},
	{host: "threads.net", label: domain.ContentTypeThread},
	{host: "mastodon.social", label: domain.ContentTypeTweet},
	{host: "bsky.app", label: domain.ContentTypeTweet},

	// Social posts
	{host: "reddit.com", label: domain.ContentTypePost},
	{host: "linkedin.com", pathPrefix: "/posts/", label: domain.ContentTypePost},
	{host: "instagram.com", pathPrefix: "/p/", label: domain.ContentTypePost},
	{host: "facebook.com", label: domain.ContentTypePost},

	// Long-form video
	{host: "youtube.com", label: domain.ContentTypeVideo},
	{host: "youtu.be", label: domain.ContentTypeVideo},
	{host: "vimeo.com", label: domain.ContentTypeVideo},
}

// Classifier runs domain heuristics first and falls back to an inference model.
type Classifier struct {
	model  ports.ContentTypeModel
	logger *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier builds a classifier; model may be nil.
func NewClassifier(model ports.ContentTypeModel, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Classifier{model: model, logger: log.With("component", "classifier")}
}

// Classify returns a label from the closed set. Unmatched web links default to
// Article when the model has nothing usable; everything else defaults to Other.
func (c *Classifier) Classify(ctx context.Context, rawURL, title string) string {
	if label, ok := Heuristic(rawURL); ok {
		return label
	}

	fallback := domain.ContentTypeOther
	if isWebURL(rawURL) {
		fallback = domain.ContentTypeArticle
	}

	if c.model == nil {
		return fallback
	}

	raw, err := c.model.ClassifyText(ctx, rawURL, title)
	if err != nil {
		c.logger.Warn("classification model unavailable", "url", rawURL, "error", err)
		return fallback
	}
	if label, ok := domain.NormalizeContentType(raw); ok {
		return label
	}
	c.logger.Debug("classification model returned unknown label", "url", rawURL, "label", raw)
	return fallback
}

// ClassifyImage labels an image item, defaulting to Other.
func (c *Classifier) ClassifyImage(ctx context.Context, imageURL string) string {
	if c.model == nil || imageURL == "" {
		return domain.ContentTypeOther
	}
	raw, err := c.model.ClassifyImage(ctx, imageURL)
	if err != nil {
		c.logger.Warn("image classification unavailable", "url", imageURL, "error", err)
		return domain.ContentTypeOther
	}
	if label, ok := domain.NormalizeContentType(raw); ok {
		return label
	}
	return domain.ContentTypeOther
}

// Heuristic applies the deterministic URL rules only.
func Heuristic(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}

	if strings.HasSuffix(strings.ToLower(u.Path), ".pdf") {
		return domain.ContentTypePDF, true
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.ToLower(u.Path)
	for _, r := range rules {
		if host != r.host && !strings.HasSuffix(host, "."+r.host) {
			continue
		}
		if r.pathPrefix != "" && !strings.HasPrefix(path, r.pathPrefix) {
			continue
		}
		return r.label, true
	}
	return "", false
}

func isWebURL(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
