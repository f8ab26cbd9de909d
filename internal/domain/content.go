package domain

import (
	"strings"
	"time"
)

// ItemType is the capture kind chosen by the client; immutable after creation.
type ItemType string

const (
	TypeLink  ItemType = "link"
	TypeNote  ItemType = "note"
	TypeImage ItemType = "image"
	TypeVoice ItemType = "voice"
	TypeMovie ItemType = "movie"
)

// Valid reports whether t belongs to the closed set of item types.
func (t ItemType) Valid() bool {
	switch t {
	case TypeLink, TypeNote, TypeImage, TypeVoice, TypeMovie:
		return true
	default:
		return false
	}
}

// Content-type labels produced by the classifier.
const (
	ContentTypeArticle      = "Article"
	ContentTypePDF          = "PDF"
	ContentTypeTweet        = "Tweet"
	ContentTypeThread       = "Thread"
	ContentTypeRepositories = "Repositories"
	ContentTypePost         = "Post"
	ContentTypeReel         = "Reel"
	ContentTypeVideo        = "Video"
	ContentTypeImage        = "Image"
	ContentTypeOther        = "Other"
)

var contentTypeLabels = []string{
	ContentTypeArticle,
	ContentTypePDF,
	ContentTypeTweet,
	ContentTypeThread,
	ContentTypeRepositories,
	ContentTypePost,
	ContentTypeReel,
	ContentTypeVideo,
	ContentTypeImage,
	ContentTypeOther,
}

// ContentTypeLabels returns the closed label set in a stable order.
func ContentTypeLabels() []string {
	out := make([]string, len(contentTypeLabels))
	copy(out, contentTypeLabels)
	return out
}

// NormalizeContentType maps free-form model output onto a known label.
// The second return value is false when nothing matches.
func NormalizeContentType(raw string) (string, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `."'`)
	for _, label := range contentTypeLabels {
		if strings.EqualFold(raw, label) {
			return label, true
		}
	}
	return "", false
}

// Tag is content-addressed: ID equals the normalized name.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Sentiment is the scored polarity of a text-bearing item.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NeutralSentiment is the documented default when inference yields nothing usable.
func NeutralSentiment() Sentiment {
	return Sentiment{Label: SentimentNeutral, Score: 0}
}

// ContentItem is the unit of work and the unit of persistence.
type ContentItem struct {
	ID           string
	UserID       string
	Type         ItemType
	ContentType  string
	URL          string
	Title        string
	Description  string
	Summary      string
	ImageURL     string
	FaviconURL   string
	AudioURL     string
	Tags         []Tag
	ColorPalette []string
	Sentiment    *Sentiment
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    *time.Time
}

// IsPDFLink reports whether the item is a link whose URL looks like a document.
func (c ContentItem) IsPDFLink() bool {
	if c.Type != TypeLink {
		return false
	}
	u := strings.ToLower(strings.TrimSpace(c.URL))
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.HasSuffix(u, ".pdf")
}

// Text returns the text-bearing body of notes and voice memos.
func (c ContentItem) Text() string {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(c.Title); t != "" {
		parts = append(parts, t)
	}
	if d := strings.TrimSpace(c.Description); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, "\n\n")
}
