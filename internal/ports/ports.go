package ports

import (
	"context"
	"time"

	"ContentEnricher/internal/domain"
)

// ContentRepository is the document store holding content records.
type ContentRepository interface {
	Get(ctx context.Context, id string) (domain.ContentItem, error)
	// SaveEnrichment applies the patch as a partial update and sets status.
	SaveEnrichment(ctx context.Context, id string, patch domain.Patch, status domain.Status) error
	SetStatus(ctx context.Context, id string, status domain.Status) error
	ListStale(ctx context.Context, status domain.Status, olderThan time.Time, limit int) ([]string, error)
}

// EnrichmentQueue carries content ids waiting for enrichment.
type EnrichmentQueue interface {
	Enqueue(ctx context.Context, contentID string) error
	// Dequeue blocks up to wait; it returns "" with a nil error on timeout.
	Dequeue(ctx context.Context, wait time.Duration) (string, error)
}

// SearchIndexer consumes enriched records.
type SearchIndexer interface {
	Index(ctx context.Context, item domain.ContentItem) error
}

// ObjectStore accepts a buffer and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// SummaryOptions bounds the abstractive summary request.
type SummaryOptions struct {
	MinLength         int
	MaxLength         int
	DoSample          bool
	NoRepeatNgramSize int
}

// Summarizer is the summarization inference collaborator.
type Summarizer interface {
	Summarize(ctx context.Context, text string, opts SummaryOptions) (string, error)
}

// SentimentModel is the sentiment inference collaborator.
type SentimentModel interface {
	Sentiment(ctx context.Context, text string) (domain.Sentiment, error)
}

// ContentTypeModel is the classification inference collaborator.
type ContentTypeModel interface {
	ClassifyText(ctx context.Context, url, title string) (string, error)
	ClassifyImage(ctx context.Context, imageURL string) (string, error)
}

// Notifier sends operator alerts (e.g. failed enrichments) to a chat channel.
type Notifier interface {
	PublishAlert(ctx context.Context, message string) error
}

// Scheduler controls when periodic jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// MetadataScraper fetches a page and extracts title/description/icons.
type MetadataScraper interface {
	Scrape(ctx context.Context, pageURL string) (domain.PageMetadata, error)
}

// EndpointResolver maps a URL to its embed (oEmbed) endpoint.
type EndpointResolver interface {
	Resolve(ctx context.Context, pageURL string) (string, bool)
}

// EmbedFetcher reads embed metadata from a resolved endpoint.
type EmbedFetcher interface {
	FetchEmbed(ctx context.Context, endpoint string) (domain.PageMetadata, error)
}

// ArticleExtractor returns nil without error when no article is found.
type ArticleExtractor interface {
	ExtractArticle(ctx context.Context, html, baseURL string) (*domain.Article, error)
}

// DocumentSummarizer returns "" without error when the document has no text.
type DocumentSummarizer interface {
	SummarizeDocument(ctx context.Context, docURL string) (markdown string, text string, err error)
}

// ImageProcessor fetches, re-encodes and analyses images.
type ImageProcessor interface {
	Fetch(ctx context.Context, sourceURL string) ([]byte, error)
	// Reencode returns "" when the image could not be re-encoded or stored.
	Reencode(ctx context.Context, data []byte, ownerID, itemID string) string
	ExtractPalette(data []byte) ([]string, error)
}

// TagExtractor produces a deduplicated tag set from plain text.
type TagExtractor interface {
	ExtractTags(text string) []domain.Tag
}

// Classifier assigns a content-type label.
type Classifier interface {
	Classify(ctx context.Context, url, title string) string
	ClassifyImage(ctx context.Context, imageURL string) string
}

// SentimentScorer never fails; it falls back to neutral.
type SentimentScorer interface {
	Score(ctx context.Context, url, text string) domain.Sentiment
}
