// Package search pushes enriched records to Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	es "github.com/elastic/go-elasticsearch/v8"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

const (
	defaultIndex          = "content"
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
)

// Config describes the cluster and the retry budget for one index call.
type Config struct {
	Addresses      []string
	Username       string
	Password       string `json:"-"`
	APIKey         string `json:"-"`
	Index          string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Indexer writes one document per content item, keyed by item id.
type Indexer struct {
	client *es.Client
	cfg    Config
	log    *slog.Logger
}

var _ ports.SearchIndexer = (*Indexer)(nil)

type document struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Type         string            `json:"type"`
	ContentType  string            `json:"content_type,omitempty"`
	URL          string            `json:"url,omitempty"`
	Title        string            `json:"title,omitempty"`
	Description  string            `json:"description,omitempty"`
	Summary      string            `json:"summary,omitempty"`
	ImageURL     string            `json:"image_url,omitempty"`
	FaviconURL   string            `json:"favicon_url,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	ColorPalette []string          `json:"color_palette,omitempty"`
	Sentiment    *domain.Sentiment `json:"sentiment,omitempty"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// NewIndexer builds the client. The client's own retry is disabled; Index
// retries with exponential backoff instead.
func NewIndexer(cfg Config, log *slog.Logger) (*Indexer, error) {
	if len(cfg.Addresses) == 0 {
		cfg.Addresses = []string{"http://localhost:9200"}
	}
	for i, addr := range cfg.Addresses {
		if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
			cfg.Addresses[i] = "http://" + addr
		}
	}
	if cfg.Index == "" {
		cfg.Index = defaultIndex
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := es.NewClient(es.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		APIKey:       cfg.APIKey,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &Indexer{client: client, cfg: cfg, log: log.With("component", "search_indexer")}, nil
}

// Index upserts the record. 5xx and 429 responses are retried; other
// errors are returned immediately.
func (i *Indexer) Index(ctx context.Context, item domain.ContentItem) error {
	body, err := json.Marshal(toDocument(item))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		res, err := i.client.Index(
			i.cfg.Index,
			bytes.NewReader(body),
			i.client.Index.WithContext(ctx),
			i.client.Index.WithDocumentID(item.ID),
		)
		if err != nil {
			return fmt.Errorf("failed to index document: %w", err)
		}
		defer res.Body.Close()

		if res.IsError() {
			err := fmt.Errorf("error indexing document %s: %s", item.ID, res.String())
			if res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests {
				i.log.Warn("index attempt failed", "content_id", item.ID, "attempt", attempt, "status", res.StatusCode)
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(i.newBackOff(), uint64(i.cfg.MaxAttempts-1)), ctx))
}

// Ping checks the cluster is reachable.
func (i *Indexer) Ping(ctx context.Context) error {
	res, err := i.client.Ping(i.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping elasticsearch: %s", res.String())
	}
	return nil
}

func (i *Indexer) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = i.cfg.InitialBackoff
	exp.Multiplier = 2
	exp.MaxInterval = i.cfg.MaxBackoff
	exp.Reset()
	return exp
}

func toDocument(item domain.ContentItem) document {
	doc := document{
		ID:           item.ID,
		UserID:       item.UserID,
		Type:         string(item.Type),
		ContentType:  item.ContentType,
		URL:          item.URL,
		Title:        item.Title,
		Description:  item.Description,
		Summary:      item.Summary,
		ImageURL:     item.ImageURL,
		FaviconURL:   item.FaviconURL,
		ColorPalette: item.ColorPalette,
		Sentiment:    item.Sentiment,
		Status:       string(item.Status),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
	for _, tag := range item.Tags {
		doc.Tags = append(doc.Tags, tag.Name)
	}
	return doc
}
