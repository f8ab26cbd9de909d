package oembed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/infrastructure/fetch"
	"ContentEnricher/internal/ports"
)

const maxEmbedBytes = 512 << 10

type embedResponse struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ProviderName string `json:"provider_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	URL          string `json:"url"`
}

// Fetcher reads oEmbed JSON documents.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

var _ ports.EmbedFetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Fetcher{client: client, timeout: defaultDiscoveryTimeout}
}

// FetchEmbed maps the oEmbed fields onto page metadata.
func (f *Fetcher) FetchEmbed(ctx context.Context, endpoint string) (domain.PageMetadata, error) {
	resp, err := fetch.Get(ctx, f.client, endpoint, fetch.Options{
		Timeout:   f.timeout,
		MaxBytes:  maxEmbedBytes,
		UserAgent: discoveryUserAgent,
		Accept:    "application/json",
	})
	if err != nil {
		return domain.PageMetadata{}, err
	}

	var er embedResponse
	if err := json.Unmarshal(resp.Body, &er); err != nil {
		return domain.PageMetadata{}, fmt.Errorf("decode oembed: %w", err)
	}

	md := domain.PageMetadata{
		Title:           strings.TrimSpace(er.Title),
		PreviewImageURL: strings.TrimSpace(er.ThumbnailURL),
	}
	if md.PreviewImageURL == "" && er.Type == "photo" {
		md.PreviewImageURL = strings.TrimSpace(er.URL)
	}
	switch {
	case er.AuthorName != "" && er.ProviderName != "":
		md.Description = fmt.Sprintf("%s on %s", er.AuthorName, er.ProviderName)
	case er.AuthorName != "":
		md.Description = er.AuthorName
	}
	return md, nil
}
