package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

// ReadableExtractor pulls the main article out of a page.
type ReadableExtractor struct{}

var _ ports.ArticleExtractor = (*ReadableExtractor)(nil)

// NewReadableExtractor returns a stateless extractor.
func NewReadableExtractor() *ReadableExtractor {
	return &ReadableExtractor{}
}

// ExtractArticle returns nil, nil when the page has no readable article.
// The input is parsed and re-rendered first so readability works on its own
// tree and never on a document another caller holds. Readability itself is
// not interruptible, so ctx is checked between the parse steps.
func (e *ReadableExtractor) ExtractArticle(ctx context.Context, rawHTML, baseURL string) (*domain.Article, error) {
	rawHTML = strings.TrimSpace(rawHTML)
	if rawHTML == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	clone, err := cloneDocument(rawHTML)
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	article, err := readability.FromReader(bytes.NewReader(clone), base)
	if err != nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, nil
	}

	return &domain.Article{
		Title:     strings.TrimSpace(article.Title),
		BodyHTML:  strings.TrimSpace(article.Content),
		PlainText: text,
		Excerpt:   strings.TrimSpace(article.Excerpt),
		Byline:    strings.TrimSpace(article.Byline),
	}, nil
}

func cloneDocument(rawHTML string) ([]byte, error) {
	node, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
