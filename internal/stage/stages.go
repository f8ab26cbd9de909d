package stage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/ports"
)

// NewMetadata scrapes the page and falls back to embed metadata when the
// scrape fails or leaves title/preview empty.
func NewMetadata(scraper ports.MetadataScraper, resolver ports.EndpointResolver, embeds ports.EmbedFetcher, timeout time.Duration) Stage {
	return New(Metadata, timeout, func(ctx context.Context, ws *Workspace) (domain.Patch, error) {
		item := ws.Item()
		if strings.TrimSpace(item.URL) == "" {
			return domain.Patch{}, fmt.Errorf("metadata: %w: item has no url", domain.ErrNoContent)
		}

		md, scrapeErr := scraper.Scrape(ctx, item.URL)
		if scrapeErr != nil || md.Title == "" || md.PreviewImageURL == "" {
			if embed, ok := lookupEmbed(ctx, resolver, embeds, item.URL); ok {
				md = fillFromEmbed(md, embed)
				if scrapeErr != nil && md.Title != "" {
					scrapeErr = nil
				}
			}
		}
		if scrapeErr != nil {
			return domain.Patch{}, fmt.Errorf("metadata: %w", scrapeErr)
		}

		ws.SetPage(md.HTML, md.Title, md.Description)

		return domain.Patch{
			Title:       domain.StringPtr(md.Title),
			Description: domain.StringPtr(md.Description),
			FaviconURL:  domain.StringPtr(md.FaviconURL),
			ImageURL:    domain.StringPtr(md.PreviewImageURL),
		}, nil
	})
}

func lookupEmbed(ctx context.Context, resolver ports.EndpointResolver, embeds ports.EmbedFetcher, pageURL string) (domain.PageMetadata, bool) {
	if resolver == nil || embeds == nil {
		return domain.PageMetadata{}, false
	}
	endpoint, ok := resolver.Resolve(ctx, pageURL)
	if !ok {
		return domain.PageMetadata{}, false
	}
	md, err := embeds.FetchEmbed(ctx, endpoint)
	if err != nil {
		return domain.PageMetadata{}, false
	}
	return md, true
}

func fillFromEmbed(md, embed domain.PageMetadata) domain.PageMetadata {
	if md.Title == "" {
		md.Title = embed.Title
	}
	if md.Description == "" {
		md.Description = embed.Description
	}
	if md.PreviewImageURL == "" {
		md.PreviewImageURL = embed.PreviewImageURL
	}
	return md
}

// NewReadable extracts the main article text from the scraped HTML.
func NewReadable(extractor ports.ArticleExtractor, timeout time.Duration) Stage {
	return New(Readable, timeout, func(ctx context.Context, ws *Workspace) (domain.Patch, error) {
		html := ws.HTML()
		if html == "" {
			return domain.Patch{}, fmt.Errorf("readable: %w: no scraped html", domain.ErrNoContent)
		}
		article, err := extractor.ExtractArticle(ctx, html, ws.Item().URL)
		if err != nil {
			return domain.Patch{}, fmt.Errorf("readable: %w", err)
		}
		if article == nil || strings.TrimSpace(article.PlainText) == "" {
			return domain.Patch{}, fmt.Errorf("readable: %w", domain.ErrNoContent)
		}
		ws.SetText(article.PlainText)
		return domain.Patch{}, nil
	})
}

// NewDocument summarizes a linked document. Errors propagate so the run can be
// marked failed; an empty document yields no summary and no error.
func NewDocument(summarizer ports.DocumentSummarizer, timeout time.Duration) Stage {
	return New(Document, timeout, func(ctx context.Context, ws *Workspace) (domain.Patch, error) {
		markdown, text, err := summarizer.SummarizeDocument(ctx, ws.Item().URL)
		if err != nil {
			return domain.Patch{}, fmt.Errorf("document: %w", err)
		}
		if text != "" {
			ws.SetText(text)
		}
		return domain.Patch{Summary: domain.StringPtr(markdown)}, nil
	})
}

// NewImage re-encodes the image and extracts its palette.
func NewImage(processor ports.ImageProcessor, timeout time.Duration) Stage {
	return New(Image, timeout, func(ctx context.Context, ws *Workspace) (domain.Patch, error) {
		item := ws.Item()
		src := item.ImageURL
		if src == "" {
			src = item.URL
		}
		if src == "" {
			return domain.Patch{}, fmt.Errorf("image: %w: item has no image url", domain.ErrNoContent)
		}

		data, err := processor.Fetch(ctx, src)
		if err != nil {
			return domain.Patch{}, fmt.Errorf("image: %w", err)
		}

		palette, err := processor.ExtractPalette(data)
		if err != nil {
			return domain.Patch{}, fmt.Errorf("image palette: %w", err)
		}

		patch := domain.Patch{}.WithPalette(palette)
		if stored := processor.Reencode(ctx, data, item.UserID, item.ID); stored != "" {
			patch.ImageURL = domain.StringPtr(stored)
		}
		return patch, nil
	})
}

// NewTags extracts keywords from the text produced upstream. Links without
// readable text degrade; notes and voice memos always get a (possibly empty) set.
func NewTags(extractor ports.TagExtractor, timeout time.Duration) Stage {
	return New(Tags, timeout, func(_ context.Context, ws *Workspace) (domain.Patch, error) {
		text := ws.Text()
		if text == "" && ws.Item().Type == domain.TypeLink {
			return domain.Patch{}, fmt.Errorf("tags: %w: no input text", domain.ErrNoContent)
		}
		return domain.Patch{}.WithTags(extractor.ExtractTags(text)), nil
	})
}

// NewClassification assigns the content-type label.
func NewClassification(classifier ports.Classifier, timeout time.Duration) Stage {
	return New(Classification, timeout, func(ctx context.Context, ws *Workspace) (domain.Patch, error) {
		item := ws.Item()
		var label string
		if item.Type == domain.TypeImage {
			src := item.ImageURL
			if src == "" {
				src = item.URL
			}
			label = classifier.ClassifyImage(ctx, src)
		} else {
			label = classifier.Classify(ctx, item.URL, ws.Title())
		}
		return domain.Patch{ContentType: domain.StringPtr(label)}, nil
	})
}

// NewSentiment scores the best available text.
func NewSentiment(scorer ports.SentimentScorer, timeout time.Duration) Stage {
	return New(Sentiment, timeout, func(ctx context.Context, ws *Workspace) (domain.Patch, error) {
		text := ws.Text()
		if text == "" {
			text = ws.Description()
		}
		if text == "" {
			text = ws.Title()
		}
		s := scorer.Score(ctx, ws.Item().URL, text)
		return domain.Patch{Sentiment: &s}, nil
	})
}
