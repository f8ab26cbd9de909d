package parser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/infrastructure/fetch"
	"ContentEnricher/internal/ports"
)

const (
	defaultScrapeTimeout  = 8 * time.Second
	defaultFaviconTimeout = 2 * time.Second
	maxPageBytes          = 5 << 20
)

// MetadataScraper fetches a page and reads its title, description and icons.
type MetadataScraper struct {
	client         *http.Client
	timeout        time.Duration
	faviconTimeout time.Duration
}

var _ ports.MetadataScraper = (*MetadataScraper)(nil)

// NewMetadataScraper wires an HTTP client; timeout defaults to 8s.
func NewMetadataScraper(client *http.Client, timeout time.Duration) *MetadataScraper {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	if timeout <= 0 {
		timeout = defaultScrapeTimeout
	}
	return &MetadataScraper{client: client, timeout: timeout, faviconTimeout: defaultFaviconTimeout}
}

// Scrape returns best-effort metadata. Only fetch/parse failures are errors.
func (s *MetadataScraper) Scrape(ctx context.Context, pageURL string) (domain.PageMetadata, error) {
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		return domain.PageMetadata{}, fmt.Errorf("invalid page url %q", pageURL)
	}

	doc, html, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return domain.PageMetadata{}, err
	}

	md := domain.PageMetadata{
		Title:           pageTitle(doc),
		Description:     pageDescription(doc),
		PreviewImageURL: resolveRef(base, firstMeta(doc, "og:image", "twitter:image", "twitter:image:src")),
		HTML:            html,
	}

	md.FaviconURL = resolveRef(base, faviconHref(doc))
	if md.FaviconURL == "" {
		probe := base.ResolveReference(&url.URL{Path: "/favicon.ico"}).String()
		if fetch.Head(ctx, s.client, probe, s.faviconTimeout) {
			md.FaviconURL = probe
		}
	}

	return md, nil
}

func (s *MetadataScraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, string, error) {
	resp, err := fetch.Get(ctx, s.client, pageURL, fetch.Options{
		Timeout:  s.timeout,
		MaxBytes: maxPageBytes,
		Accept:   "text/html,application/xhtml+xml",
	})
	if err != nil {
		return nil, "", fmt.Errorf("request document: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, "", fmt.Errorf("parse document: %w", err)
	}

	return doc, string(resp.Body), nil
}

func pageTitle(doc *goquery.Document) string {
	if title := clean(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if title := clean(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return firstMeta(doc, "og:title", "twitter:title")
}

func pageDescription(doc *goquery.Document) string {
	return firstMeta(doc, "description", "og:description", "twitter:description")
}

// firstMeta returns the content of the first non-empty meta tag, matching
// both name= and property= attributes, in key order.
func firstMeta(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		sel := fmt.Sprintf(`meta[name="%[1]s"], meta[property="%[1]s"]`, key)
		var found string
		doc.Find(sel).EachWithBreak(func(_ int, m *goquery.Selection) bool {
			found = clean(m.AttrOr("content", ""))
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func faviconHref(doc *goquery.Document) string {
	byRel := map[string]string{}
	doc.Find("link[rel][href]").Each(func(_ int, l *goquery.Selection) {
		rel := strings.ToLower(strings.TrimSpace(l.AttrOr("rel", "")))
		href := strings.TrimSpace(l.AttrOr("href", ""))
		if href == "" {
			return
		}
		if _, ok := byRel[rel]; !ok {
			byRel[rel] = href
		}
	})

	for _, rel := range []string{"apple-touch-icon", "icon", "shortcut icon"} {
		if href := byRel[rel]; href != "" {
			return href
		}
	}
	return ""
}

func resolveRef(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
