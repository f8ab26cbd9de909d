// Package oembed resolves embed endpoints for pages and reads their metadata.
package oembed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"

	"ContentEnricher/internal/infrastructure/fetch"
	"ContentEnricher/internal/ports"
)

const (
	defaultDiscoveryTimeout = 5 * time.Second
	discoveryUserAgent      = "ContentEnricher-Embed/1.0 (+https://github.com/ContentEnricher)"
	graphAPIBase            = "https://graph.facebook.com/v19.0"
	maxDiscoveryBytes       = 2 << 20
)

type provider struct {
	match    string
	endpoint string
}

// providers is matched by domain substring in order; the first match wins.
var providers = []provider{
	{match: "youtube.com", endpoint: "https://www.youtube.com/oembed"},
	{match: "youtu.be", endpoint: "https://www.youtube.com/oembed"},
	{match: "vimeo.com", endpoint: "https://vimeo.com/api/oembed.json"},
	{match: "twitter.com", endpoint: "https://publish.twitter.com/oembed"},
	{match: "x.com", endpoint: "https://publish.twitter.com/oembed"},
	{match: "tiktok.com", endpoint: "https://www.tiktok.com/oembed"},
	{match: "reddit.com", endpoint: "https://www.reddit.com/oembed"},
	{match: "spotify.com", endpoint: "https://open.spotify.com/oembed"},
	{match: "soundcloud.com", endpoint: "https://soundcloud.com/oembed"},
	{match: "flickr.com", endpoint: "https://www.flickr.com/services/oembed/"},
}

// graphProviders need app credentials; without them discovery is used.
var graphProviders = map[string]string{
	"facebook.com":  "oembed_post",
	"fb.watch":      "oembed_video",
	"instagram.com": "instagram_oembed",
}

// Credentials are the app id/secret pair for the Graph oEmbed API.
type Credentials struct {
	AppID     string
	AppSecret string
}

func (c Credentials) valid() bool {
	return c.AppID != "" && c.AppSecret != ""
}

// Resolver maps page URLs to oEmbed endpoints. Discovered endpoints are cached
// per domain for the process lifetime; failed discoveries are not cached.
type Resolver struct {
	client  *http.Client
	timeout time.Duration
	creds   Credentials
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
}

var _ ports.EndpointResolver = (*Resolver)(nil)

// NewResolver builds a resolver; client and logger may be nil.
func NewResolver(client *http.Client, creds Credentials, log *slog.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		client:  client,
		timeout: defaultDiscoveryTimeout,
		creds:   creds,
		logger:  log,
		cache:   map[string]string{},
	}
}

// Resolve returns the full endpoint URL (with the page url parameter) for pageURL.
func (r *Resolver) Resolve(ctx context.Context, pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	host := domainOf(u)

	for _, p := range providers {
		if hostMatches(host, p.match) {
			return withPage(p.endpoint, pageURL), true
		}
	}

	for match, edge := range graphProviders {
		if hostMatches(host, match) && r.creds.valid() {
			endpoint := fmt.Sprintf("%s/%s?access_token=%s", graphAPIBase, edge,
				url.QueryEscape(r.creds.AppID+"|"+r.creds.AppSecret))
			return withPage(endpoint, pageURL), true
		}
	}

	if base, ok := r.cached(host); ok {
		return withPage(base, pageURL), true
	}

	v, err, _ := r.group.Do(host, func() (any, error) {
		if base, ok := r.cached(host); ok {
			return base, nil
		}
		base, err := r.discover(ctx, pageURL)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.cache[host] = base
		r.mu.Unlock()
		return base, nil
	})
	if err != nil {
		r.logger.Debug("oembed discovery failed", "domain", host, "error", err)
		return "", false
	}
	return withPage(v.(string), pageURL), true
}

func (r *Resolver) cached(host string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	base, ok := r.cache[host]
	return base, ok
}

// discover fetches the page and reads the advertised JSON oEmbed link.
func (r *Resolver) discover(ctx context.Context, pageURL string) (string, error) {
	resp, err := fetch.Get(ctx, r.client, pageURL, fetch.Options{
		Timeout:   r.timeout,
		MaxBytes:  maxDiscoveryBytes,
		UserAgent: discoveryUserAgent,
	})
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	href := strings.TrimSpace(doc.Find(`link[type="application/json+oembed"]`).First().AttrOr("href", ""))
	if href == "" {
		return "", fmt.Errorf("no oembed link on %s", pageURL)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid oembed link %q: %w", href, err)
	}
	page, _ := url.Parse(pageURL)
	endpoint := page.ResolveReference(ref)

	q := endpoint.Query()
	q.Del("url")
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

func withPage(endpoint, pageURL string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set("url", pageURL)
	if q.Get("format") == "" {
		q.Set("format", "json")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func domainOf(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func hostMatches(host, match string) bool {
	return host == match || strings.HasSuffix(host, "."+match)
}
