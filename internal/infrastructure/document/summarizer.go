// Package document extracts text from linked PDFs and summarizes it.
package document

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/infrastructure/fetch"
	"ContentEnricher/internal/ports"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxBytes     = 25 << 20
	defaultMaxPages     = 5
	defaultMaxChars     = 12000
	summaryHeading      = "## Summary"
)

// SummaryOptions targets roughly four to six sentences with greedy decoding.
var SummaryOptions = ports.SummaryOptions{
	MinLength:         80,
	MaxLength:         200,
	DoSample:          false,
	NoRepeatNgramSize: 3,
}

// Config bounds fetching and extraction.
type Config struct {
	FetchTimeout time.Duration
	MaxBytes     int64
	MaxPages     int
	MaxChars     int
}

// Summarizer fetches a document, reads its first pages and asks the
// summarization model for an abstract.
type Summarizer struct {
	client     *http.Client
	summarizer ports.Summarizer
	cfg        Config
	extract    func(data []byte, maxPages int) (string, error)
}

var _ ports.DocumentSummarizer = (*Summarizer)(nil)

// NewSummarizer applies defaults to zero config values.
func NewSummarizer(client *http.Client, summarizer ports.Summarizer, cfg Config) *Summarizer {
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	return &Summarizer{client: client, summarizer: summarizer, cfg: cfg, extract: pdfText}
}

// SummarizeDocument returns a markdown summary and the extracted text. A
// document without text yields empty strings and no error.
func (s *Summarizer) SummarizeDocument(ctx context.Context, docURL string) (string, string, error) {
	resp, err := fetch.Get(ctx, s.client, docURL, fetch.Options{
		Timeout:  s.cfg.FetchTimeout,
		MaxBytes: s.cfg.MaxBytes,
		Accept:   "application/pdf",
	})
	if err != nil {
		return "", "", fmt.Errorf("fetch document: %w", err)
	}

	text, err := s.extract(resp.Body, s.cfg.MaxPages)
	if err != nil {
		return "", "", fmt.Errorf("extract document text: %w", err)
	}
	text = truncate(normalizeSpace(text), s.cfg.MaxChars)
	if text == "" {
		return "", "", nil
	}

	if s.summarizer == nil {
		return "", text, fmt.Errorf("summarize: %w", domain.ErrInferenceUnavailable)
	}
	summary, err := s.summarizer.Summarize(ctx, text, SummaryOptions)
	if err != nil {
		return "", text, fmt.Errorf("summarize: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", text, fmt.Errorf("summarize: %w: empty summary", domain.ErrInferenceUnavailable)
	}

	return summaryHeading + "\n\n" + summary + "\n", text, nil
}

func pdfText(data []byte, maxPages int) (out string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			out, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := r.NumPage()
	if pages > maxPages {
		pages = maxPages
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most n runes, preferring a word boundary.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return cut
}
