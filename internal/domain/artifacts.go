package domain

// PageMetadata is the best-effort result of scraping a page. Every field may be empty.
type PageMetadata struct {
	Title           string
	Description     string
	FaviconURL      string
	PreviewImageURL string
	// HTML is the raw document, kept for readable-text extraction.
	HTML string
}

// Article is the main readable content of a page.
type Article struct {
	Title     string
	BodyHTML  string
	PlainText string
	Excerpt   string
	Byline    string
}
