package stage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentEnricher/internal/domain"
)

type scraperFunc func(ctx context.Context, url string) (domain.PageMetadata, error)

func (f scraperFunc) Scrape(ctx context.Context, url string) (domain.PageMetadata, error) {
	return f(ctx, url)
}

type fixedResolver struct {
	endpoint string
	calls    int
}

func (r *fixedResolver) Resolve(context.Context, string) (string, bool) {
	r.calls++
	return r.endpoint, r.endpoint != ""
}

type fixedEmbed struct {
	md  domain.PageMetadata
	err error
}

func (e fixedEmbed) FetchEmbed(context.Context, string) (domain.PageMetadata, error) {
	return e.md, e.err
}

func linkWorkspace(url string) *Workspace {
	return NewWorkspace(domain.ContentItem{ID: "c1", Type: domain.TypeLink, URL: url})
}

func TestMetadataUsesScrapedPage(t *testing.T) {
	t.Parallel()

	scraper := scraperFunc(func(context.Context, string) (domain.PageMetadata, error) {
		return domain.PageMetadata{
			Title:           "Example",
			Description:     "An example article.",
			FaviconURL:      "https://example.com/favicon.ico",
			PreviewImageURL: "https://example.com/og.png",
			HTML:            "<html></html>",
		}, nil
	})
	resolver := &fixedResolver{endpoint: "https://oembed.example.com?url=x"}
	s := NewMetadata(scraper, resolver, fixedEmbed{}, time.Second)
	ws := linkWorkspace("https://example.com/a")

	patch, err := s.Run(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, "Example", *patch.Title)
	assert.Equal(t, "https://example.com/og.png", *patch.ImageURL)
	assert.Equal(t, "<html></html>", ws.HTML())
	assert.Equal(t, "Example", ws.Title())
	assert.Zero(t, resolver.calls)
}

func TestMetadataFallsBackToEmbed(t *testing.T) {
	t.Parallel()

	scraper := scraperFunc(func(context.Context, string) (domain.PageMetadata, error) {
		return domain.PageMetadata{}, errors.New("403 forbidden")
	})
	resolver := &fixedResolver{endpoint: "https://www.youtube.com/oembed?url=x"}
	embeds := fixedEmbed{md: domain.PageMetadata{Title: "A video", PreviewImageURL: "https://i.ytimg.com/x.jpg"}}
	s := NewMetadata(scraper, resolver, embeds, time.Second)

	patch, err := s.Run(context.Background(), linkWorkspace("https://www.youtube.com/watch?v=1"))
	require.NoError(t, err)
	assert.Equal(t, "A video", *patch.Title)
	assert.Equal(t, "https://i.ytimg.com/x.jpg", *patch.ImageURL)
	assert.Nil(t, patch.Description)
}

func TestMetadataFailsWithoutFallback(t *testing.T) {
	t.Parallel()

	scraper := scraperFunc(func(context.Context, string) (domain.PageMetadata, error) {
		return domain.PageMetadata{}, errors.New("dns failure")
	})
	s := NewMetadata(scraper, &fixedResolver{}, fixedEmbed{}, time.Second)

	_, err := s.Run(context.Background(), linkWorkspace("https://nowhere.invalid"))
	require.Error(t, err)

	_, err = s.Run(context.Background(), linkWorkspace(""))
	require.ErrorIs(t, err, domain.ErrNoContent)
}

type articleFunc func(html, base string) (*domain.Article, error)

func (f articleFunc) ExtractArticle(_ context.Context, html, base string) (*domain.Article, error) {
	return f(html, base)
}

func TestReadableNeedsScrapedHTML(t *testing.T) {
	t.Parallel()

	s := NewReadable(articleFunc(func(string, string) (*domain.Article, error) {
		return &domain.Article{PlainText: "body"}, nil
	}), time.Second)

	ws := linkWorkspace("https://example.com")
	_, err := s.Run(context.Background(), ws)
	require.ErrorIs(t, err, domain.ErrNoContent)

	ws.SetPage("<html><p>body</p></html>", "", "")
	patch, err := s.Run(context.Background(), ws)
	require.NoError(t, err)
	assert.True(t, patch.Empty())
	assert.Equal(t, "body", ws.Text())
}

func TestReadableNilArticleIsNoContent(t *testing.T) {
	t.Parallel()

	s := NewReadable(articleFunc(func(string, string) (*domain.Article, error) { return nil, nil }), time.Second)
	ws := linkWorkspace("https://example.com")
	ws.SetPage("<html></html>", "", "")

	_, err := s.Run(context.Background(), ws)
	require.ErrorIs(t, err, domain.ErrNoContent)
}

func TestScopedWritesReachParentOnlyOnCommit(t *testing.T) {
	t.Parallel()

	root := linkWorkspace("https://example.com")
	root.SetPage("<html>root</html>", "Root title", "")

	scope := root.Scope()
	assert.Equal(t, "Root title", scope.Title(), "scope reads through to its parent")

	scope.SetPage("", "Scoped title", "Scoped description")
	scope.SetText("scoped text")
	assert.Equal(t, "Scoped title", scope.Title())
	assert.Equal(t, "<html>root</html>", scope.HTML())
	assert.Equal(t, "Root title", root.Title())
	assert.Empty(t, root.Text())

	abandoned := root.Scope()
	abandoned.SetText("never committed")

	scope.Commit()
	assert.Equal(t, "Scoped title", root.Title())
	assert.Equal(t, "Scoped description", root.Description())
	assert.Equal(t, "scoped text", root.Text())
	assert.Equal(t, "<html>root</html>", root.HTML())

	var nilScope *Workspace
	nilScope.Commit()
	root.Commit()
}

type tagsFunc func(string) []domain.Tag

func (f tagsFunc) ExtractTags(text string) []domain.Tag { return f(text) }

func TestTagsDistinguishesItemTypes(t *testing.T) {
	t.Parallel()

	s := NewTags(tagsFunc(func(string) []domain.Tag { return nil }), time.Second)

	_, err := s.Run(context.Background(), linkWorkspace("https://example.com"))
	require.ErrorIs(t, err, domain.ErrNoContent)

	note := NewWorkspace(domain.ContentItem{Type: domain.TypeNote})
	patch, err := s.Run(context.Background(), note)
	require.NoError(t, err)
	assert.True(t, patch.SetTags)
	assert.NotNil(t, patch.Tags)
}

type scorerFunc func(text string) domain.Sentiment

func (f scorerFunc) Score(_ context.Context, _ string, text string) domain.Sentiment { return f(text) }

func TestSentimentFallsBackThroughTextSources(t *testing.T) {
	t.Parallel()

	var seen string
	s := NewSentiment(scorerFunc(func(text string) domain.Sentiment {
		seen = text
		return domain.NeutralSentiment()
	}), time.Second)

	ws := NewWorkspace(domain.ContentItem{Type: domain.TypeLink, Title: "Only title"})
	_, err := s.Run(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, "Only title", seen)

	ws.SetPage("", "", "A description")
	_, err = s.Run(context.Background(), ws)
	require.NoError(t, err)
	assert.Equal(t, "A description", seen)
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	_, err := reg.Resolve(Tags)
	require.Error(t, err)

	reg.Register(New(Tags, time.Second, func(context.Context, *Workspace) (domain.Patch, error) {
		return domain.Patch{}, nil
	}))
	s, err := reg.Resolve(Tags)
	require.NoError(t, err)
	assert.Equal(t, Tags, s.Name())
	assert.Equal(t, time.Second, s.Timeout())
}

func TestNoteWorkspaceSeedsText(t *testing.T) {
	t.Parallel()

	ws := NewWorkspace(domain.ContentItem{Type: domain.TypeNote, Title: "Title", Description: "Body"})
	assert.Equal(t, "Title\n\nBody", ws.Text())
}
