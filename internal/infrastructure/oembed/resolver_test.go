package oembed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStaticProvider(t *testing.T) {
	t.Parallel()

	r := NewResolver(nil, Credentials{}, nil)
	endpoint, ok := r.Resolve(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.True(t, ok)

	u, err := url.Parse(endpoint)
	require.NoError(t, err)
	assert.Equal(t, "www.youtube.com", u.Host)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", u.Query().Get("url"))
	assert.Equal(t, "json", u.Query().Get("format"))
}

func TestResolveDoesNotMatchLookalikeDomains(t *testing.T) {
	t.Parallel()

	assert.True(t, hostMatches("mobile.x.com", "x.com"))
	assert.False(t, hostMatches("box.com", "x.com"))
}

func TestResolveGraphProviderNeedsCredentials(t *testing.T) {
	t.Parallel()

	withCreds := NewResolver(nil, Credentials{AppID: "id", AppSecret: "secret"}, nil)
	endpoint, ok := withCreds.Resolve(context.Background(), "https://www.instagram.com/p/xyz/")
	require.True(t, ok)
	assert.Contains(t, endpoint, "graph.facebook.com")
	assert.Contains(t, endpoint, "instagram_oembed")
}

func discoveryServer(t *testing.T, hits *atomic.Int32, advertise bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("User-Agent") != discoveryUserAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		if !advertise {
			_, _ = w.Write([]byte(`<html><head><title>plain</title></head></html>`))
			return
		}
		_, _ = fmt.Fprintf(w, `<html><head>
		  <link rel="alternate" type="application/json+oembed" href="/oembed?url=%s&format=json">
		</head></html>`, url.QueryEscape("http://"+r.Host+r.URL.Path))
	}))
}

func TestResolveCachesDiscoveryPerDomain(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := discoveryServer(t, &hits, true)
	defer srv.Close()

	r := NewResolver(srv.Client(), Credentials{}, nil)

	first, ok := r.Resolve(context.Background(), srv.URL+"/post/1")
	require.True(t, ok)
	second, ok := r.Resolve(context.Background(), srv.URL+"/post/2")
	require.True(t, ok)

	assert.Equal(t, int32(1), hits.Load())

	u1, _ := url.Parse(first)
	u2, _ := url.Parse(second)
	assert.Equal(t, "/oembed", u1.Path)
	assert.Equal(t, srv.URL+"/post/1", u1.Query().Get("url"))
	assert.Equal(t, srv.URL+"/post/2", u2.Query().Get("url"))
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := discoveryServer(t, &hits, false)
	defer srv.Close()

	r := NewResolver(srv.Client(), Credentials{}, nil)

	_, ok := r.Resolve(context.Background(), srv.URL+"/a")
	assert.False(t, ok)
	_, ok = r.Resolve(context.Background(), srv.URL+"/b")
	assert.False(t, ok)

	assert.Equal(t, int32(2), hits.Load())
}

func TestResolveConcurrentLookupsShareOneDiscovery(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := discoveryServer(t, &hits, true)
	defer srv.Close()

	r := NewResolver(srv.Client(), Credentials{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Resolve(context.Background(), fmt.Sprintf("%s/p/%d", srv.URL, i))
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchEmbed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"video","title":"A talk","author_name":"Dana","provider_name":"Vimeo","thumbnail_url":"https://i.vimeocdn.com/t.jpg"}`))
	}))
	defer srv.Close()

	md, err := NewFetcher(srv.Client()).FetchEmbed(context.Background(), srv.URL+"/oembed?url=x")
	require.NoError(t, err)
	assert.Equal(t, "A talk", md.Title)
	assert.Equal(t, "Dana on Vimeo", md.Description)
	assert.Equal(t, "https://i.vimeocdn.com/t.jpg", md.PreviewImageURL)
}

func TestFetchEmbedBadJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := NewFetcher(srv.Client()).FetchEmbed(context.Background(), srv.URL)
	require.Error(t, err)
}
