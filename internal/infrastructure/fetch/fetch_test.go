package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentEnricher/internal/domain"
)

func TestGetReadsBodyAndSendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	resp, err := Get(context.Background(), srv.Client(), srv.URL, Options{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(resp.Body))
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Equal(t, BrowserUserAgent, gotUA)
}

func TestGetNon2xxIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), srv.Client(), srv.URL, Options{})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestGetEnforcesSizeLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	_, err := Get(context.Background(), srv.Client(), srv.URL, Options{MaxBytes: 10})
	require.True(t, errors.Is(err, ErrTooLarge))
}

func TestGetTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := Get(context.Background(), srv.Client(), srv.URL, Options{Timeout: 20 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestHead(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/favicon.ico" {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.True(t, Head(context.Background(), srv.Client(), srv.URL+"/favicon.ico", time.Second))
	assert.False(t, Head(context.Background(), srv.Client(), srv.URL+"/missing", time.Second))
}
