package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPublishAlertPostsForm(t *testing.T) {
	t.Parallel()

	var path, chatID, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		chatID = r.PostForm.Get("chat_id")
		text = r.PostForm.Get("text")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, "token", "42")
	if err := n.PublishAlert(context.Background(), "content c1 failed: document"); err != nil {
		t.Fatalf("PublishAlert() error = %v", err)
	}

	if path != "/bottoken/sendMessage" {
		t.Errorf("path = %s", path)
	}
	if chatID != "42" || text != "content c1 failed: document" {
		t.Errorf("unexpected form: chat=%s text=%s", chatID, text)
	}
}

func TestPublishAlertReportsAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"ok":false,"description":"bot was blocked"}`))
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL, "token", "42").PublishAlert(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPublishAlertRequiresCredentials(t *testing.T) {
	t.Parallel()

	n := NewNotifier("", "", "")
	if n.Configured() {
		t.Fatal("empty notifier must not be configured")
	}
	if err := n.PublishAlert(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
