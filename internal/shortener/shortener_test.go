package shortener

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShortenDisabled(t *testing.T) {
	s := New("", "", discard())
	if got := s.Shorten(context.Background(), "https://t.me/bot?start=x"); got != "https://t.me/bot?start=x" {
		t.Fatalf("disabled shortener rewrote url: %q", got)
	}
}

func TestShorten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api") != "key" {
			http.Error(w, "bad key", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("url") == "" {
			http.Error(w, "no url", http.StatusBadRequest)
			return
		}
		io.WriteString(w, "https://short.example/abc\n")
	}))
	defer srv.Close()

	s := New(srv.URL, "key", discard())
	if got := s.Shorten(context.Background(), "https://t.me/bot?start=x"); got != "https://short.example/abc" {
		t.Fatalf("Shorten = %q", got)
	}
}

func TestShortenFallsBack(t *testing.T) {
	orig := "https://t.me/bot?start=x"

	errSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer errSrv.Close()
	if got := New(errSrv.URL, "key", discard()).Shorten(context.Background(), orig); got != orig {
		t.Fatalf("http error: got %q, want fallback", got)
	}

	junkSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>login required</html>")
	}))
	defer junkSrv.Close()
	if got := New(junkSrv.URL, "key", discard()).Shorten(context.Background(), orig); got != orig {
		t.Fatalf("junk body: got %q, want fallback", got)
	}

	unreachable := New("http://127.0.0.1:1", "key", discard())
	if got := unreachable.Shorten(context.Background(), orig); got != orig {
		t.Fatalf("unreachable: got %q, want fallback", got)
	}
}
