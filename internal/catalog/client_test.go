package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	lotrWork = `{
		"title": "The Lord of the Rings",
		"description": {"type": "/type/text", "value": "The epic trilogy."},
		"authors": [{"author": {"key": "/authors/OL26320A"}}]
	}`
	tolkienAuthor = `{
		"key": "/authors/OL26320A",
		"name": "J.R.R. Tolkien",
		"bio": {"type": "/type/text", "value": "English writer and philologist."}
	}`
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/works/OL27448W.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(lotrWork))
	})

	mux.HandleFunc("/authors/OL26320A.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(tolkienAuthor))
	})

	// everything else is a catalog miss
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return httptest.NewServer(mux)
}

func TestFetchEntity(t *testing.T) {
	srv := newCatalogServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, discardLogger(), nil)

	t.Run("known key returns raw document", func(t *testing.T) {
		raw, err := client.FetchEntity(context.Background(), "/works/OL27448W")

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(raw) == 0 {
			t.Fatal("expected a non-empty document")
		}
	})

	t.Run("unknown key is unavailable", func(t *testing.T) {
		_, err := client.FetchEntity(context.Background(), "/works/OL0W")

		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("unreachable catalog is unavailable", func(t *testing.T) {
		down := NewClient("http://127.0.0.1:1", discardLogger(), nil)

		_, err := down.FetchEntity(context.Background(), "/works/OL27448W")

		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestEnrich(t *testing.T) {
	srv := newCatalogServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, discardLogger(), nil)

	meta, err := client.Enrich(context.Background(), "/works/OL27448W")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if meta.Title != "The Lord of the Rings" {
		t.Fatalf("expected catalog title, got %q", meta.Title)
	}

	if meta.Description != "The epic trilogy." {
		t.Fatalf("unexpected description %q", meta.Description)
	}

	if meta.Author.Name != "J.R.R. Tolkien" {
		t.Fatalf("unexpected author name %q", meta.Author.Name)
	}

	if meta.Author.Bio != "English writer and philologist." {
		t.Fatalf("unexpected author bio %q", meta.Author.Bio)
	}
}

func TestEnrichFailsWhenAuthorMissing(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/works/OL1W.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title": "No Author Work", "authors": []}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, discardLogger(), nil)

	_, err := client.Enrich(context.Background(), "/works/OL1W")

	if !errors.Is(err, ErrMissingAuthor) {
		t.Fatalf("expected ErrMissingAuthor, got %v", err)
	}
}

func TestEnrichFailsWhenAuthorFetchFails(t *testing.T) {
	mux := http.NewServeMux()

	mux.HandleFunc("/works/OL1W.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title": "W", "authors": [{"author": {"key": "/authors/OL9A"}}]}`))
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, discardLogger(), nil)

	_, err := client.Enrich(context.Background(), "/works/OL1W")

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
