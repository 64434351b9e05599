package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	f, err := New(opts...)
	if err != nil {
		t.Fatalf("failed to create fetcher: %v", err)
	}
	return f
}

func TestFetchPage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprintf(w, "<html><body>ua=%s</body></html>", r.Header.Get("User-Agent"))
		case "/moved":
			http.Redirect(w, r, "/", http.StatusFound)
		case "/missing":
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	f := newTestFetcher(t)

	t.Run("returns body with identity headers", func(t *testing.T) {
		t.Parallel()

		page, err := f.FetchPage(context.Background(), server.URL+"/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", page.StatusCode)
		}
		if !strings.Contains(page.Body, "Chrome/91") {
			t.Errorf("expected browser user agent to be sent, got body %q", page.Body)
		}
		if page.ContentType != "text/html" {
			t.Errorf("expected text/html, got %q", page.ContentType)
		}
	})

	t.Run("follows same-origin redirect", func(t *testing.T) {
		t.Parallel()

		page, err := f.FetchPage(context.Background(), server.URL+"/moved")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.FinalURL != server.URL+"/" {
			t.Errorf("expected final URL %q, got %q", server.URL+"/", page.FinalURL)
		}
		if page.URL != server.URL+"/moved" {
			t.Errorf("expected requested URL to be kept, got %q", page.URL)
		}
	})

	t.Run("non-2xx is a network error", func(t *testing.T) {
		t.Parallel()

		_, err := f.FetchPage(context.Background(), server.URL+"/missing")
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected *NetworkError, got %T", err)
		}
		if netErr.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", netErr.StatusCode)
		}
	})

	t.Run("connection failure is a network error", func(t *testing.T) {
		t.Parallel()

		_, err := f.FetchPage(context.Background(), "http://127.0.0.1:1/")
		if !errors.Is(err, ErrNetwork) {
			t.Errorf("expected ErrNetwork, got %v", err)
		}
	})
}

func TestFetchPage_CrossOriginRedirectStops(t *testing.T) {
	t.Parallel()

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "elsewhere")
	}))
	defer other.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, other.URL+"/", http.StatusFound)
	}))
	defer server.Close()

	_, err := newTestFetcher(t).FetchPage(context.Background(), server.URL+"/")

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if netErr.StatusCode != http.StatusFound {
		t.Errorf("expected status 302, got %d", netErr.StatusCode)
	}
}

func TestFetchPage_BodyIsBounded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		size          int
		wantLen       int
		wantTruncated bool
	}{
		{name: "longer than limit", size: 1000, wantLen: 100, wantTruncated: true},
		{name: "one byte over limit", size: 101, wantLen: 100, wantTruncated: true},
		{name: "exactly the limit", size: 100, wantLen: 100, wantTruncated: false},
		{name: "under the limit", size: 10, wantLen: 10, wantTruncated: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, strings.Repeat("x", tt.size))
			}))
			defer server.Close()

			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))
			f := newTestFetcher(t, WithMaxBodySize(100), WithLogger(logger))

			page, err := f.FetchPage(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Body) != tt.wantLen {
				t.Errorf("expected body of %d bytes, got %d", tt.wantLen, len(page.Body))
			}
			if page.Truncated != tt.wantTruncated {
				t.Errorf("expected truncated=%v, got %v", tt.wantTruncated, page.Truncated)
			}
			if got := strings.Contains(logs.String(), "response body truncated"); got != tt.wantTruncated {
				t.Errorf("expected truncation warning=%v, got logs %q", tt.wantTruncated, logs.String())
			}
		})
	}
}

func TestFetchPage_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		fmt.Fprint(w, "late")
	}))
	defer server.Close()

	_, err := newTestFetcher(t, WithTimeout(50*time.Millisecond)).FetchPage(context.Background(), server.URL)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestFetchScripts(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.js":
			time.Sleep(20 * time.Millisecond)
			fmt.Fprint(w, "var a = 1;")
		case "/b.js":
			fmt.Fprint(w, "var b = 2;")
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	f := newTestFetcher(t, WithScriptConcurrency(2))

	t.Run("results keep input order", func(t *testing.T) {
		t.Parallel()

		blocks, err := f.FetchScripts(context.Background(), []string{server.URL + "/a.js", server.URL + "/b.js"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(blocks) != 2 {
			t.Fatalf("expected 2 blocks, got %d", len(blocks))
		}
		if blocks[0].Source != server.URL+"/a.js" || blocks[0].Content != "var a = 1;" {
			t.Errorf("unexpected first block %+v", blocks[0])
		}
		if blocks[1].Source != server.URL+"/b.js" || blocks[1].Content != "var b = 2;" {
			t.Errorf("unexpected second block %+v", blocks[1])
		}
	})

	t.Run("one failure fails the batch", func(t *testing.T) {
		t.Parallel()

		blocks, err := f.FetchScripts(context.Background(), []string{server.URL + "/a.js", server.URL + "/broken.js"})
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
		if blocks != nil {
			t.Errorf("expected no blocks, got %d", len(blocks))
		}
	})

	t.Run("empty input makes no requests", func(t *testing.T) {
		t.Parallel()

		blocks, err := f.FetchScripts(context.Background(), nil)
		if err != nil || blocks != nil {
			t.Errorf("expected nil, nil; got %v, %v", blocks, err)
		}
	})
}

func TestWithRateLimit(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	f := newTestFetcher(t, WithRateLimit(20))

	start := time.Now()
	for range 3 {
		if _, err := f.FetchPage(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected requests to be spaced by the limiter, took %v", elapsed)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
}

func TestWithRateLimit_CanceledContext(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(t, WithRateLimit(0.001))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.FetchPage(ctx, "http://127.0.0.1:1/")
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestNew_ProxyValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		wantErr bool
	}{
		{"127.0.0.1:9050", false},
		{"localhost:1080", false},
		{"127.0.0.1", true},
		{":9050", true},
		{"127.0.0.1:0", true},
		{"127.0.0.1:70000", true},
		{"127.0.0.1:abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()

			_, err := New(WithProxy(tt.address))
			if tt.wantErr && !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	err := &NetworkError{URL: "https://example.com", Err: cause}

	if !errors.Is(err, ErrNetwork) {
		t.Error("expected errors.Is(err, ErrNetwork)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be unwrapped")
	}
	if !strings.Contains(err.Error(), "refused") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}

	statusErr := &NetworkError{URL: "https://example.com", StatusCode: 503}
	if !strings.Contains(statusErr.Error(), "503") {
		t.Errorf("expected status in message, got %q", statusErr.Error())
	}
}
