package osv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nao1215/jsrecon/internal/model"
)

var testLibs = []model.LibrarySignature{
	{Name: "jquery", Version: "1.8.1"},
	{Name: "react", Version: "18.2.0"},
}

func TestQueryBatch(t *testing.T) {
	t.Parallel()

	requests := make(chan batchRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/querybatch" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		requests <- req
		fmt.Fprint(w, `{"results":[{"vulns":[{"id":"GHSA-aaaa","modified":"2024-01-01T00:00:00Z"}]},{}]}`)
	}))
	defer server.Close()

	results, err := NewClient(WithEndpoint(server.URL)).QueryBatch(context.Background(), testLibs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	received := <-requests
	if len(received.Queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(received.Queries))
	}
	if received.Queries[0].Package.Name != "jquery" || received.Queries[0].Package.Ecosystem != "npm" {
		t.Errorf("unexpected first query %+v", received.Queries[0])
	}
	if received.Queries[1].Version != "18.2.0" {
		t.Errorf("unexpected second query %+v", received.Queries[1])
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(results[0].Vulns) != 1 || results[0].Vulns[0].ID != "GHSA-aaaa" {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if len(results[1].Vulns) != 0 {
		t.Errorf("expected no vulns for second library, got %+v", results[1])
	}
}

func TestQueryBatch_EmptyInputMakesNoRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer server.Close()

	results, err := NewClient(WithEndpoint(server.URL)).QueryBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
	if calls.Load() != 0 {
		t.Errorf("expected no requests, got %d", calls.Load())
	}
}

func TestQueryBatch_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "down", http.StatusServiceUnavailable)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"results": [`)
			},
		},
		{
			name: "result count mismatch",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"results":[{}]}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tt.handler)
			defer server.Close()

			results, err := NewClient(WithEndpoint(server.URL)).QueryBatch(context.Background(), testLibs)
			if !errors.Is(err, ErrAdvisoryLookup) {
				t.Errorf("expected ErrAdvisoryLookup, got %v", err)
			}
			if results == nil || len(results) != 0 {
				t.Errorf("expected empty non-nil result, got %v", results)
			}
		})
	}

	t.Run("unreachable endpoint", func(t *testing.T) {
		t.Parallel()

		_, err := NewClient(WithEndpoint("http://127.0.0.1:1")).QueryBatch(context.Background(), testLibs)
		if !errors.Is(err, ErrAdvisoryLookup) {
			t.Errorf("expected ErrAdvisoryLookup, got %v", err)
		}
	})
}

func TestQueryBatch_WithDetails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/querybatch":
			fmt.Fprint(w, `{"results":[{"vulns":[{"id":"GHSA-aaaa"},{"id":"GHSA-gone"}]},{"vulns":[{"id":"GHSA-aaaa"}]}]}`)
		case r.URL.Path == "/v1/vulns/GHSA-aaaa":
			fmt.Fprint(w, `{"id":"GHSA-aaaa","summary":"XSS in html()","aliases":["CVE-2020-11022"]}`)
		case strings.HasPrefix(r.URL.Path, "/v1/vulns/"):
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(WithEndpoint(server.URL+"/"), WithDetails(true))
	results, err := client.QueryBatch(context.Background(), testLibs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := results[0].Vulns[0]
	if first.Summary != "XSS in html()" || len(first.Aliases) != 1 {
		t.Errorf("expected hydrated advisory, got %+v", first)
	}
	if results[1].Vulns[0].Summary != "XSS in html()" {
		t.Errorf("expected shared advisory to be hydrated everywhere, got %+v", results[1].Vulns[0])
	}
	gone := results[0].Vulns[1]
	if gone.ID != "GHSA-gone" || gone.Summary != "" {
		t.Errorf("expected bare advisory to be kept on lookup failure, got %+v", gone)
	}
}
