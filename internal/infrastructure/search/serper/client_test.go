package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avelasco/answer-engine/internal/infrastructure/resilience"
)

func noRetryExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: 1,
		BreakerEnabled:   false,
	})
}

func TestSearchParsesOrganicResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "secret" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		var req struct {
			Q   string `json:"q"`
			Num int    `json:"num"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Q != "what is rag" || req.Num != 10 {
			http.Error(w, "unexpected request body", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"RAG paper","link":"https://arxiv.org/abs/1","snippet":"retrieval augmented"},
			{"title":"RAG blog","link":"https://medium.com/p","snippet":""}
		]}`))
	}))
	defer server.Close()

	client := New("secret", server.URL, 100, noRetryExecutor())
	results, err := client.Search(context.Background(), "what is rag")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Link != "https://arxiv.org/abs/1" || results[0].Snippet != "retrieval augmented" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Title != "RAG blog" {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
}

func TestSearchRequiresAPIKey(t *testing.T) {
	client := New("", "http://localhost:0", 100, noRetryExecutor())
	if _, err := client.Search(context.Background(), "q"); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestSearchReportsUpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	client := New("secret", server.URL, 100, noRetryExecutor())
	_, err := client.Search(context.Background(), "q")
	if err == nil {
		t.Fatalf("expected error")
	}
}
