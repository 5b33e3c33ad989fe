package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avelasco/answer-engine/internal/core/domain"
)

type queryServiceFake struct {
	result *domain.QueryResult
	err    error
}

func (f *queryServiceFake) Ask(_ context.Context, req domain.AskRequest) (*domain.QueryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := *f.result
	out.Query = req.Query
	return &out, nil
}

type ingestorFake struct {
	doc       *domain.Document
	sourceURL string
	err       error
}

func (f *ingestorFake) Upload(_ context.Context, filename, mimeType, sourceURL string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sourceURL = sourceURL
	_, _ = io.Copy(io.Discard, body)
	doc := *f.doc
	doc.Filename = filename
	doc.MimeType = mimeType
	return &doc, nil
}

type docRepoFake struct {
	doc *domain.Document
	err error
}

func (f *docRepoFake) Create(context.Context, *domain.Document) error { return nil }
func (f *docRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}
func (f *docRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func completedResult() *domain.QueryResult {
	web := make(map[domain.Category][]string, len(domain.AllCategories()))
	for _, cat := range domain.AllCategories() {
		web[cat] = []string{}
	}
	web[domain.CategoryAcademic] = []string{"https://arxiv.org/abs/1"}
	return &domain.QueryResult{
		Answer: "the answer",
		Sources: domain.SourceSet{
			KnowledgeBase: []string{"kbdoc1"},
			Web:           web,
		},
		RelatedPrompts: []string{"follow up one", "follow up two"},
	}
}

func TestChatReturnsResultAndCachesSources(t *testing.T) {
	router := NewRouter(&queryServiceFake{result: completedResult()}, &ingestorFake{}, &docRepoFake{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/chat", "application/json",
		strings.NewReader(`{"query":"what is rag","session_id":"sess-1"}`))
	if err != nil {
		t.Fatalf("POST /v1/chat error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result domain.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Answer != "the answer" || result.Query != "what is rag" {
		t.Fatalf("unexpected result: %+v", result)
	}

	sourcesResp, err := http.Get(server.URL + "/v1/chat/sources?session_id=sess-1")
	if err != nil {
		t.Fatalf("GET /v1/chat/sources error = %v", err)
	}
	defer sourcesResp.Body.Close()
	if sourcesResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", sourcesResp.StatusCode)
	}
	var sources domain.SourceSet
	if err := json.NewDecoder(sourcesResp.Body).Decode(&sources); err != nil {
		t.Fatalf("decode sources: %v", err)
	}
	if len(sources.KnowledgeBase) != 1 || len(sources.Web[domain.CategoryAcademic]) != 1 {
		t.Fatalf("unexpected sources: %+v", sources)
	}

	relatedResp, err := http.Get(server.URL + "/v1/chat/related?session_id=sess-1")
	if err != nil {
		t.Fatalf("GET /v1/chat/related error = %v", err)
	}
	defer relatedResp.Body.Close()
	var related map[string][]string
	if err := json.NewDecoder(relatedResp.Body).Decode(&related); err != nil {
		t.Fatalf("decode related: %v", err)
	}
	if len(related["related_prompts"]) != 2 {
		t.Fatalf("unexpected related prompts: %+v", related)
	}
}

func TestChatSourcesWithoutCycleIsNotFound(t *testing.T) {
	router := NewRouter(&queryServiceFake{result: completedResult()}, &ingestorFake{}, &docRepoFake{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/chat/sources?session_id=unknown")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestChatMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("query is required")), http.StatusBadRequest},
		{"synthesis failure", domain.WrapError(domain.ErrSynthesisFailed, "synthesize answer", errors.New("llm down")), http.StatusBadGateway},
		{"temporary", domain.WrapError(domain.ErrTemporary, "nats publish", errors.New("no servers")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(&queryServiceFake{err: tt.err}, &ingestorFake{}, &docRepoFake{})
			server := httptest.NewServer(router.Handler())
			defer server.Close()

			resp, err := http.Post(server.URL+"/v1/chat", "application/json",
				strings.NewReader(`{"query":"q"}`))
			if err != nil {
				t.Fatalf("POST error = %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestUploadDocumentAcceptsMultipart(t *testing.T) {
	ingestor := &ingestorFake{doc: &domain.Document{ID: "doc-1", Status: domain.StatusUploaded}}
	router := NewRouter(&queryServiceFake{result: completedResult()}, ingestor, &docRepoFake{})
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write([]byte("hello"))
	_ = writer.WriteField("source_url", "https://example.com/notes")
	_ = writer.Close()

	resp, err := http.Post(server.URL+"/v1/documents", writer.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /v1/documents error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if ingestor.sourceURL != "https://example.com/notes" {
		t.Fatalf("expected source_url forwarded, got %q", ingestor.sourceURL)
	}
}

func TestGetDocumentByIDNotFound(t *testing.T) {
	repo := &docRepoFake{err: domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("id missing"))}
	router := NewRouter(&queryServiceFake{result: completedResult()}, &ingestorFake{}, repo)
	server := httptest.NewServer(router.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/documents/missing")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
