package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/avelasco/answer-engine/internal/core/domain"
	"github.com/avelasco/answer-engine/internal/core/ports"
	"github.com/avelasco/answer-engine/internal/core/provenance"
)

// kbReferenceFallback names chunks that carry neither a public URL nor a
// source field.
const kbReferenceFallback = "knowledge-base"

const defaultWebContextMaxChars = 4000

// ContextRetriever turns a query into a context string for synthesis and
// reports every consulted reference to the cycle's collector.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, col *provenance.Collector) (string, error)
}

// KnowledgeBaseRetriever answers from the vector-indexed knowledge base.
type KnowledgeBaseRetriever struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	limit    int
}

func NewKnowledgeBaseRetriever(embedder ports.Embedder, vectorDB ports.VectorStore, limit int) *KnowledgeBaseRetriever {
	if limit <= 0 {
		limit = 5
	}
	return &KnowledgeBaseRetriever{
		embedder: embedder,
		vectorDB: vectorDB,
		limit:    limit,
	}
}

func (r *KnowledgeBaseRetriever) Retrieve(ctx context.Context, query string, col *provenance.Collector) (string, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	chunks, err := r.vectorDB.Search(ctx, vector, r.limit)
	if err != nil {
		return "", fmt.Errorf("search vector db: %w", err)
	}

	refs := make([]string, 0, len(chunks))
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		refs = append(refs, chunkReference(chunk))
		if chunk.Text != "" {
			texts = append(texts, chunk.Text)
		}
	}
	col.RecordKnowledgeBase(refs)

	return strings.Join(texts, "\n\n"), nil
}

// chunkReference resolves the provenance identifier of a retrieved chunk
// through the ordered fallback chain: public URL, then source field, then
// a constant placeholder.
func chunkReference(chunk domain.RetrievedChunk) string {
	if chunk.SourceURL != "" {
		return chunk.SourceURL
	}
	if chunk.Source != "" {
		return chunk.Source
	}
	return kbReferenceFallback
}

// WebRetriever answers from the live web-search backend.
type WebRetriever struct {
	searcher ports.WebSearcher
	maxChars int
}

func NewWebRetriever(searcher ports.WebSearcher, maxChars int) *WebRetriever {
	if maxChars <= 0 {
		maxChars = defaultWebContextMaxChars
	}
	return &WebRetriever{
		searcher: searcher,
		maxChars: maxChars,
	}
}

func (r *WebRetriever) Retrieve(ctx context.Context, query string, col *provenance.Collector) (string, error) {
	results, err := r.searcher.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("web search: %w", err)
	}

	links := make([]string, 0, len(results))
	snippets := make([]string, 0, len(results))
	for _, res := range results {
		if res.Link != "" {
			links = append(links, res.Link)
		}
		snippet := res.Snippet
		if snippet == "" {
			snippet = res.Title
		}
		if snippet != "" {
			snippets = append(snippets, snippet)
		}
	}
	col.RecordWeb(links)

	joined := strings.Join(snippets, "\n")
	if len(joined) > r.maxChars {
		joined = joined[:r.maxChars]
	}
	return joined, nil
}
