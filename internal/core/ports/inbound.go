package ports

import (
	"context"
	"io"

	"github.com/avelasco/answer-engine/internal/core/domain"
)

// QueryService is the inbound contract for one full query-answer cycle.
type QueryService interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.QueryResult, error)
}

// DocumentIngestor is the inbound contract for knowledge-base uploads.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, sourceURL string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous indexing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
