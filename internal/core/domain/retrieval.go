package domain

// RetrievedChunk is one knowledge-base hit from the vector store.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	SourceURL  string  `json:"source_url"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// WebResult is one ranked result from the web-search backend.
type WebResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}
