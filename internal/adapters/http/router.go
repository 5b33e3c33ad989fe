package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/avelasco/answer-engine/internal/core/domain"
	"github.com/avelasco/answer-engine/internal/core/ports"
)

type Router struct {
	queryService ports.QueryService
	ingestor     ports.DocumentIngestor
	repo         ports.DocumentRepository

	// The sources and related-prompts endpoints serve the outcome of the
	// most recent completed cycle per session.
	mu          sync.RWMutex
	lastResults map[string]*domain.QueryResult
}

func NewRouter(
	queryService ports.QueryService,
	ingestor ports.DocumentIngestor,
	repo ports.DocumentRepository,
) *Router {
	return &Router{
		queryService: queryService,
		ingestor:     ingestor,
		repo:         repo,
		lastResults:  make(map[string]*domain.QueryResult),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.HandleFunc("/v1/chat/sources", rt.chatSources)
	mux.HandleFunc("/v1/chat/related", rt.chatRelated)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Query     string `json:"query"`
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.queryService.Ask(r.Context(), domain.AskRequest{
		Query:     req.Query,
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.storeResult(req.SessionID, result)
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) chatSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	result, ok := rt.loadResult(r.URL.Query().Get("session_id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed query for session"})
		return
	}
	writeJSON(w, http.StatusOK, result.Sources)
}

func (rt *Router) chatRelated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	result, ok := rt.loadResult(r.URL.Query().Get("session_id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed query for session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"related_prompts": result.RelatedPrompts})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		r.FormValue("source_url"),
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

const defaultSessionKey = "default"

func (rt *Router) storeResult(sessionID string, result *domain.QueryResult) {
	key := strings.TrimSpace(sessionID)
	if key == "" {
		key = defaultSessionKey
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.lastResults[key] = result
}

func (rt *Router) loadResult(sessionID string) (*domain.QueryResult, bool) {
	key := strings.TrimSpace(sessionID)
	if key == "" {
		key = defaultSessionKey
	}
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	result, ok := rt.lastResults[key]
	return result, ok
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
