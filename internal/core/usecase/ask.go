package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/avelasco/answer-engine/internal/core/domain"
	"github.com/avelasco/answer-engine/internal/core/ports"
	"github.com/avelasco/answer-engine/internal/core/provenance"
)

const anonymousUserID = "anonymous"

// CycleMetrics receives out-of-band observations from query cycles.
// Failures that the orchestrator recovers from locally are only visible
// through this channel and the log.
type CycleMetrics interface {
	ObserveCycle(status string, duration time.Duration, kbSources, webSources int)
	RetrievalFailure(backend string)
	SuggestionFailure()
	HistoryWriteFailure()
}

// NopCycleMetrics discards all observations.
type NopCycleMetrics struct{}

func (NopCycleMetrics) ObserveCycle(string, time.Duration, int, int) {}
func (NopCycleMetrics) RetrievalFailure(string)                      {}
func (NopCycleMetrics) SuggestionFailure()                           {}
func (NopCycleMetrics) HistoryWriteFailure()                         {}

// AskLimits bounds the blocking phases of one cycle.
type AskLimits struct {
	RetrievalTimeout  time.Duration
	SynthesisTimeout  time.Duration
	SuggestionTimeout time.Duration
	PersistTimeout    time.Duration
}

// AskUseCase runs one query-answer cycle: retrieve from both backends,
// synthesize, collect provenance, suggest follow-ups, persist the turn.
type AskUseCase struct {
	kb        ContextRetriever
	web       ContextRetriever
	generator ports.AnswerGenerator
	history   ports.HistoryStore
	logger    *slog.Logger
	metrics   CycleMetrics
	limits    AskLimits
}

func NewAskUseCase(
	kb ContextRetriever,
	web ContextRetriever,
	generator ports.AnswerGenerator,
	history ports.HistoryStore,
	logger *slog.Logger,
	metrics CycleMetrics,
	limits AskLimits,
) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopCycleMetrics{}
	}
	if limits.RetrievalTimeout <= 0 {
		limits.RetrievalTimeout = 20 * time.Second
	}
	if limits.SynthesisTimeout <= 0 {
		limits.SynthesisTimeout = 60 * time.Second
	}
	if limits.SuggestionTimeout <= 0 {
		limits.SuggestionTimeout = 20 * time.Second
	}
	if limits.PersistTimeout <= 0 {
		limits.PersistTimeout = 10 * time.Second
	}

	return &AskUseCase{
		kb:        kb,
		web:       web,
		generator: generator,
		history:   history,
		logger:    logger,
		metrics:   metrics,
		limits:    limits,
	}
}

// Ask executes the full cycle for one query. A backend failure degrades
// that backend's context to empty; only a failed synthesis fails the
// cycle. The provenance collector is created fresh per call, so
// concurrent cycles never share source state.
func (uc *AskUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.QueryResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("query is required"))
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = anonymousUserID
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	started := time.Now()
	col := provenance.NewCollector()

	kbContext, webContext := uc.retrieveBoth(ctx, query, col)

	answer, err := uc.synthesize(ctx, query, kbContext, webContext)
	if err != nil {
		uc.metrics.ObserveCycle("synthesis_failed", time.Since(started), 0, 0)
		return nil, domain.WrapError(domain.ErrSynthesisFailed, "synthesize answer", err)
	}

	// The snapshot is fixed here, after both retrievals have joined; it
	// is the cycle's source set regardless of what follows.
	sources := col.Snapshot()

	related := uc.suggest(ctx, query, answer)

	uc.persistTurn(ctx, query, answer, userID, sessionID)

	webCount := 0
	for _, refs := range sources.Web {
		webCount += len(refs)
	}
	uc.metrics.ObserveCycle("completed", time.Since(started), len(sources.KnowledgeBase), webCount)

	return &domain.QueryResult{
		Query:          query,
		Answer:         answer,
		Sources:        sources,
		RelatedPrompts: related,
	}, nil
}

// retrieveBoth runs the two retrieval adapters concurrently and joins
// before returning, so every collector write precedes the snapshot. A
// failed backend contributes an empty context and is reported out of
// band.
func (uc *AskUseCase) retrieveBoth(ctx context.Context, query string, col *provenance.Collector) (string, string) {
	var kbContext, webContext string

	var group errgroup.Group
	group.Go(func() error {
		retrieveCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrievalTimeout)
		defer cancel()

		text, err := uc.kb.Retrieve(retrieveCtx, query, col)
		if err != nil {
			uc.logger.Warn("knowledge base retrieval failed", "error", err)
			uc.metrics.RetrievalFailure("knowledge_base")
			return nil
		}
		kbContext = text
		return nil
	})
	group.Go(func() error {
		retrieveCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrievalTimeout)
		defer cancel()

		text, err := uc.web.Retrieve(retrieveCtx, query, col)
		if err != nil {
			uc.logger.Warn("web retrieval failed", "error", err)
			uc.metrics.RetrievalFailure("web")
			return nil
		}
		webContext = text
		return nil
	})
	_ = group.Wait()

	return kbContext, webContext
}

func (uc *AskUseCase) synthesize(ctx context.Context, query, kbContext, webContext string) (string, error) {
	synthCtx, cancel := context.WithTimeout(ctx, uc.limits.SynthesisTimeout)
	defer cancel()

	answer, err := uc.generator.Complete(synthCtx, answerSystemPrompt, buildAnswerPrompt(query, kbContext, webContext))
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("empty answer from generator")
	}
	return answer, nil
}

func (uc *AskUseCase) suggest(ctx context.Context, query, answer string) []string {
	suggestCtx, cancel := context.WithTimeout(ctx, uc.limits.SuggestionTimeout)
	defer cancel()

	raw, err := uc.generator.Complete(suggestCtx, suggestionSystemPrompt, buildSuggestionPrompt(query, answer))
	if err != nil {
		uc.logger.Warn("follow-up suggestion failed", "error", err)
		uc.metrics.SuggestionFailure()
		return []string{}
	}
	return ParseSuggestions(raw)
}

// persistTurn appends the completed turn to history. A write failure
// never fails the cycle; it is logged and counted so the loss is not
// silent.
func (uc *AskUseCase) persistTurn(ctx context.Context, query, answer, userID, sessionID string) {
	persistCtx, cancel := context.WithTimeout(ctx, uc.limits.PersistTimeout)
	defer cancel()

	now := time.Now().UTC()
	turn := domain.ChatTurn{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Query:     query,
		Answer:    answer,
		Role:      "assistant",
		Status:    domain.TurnStatusCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.history.Append(persistCtx, turn); err != nil {
		uc.logger.Error("history write failed", "session_id", sessionID, "error", err)
		uc.metrics.HistoryWriteFailure()
	}
}
