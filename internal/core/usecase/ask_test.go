package usecase

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/avelasco/answer-engine/internal/core/domain"
	"github.com/avelasco/answer-engine/internal/core/provenance"
)

type generatorFake struct {
	answer     string
	suggestion string
	failFirst  bool
	failAll    bool
	calls      int
	prompts    []string
}

func (f *generatorFake) Complete(_ context.Context, _ string, userPrompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	if f.failAll || (f.failFirst && f.calls == 1) {
		return "", errors.New("llm unavailable")
	}
	if f.calls == 1 {
		return f.answer, nil
	}
	return f.suggestion, nil
}

type historyFake struct {
	turns []domain.ChatTurn
	err   error
}

func (f *historyFake) Append(_ context.Context, turn domain.ChatTurn) error {
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, turn)
	return nil
}

type retrieverFake struct {
	context string
	kbRefs  []string
	webRefs []string
	err     error
}

func (f *retrieverFake) Retrieve(_ context.Context, _ string, col *provenance.Collector) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if len(f.kbRefs) > 0 {
		col.RecordKnowledgeBase(f.kbRefs)
	}
	if len(f.webRefs) > 0 {
		col.RecordWeb(f.webRefs)
	}
	return f.context, nil
}

func newAskFixture(kb, web ContextRetriever, generator *generatorFake, history *historyFake) *AskUseCase {
	return NewAskUseCase(kb, web, generator, history, nil, nil, AskLimits{})
}

func TestAskEndToEndAssemblesCategorizedSources(t *testing.T) {
	kb := &retrieverFake{context: "kb context", kbRefs: []string{"kbdoc1"}}
	web := &retrieverFake{
		context: "web context",
		webRefs: []string{"https://arxiv.org/x", "https://medium.com/y"},
	}
	generator := &generatorFake{answer: "RAG is retrieval-augmented generation.", suggestion: "1. What is a vector store?\n2. How does reranking work?"}
	history := &historyFake{}

	result, err := newAskFixture(kb, web, generator, history).Ask(context.Background(), domain.AskRequest{Query: "What is RAG?"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if result.Answer != "RAG is retrieval-augmented generation." {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
	if !reflect.DeepEqual(result.Sources.KnowledgeBase, []string{"kbdoc1"}) {
		t.Fatalf("kb sources = %v", result.Sources.KnowledgeBase)
	}
	if got := result.Sources.Web[domain.CategoryAcademic]; !reflect.DeepEqual(got, []string{"https://arxiv.org/x"}) {
		t.Fatalf("Academic sources = %v", got)
	}
	if got := result.Sources.Web[domain.CategoryBlogs]; !reflect.DeepEqual(got, []string{"https://medium.com/y"}) {
		t.Fatalf("Blogs sources = %v", got)
	}
	for _, cat := range domain.AllCategories() {
		if cat == domain.CategoryAcademic || cat == domain.CategoryBlogs {
			continue
		}
		if refs, ok := result.Sources.Web[cat]; !ok {
			t.Fatalf("missing category key %s", cat)
		} else if len(refs) != 0 {
			t.Fatalf("expected empty %s pool, got %v", cat, refs)
		}
	}

	want := []string{"What is a vector store?", "How does reranking work?"}
	if !reflect.DeepEqual(result.RelatedPrompts, want) {
		t.Fatalf("related prompts = %v, want %v", result.RelatedPrompts, want)
	}

	if len(history.turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(history.turns))
	}
	turn := history.turns[0]
	if turn.Status != domain.TurnStatusCompleted || turn.Query != "What is RAG?" || turn.SessionID == "" {
		t.Fatalf("unexpected persisted turn: %+v", turn)
	}
}

func TestAskDegradesWhenWebBackendFails(t *testing.T) {
	kb := &retrieverFake{context: "kb only", kbRefs: []string{"kbdoc1"}}
	web := &retrieverFake{err: errors.New("backend unreachable")}
	generator := &generatorFake{answer: "answer from kb", suggestion: "- follow up"}

	result, err := newAskFixture(kb, web, generator, &historyFake{}).Ask(context.Background(), domain.AskRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	for cat, refs := range result.Sources.Web {
		if len(refs) != 0 {
			t.Fatalf("expected all-empty web sources, %s has %v", cat, refs)
		}
	}
	if !reflect.DeepEqual(result.Sources.KnowledgeBase, []string{"kbdoc1"}) {
		t.Fatalf("kb sources = %v", result.Sources.KnowledgeBase)
	}
	if !strings.Contains(generator.prompts[0], "No web results.") {
		t.Fatalf("synthesis prompt should mark web context absent:\n%s", generator.prompts[0])
	}
	if !strings.Contains(generator.prompts[0], "kb only") {
		t.Fatalf("synthesis prompt should carry kb context:\n%s", generator.prompts[0])
	}
}

func TestAskFailsWithSynthesisErrorWhenGeneratorDown(t *testing.T) {
	kb := &retrieverFake{}
	web := &retrieverFake{}
	generator := &generatorFake{failAll: true}

	_, err := newAskFixture(kb, web, generator, &historyFake{}).Ask(context.Background(), domain.AskRequest{Query: "q"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}

func TestAskTreatsEmptyAnswerAsSynthesisFailure(t *testing.T) {
	generator := &generatorFake{answer: "   "}
	_, err := newAskFixture(&retrieverFake{}, &retrieverFake{}, generator, &historyFake{}).Ask(context.Background(), domain.AskRequest{Query: "q"})
	if !domain.IsKind(err, domain.ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}

func TestAskSuggestionFailureYieldsEmptyRelatedPrompts(t *testing.T) {
	kb := &retrieverFake{context: "ctx"}
	// Second Complete call (suggestions) fails; the cycle still succeeds.
	uc := NewAskUseCase(kb, &retrieverFake{}, &failingSecondCallGenerator{answer: "answer"}, &historyFake{}, nil, nil, AskLimits{})

	result, err := uc.Ask(context.Background(), domain.AskRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(result.RelatedPrompts) != 0 {
		t.Fatalf("expected empty related prompts, got %v", result.RelatedPrompts)
	}
}

type failingSecondCallGenerator struct {
	answer string
	calls  int
}

func (f *failingSecondCallGenerator) Complete(context.Context, string, string) (string, error) {
	f.calls++
	if f.calls > 1 {
		return "", errors.New("suggestion model down")
	}
	return f.answer, nil
}

func TestAskHistoryWriteFailureDoesNotFailCycle(t *testing.T) {
	generator := &generatorFake{answer: "answer", suggestion: "- one"}
	history := &historyFake{err: errors.New("db down")}

	result, err := newAskFixture(&retrieverFake{}, &retrieverFake{}, generator, history).Ask(context.Background(), domain.AskRequest{Query: "q"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if result.Answer != "answer" {
		t.Fatalf("unexpected answer: %q", result.Answer)
	}
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	generator := &generatorFake{answer: "answer"}
	_, err := newAskFixture(&retrieverFake{}, &retrieverFake{}, generator, &historyFake{}).Ask(context.Background(), domain.AskRequest{Query: "   "})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("generator should not be called for empty query")
	}
}
