package provenance

import (
	"reflect"
	"testing"

	"github.com/avelasco/answer-engine/internal/core/domain"
)

func TestSnapshotAfterResetIsEmptyWithAllCategories(t *testing.T) {
	col := NewCollector()
	col.RecordKnowledgeBase([]string{"kbdoc1"})
	col.RecordWeb([]string{"https://arxiv.org/abs/1"})
	col.Reset()

	snap := col.Snapshot()
	if len(snap.KnowledgeBase) != 0 {
		t.Fatalf("expected empty kb pool, got %v", snap.KnowledgeBase)
	}
	if len(snap.Web) != len(domain.AllCategories()) {
		t.Fatalf("expected %d category keys, got %d", len(domain.AllCategories()), len(snap.Web))
	}
	for cat, refs := range snap.Web {
		if len(refs) != 0 {
			t.Fatalf("expected empty pool for %s, got %v", cat, refs)
		}
	}
}

func TestRecordWebDeduplicatesPreservingFirstSeenOrder(t *testing.T) {
	col := NewCollector()
	col.RecordWeb([]string{"https://a.com/1", "https://a.com/1", "https://b.com/2"})

	snap := col.Snapshot()
	got := snap.Web[domain.CategoryOthers]
	want := []string{"https://a.com/1", "https://b.com/2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Others pool = %v, want %v", got, want)
	}
}

func TestRecordKnowledgeBaseSkipsEmptyEntries(t *testing.T) {
	col := NewCollector()
	col.RecordKnowledgeBase([]string{"", "kbdoc1", "  ", "kbdoc2", "kbdoc1"})

	snap := col.Snapshot()
	want := []string{"kbdoc1", "kbdoc2"}
	if !reflect.DeepEqual(snap.KnowledgeBase, want) {
		t.Fatalf("kb pool = %v, want %v", snap.KnowledgeBase, want)
	}
}

func TestRecordWebRoutesByCategory(t *testing.T) {
	col := NewCollector()
	col.RecordWeb([]string{
		"https://arxiv.org/abs/2005.11401",
		"https://medium.com/some-post",
		"https://twitter.com/status/1",
	})

	snap := col.Snapshot()
	if got := snap.Web[domain.CategoryAcademic]; !reflect.DeepEqual(got, []string{"https://arxiv.org/abs/2005.11401"}) {
		t.Fatalf("Academic pool = %v", got)
	}
	if got := snap.Web[domain.CategoryBlogs]; !reflect.DeepEqual(got, []string{"https://medium.com/some-post"}) {
		t.Fatalf("Blogs pool = %v", got)
	}
	if got := snap.Web[domain.CategorySocialMedia]; !reflect.DeepEqual(got, []string{"https://twitter.com/status/1"}) {
		t.Fatalf("SocialMedia pool = %v", got)
	}
	if got := snap.Web[domain.CategoryNews]; len(got) != 0 {
		t.Fatalf("News pool should be empty, got %v", got)
	}
}

func TestSnapshotIsIdempotentAndNonMutating(t *testing.T) {
	col := NewCollector()
	col.RecordKnowledgeBase([]string{"kbdoc1", "kbdoc1"})
	col.RecordWeb([]string{"https://github.com/a/b"})

	first := col.Snapshot()
	second := col.Snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots differ: %v vs %v", first, second)
	}

	// Mutating a returned snapshot must not leak into the collector.
	first.KnowledgeBase = append(first.KnowledgeBase, "intruder")
	first.Web[domain.CategoryTechnicalDocs] = append(first.Web[domain.CategoryTechnicalDocs], "intruder")
	third := col.Snapshot()
	if !reflect.DeepEqual(second, third) {
		t.Fatalf("snapshot mutated collector state: %v vs %v", second, third)
	}
}
