// Package provenance accumulates the source references consulted during
// one query cycle and classifies web references into the fixed category
// taxonomy.
package provenance

import (
	"strings"
	"sync"

	"github.com/avelasco/answer-engine/internal/core/domain"
)

// Collector is per-cycle mutable state: a flat pool of knowledge-base
// references and per-category pools of web references. One Collector
// belongs to exactly one cycle; the retrieval goroutines of that cycle
// may write to it concurrently.
type Collector struct {
	mu  sync.Mutex
	kb  []string
	web map[domain.Category][]string
}

func NewCollector() *Collector {
	c := &Collector{}
	c.Reset()
	return c
}

// Reset clears the knowledge-base pool and every category pool.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.kb = c.kb[:0]
	c.web = make(map[domain.Category][]string, len(domain.AllCategories()))
	for _, cat := range domain.AllCategories() {
		c.web[cat] = nil
	}
}

// RecordKnowledgeBase appends non-empty references to the knowledge-base
// pool in arrival order.
func (c *Collector) RecordKnowledgeBase(refs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		c.kb = append(c.kb, ref)
	}
}

// RecordWeb categorizes each non-empty reference and appends it to the
// matching category pool in arrival order.
func (c *Collector) RecordWeb(refs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			continue
		}
		cat := domain.Categorize(ref)
		c.web[cat] = append(c.web[cat], ref)
	}
}

// Snapshot returns the deduplicated source set, first-seen order
// preserved per pool, with every category key present. It does not
// mutate the collector; repeated calls between writes are equal.
func (c *Collector) Snapshot() domain.SourceSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := domain.SourceSet{
		KnowledgeBase: dedupe(c.kb),
		Web:           make(map[domain.Category][]string, len(domain.AllCategories())),
	}
	for _, cat := range domain.AllCategories() {
		out.Web[cat] = dedupe(c.web[cat])
	}
	return out
}

func dedupe(refs []string) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}
