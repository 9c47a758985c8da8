package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/knowledge"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "can": {},
	"do": {}, "does": {}, "for": {}, "have": {}, "how": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {},
	"what": {}, "which": {}, "with": {}, "you": {}, "your": {}, "about": {}, "tell": {},
}

type indexedDoc struct {
	content string
	terms   map[string]struct{}
}

// KeywordRetriever ranks corpus documents by how many distinct query terms
// they contain. It needs no external services.
type KeywordRetriever struct {
	docs []indexedDoc
}

func NewKeywordRetriever(docs []knowledge.Document) *KeywordRetriever {
	r := &KeywordRetriever{docs: make([]indexedDoc, 0, len(docs))}
	for _, d := range docs {
		content := strings.TrimSpace(d.Content)
		if content == "" {
			continue
		}
		terms := make(map[string]struct{})
		for _, t := range tokenize(content) {
			terms[t] = struct{}{}
		}
		r.docs = append(r.docs, indexedDoc{content: content, terms: terms})
	}
	return r
}

func (r *KeywordRetriever) Search(_ context.Context, query string, topK int) (string, bool, error) {
	if topK < 1 {
		topK = 1
	}
	queryTerms := make(map[string]struct{})
	for _, t := range tokenize(query) {
		queryTerms[t] = struct{}{}
	}
	if len(queryTerms) == 0 {
		return "", false, nil
	}

	type hit struct {
		idx   int
		score int
	}
	hits := make([]hit, 0, len(r.docs))
	for i, d := range r.docs {
		score := 0
		for t := range queryTerms {
			if _, ok := d.terms[t]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{idx: i, score: score})
		}
	}
	if len(hits) == 0 {
		return "", false, nil
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = r.docs[h.idx].content
	}
	return strings.Join(passages, "\n\n"), true, nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop || len(f) < 2 {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		out = append(out, f)
	}
	return out
}
