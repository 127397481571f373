package retriever

import (
	"sort"
	"strings"

	"document-oracle/internal/models"
)

const defaultTopK = 3

// Scored is a chunk with its lexical overlap score against a query.
type Scored struct {
	Index int
	Score int
	Text  string
}

// Retriever ranks chunks by the number of distinct lowercase words they
// share with the query. No stemming, no punctuation stripping.
type Retriever struct {
	topK int
}

func New(topK int) *Retriever {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Retriever{topK: topK}
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Score counts the query words present in chunk.
func Score(query map[string]struct{}, chunk string) int {
	score := 0
	for w := range wordSet(chunk) {
		if _, ok := query[w]; ok {
			score++
		}
	}
	return score
}

// Rank returns every chunk ordered by descending score. Equal scores keep
// document order.
func (r *Retriever) Rank(query string, chunks []string) []Scored {
	q := wordSet(query)
	ranked := make([]Scored, len(chunks))
	for i, c := range chunks {
		ranked[i] = Scored{Index: i, Score: Score(q, c), Text: c}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Top returns at most K ranked chunks.
func (r *Retriever) Top(query string, chunks []string) []Scored {
	ranked := r.Rank(query, chunks)
	if len(ranked) > r.topK {
		ranked = ranked[:r.topK]
	}
	return ranked
}

// Context joins the top chunks in rank order. It is empty only when there
// are no chunks.
func (r *Retriever) Context(query string, chunks []string) string {
	top := r.Top(query, chunks)
	texts := make([]string, len(top))
	for i, s := range top {
		texts[i] = s.Text
	}
	return strings.Join(texts, models.ContextSeparator)
}
