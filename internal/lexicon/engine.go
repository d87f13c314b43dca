package lexicon

import (
	"math"
	"sort"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// DefaultCosineCutoff is the cosine distance above which a word/keyword pair is
	// considered too dissimilar to be worth an exact edit-distance computation.
	DefaultCosineCutoff = 0.25
	// DefaultEditIntensity is the default acceptance threshold for Match.
	DefaultEditIntensity = 0.1
	// UnsetKeyword marks a record that no candidate has improved yet.
	UnsetKeyword = "_"
)

// unsetLeven is larger than any real candidate cost, so the seeded empty keyword always
// replaces the sentinel.
const unsetLeven = math.MaxInt32

// Match is the current best keyword for a word.
type Match struct {
	Keyword string  `json:"keyword"`
	Cosine  float64 `json:"cosine"`
	Leven   int     `json:"leven"`
}

func unset() Match {
	return Match{Keyword: UnsetKeyword, Cosine: 1.0, Leven: unsetLeven}
}

// better reports whether cand should replace cur: lower edit distance wins, and on equal
// edit distance the lower cosine distance wins. Full ties keep cur.
func better(cand, cur Match) bool {
	if cand.Leven != cur.Leven {
		return cand.Leven < cur.Leven
	}
	return cand.Cosine < cur.Cosine
}

// Engine keeps, for every observed word, the nearest keyword in a growing keyword set.
//
// Both collections only grow. Adding a word scores it against every keyword; adding a
// keyword re-scores every known word against it, so records are always current when an
// insertion returns. An Engine is not safe for concurrent use; callers sharing one must
// serialize access to it.
type Engine struct {
	cosineCutoff float64
	workers      int
	logger       *zap.Logger

	keywords map[string]struct{}
	ordered  []string // keywords in lexicographic order
	lexicon  map[string]Match
}

// Option configures an Engine.
type Option func(*Engine)

// WithCosineCutoff sets the cosine distance above which the edit distance is replaced by
// its cheap upper bound. Negative values are ignored.
func WithCosineCutoff(c float64) Option {
	return func(e *Engine) {
		if c >= 0 {
			e.cosineCutoff = c
		}
	}
}

// WithWorkers spreads distance computations over n goroutines. Results do not depend on n.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets a logger for debug output on recomputation passes.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an empty Engine whose keyword set holds only the empty string.
func New(opts ...Option) *Engine {
	e := &Engine{
		cosineCutoff: DefaultCosineCutoff,
		workers:      1,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetKeywords()
	e.lexicon = make(map[string]Match)
	return e
}

func (e *Engine) resetKeywords() {
	e.keywords = map[string]struct{}{"": {}}
	e.ordered = []string{""}
}

// CosineCutoff returns the configured pre-filter cutoff.
func (e *Engine) CosineCutoff() float64 {
	return e.cosineCutoff
}

// Score computes the candidate record for pairing word with keyword. The exact edit
// distance is only computed when the cosine distance is at most the cutoff.
func (e *Engine) Score(word, keyword string) Match {
	cosine := CharacterCosineDistance(word, keyword)
	var leven int
	if cosine > e.cosineCutoff {
		leven = proxyCost(word, keyword)
	} else {
		leven = EditDistance(word, keyword)
	}
	return Match{Keyword: keyword, Cosine: cosine, Leven: leven}
}

// AddWord inserts word and computes its nearest keyword. It returns false when the word
// was already known, in which case nothing changes.
func (e *Engine) AddWord(word string) bool {
	if _, ok := e.lexicon[word]; ok {
		return false
	}
	e.lexicon[word] = e.nearest(word)
	return true
}

// AddWords inserts each word and returns how many were new.
func (e *Engine) AddWords(words []string) int {
	added := 0
	for _, w := range words {
		if e.AddWord(w) {
			added++
		}
	}
	return added
}

// nearest scores word against every keyword in lexicographic order.
func (e *Engine) nearest(word string) Match {
	candidates := make([]Match, len(e.ordered))
	e.parallel(len(e.ordered), func(i int) {
		candidates[i] = e.Score(word, e.ordered[i])
	})
	best := unset()
	for _, c := range candidates {
		if better(c, best) {
			best = c
		}
	}
	return best
}

// AddKeyword inserts keyword and re-scores every known word against it. It returns false
// when the keyword was already present; no recomputation happens in that case.
func (e *Engine) AddKeyword(keyword string) bool {
	if _, ok := e.keywords[keyword]; ok {
		return false
	}
	e.keywords[keyword] = struct{}{}
	i := sort.SearchStrings(e.ordered, keyword)
	e.ordered = append(e.ordered, "")
	copy(e.ordered[i+1:], e.ordered[i:])
	e.ordered[i] = keyword

	if len(e.lexicon) == 0 {
		return true
	}
	words := e.Words()
	candidates := make([]Match, len(words))
	e.parallel(len(words), func(i int) {
		candidates[i] = e.Score(words[i], keyword)
	})
	updated := 0
	for i, w := range words {
		if better(candidates[i], e.lexicon[w]) {
			e.lexicon[w] = candidates[i]
			updated++
		}
	}
	e.logger.Debug("keyword added",
		zap.String("keyword", keyword),
		zap.Int("words", len(words)),
		zap.Int("updated", updated))
	return true
}

// AddKeywords inserts each keyword and returns how many were new.
func (e *Engine) AddKeywords(keywords []string) int {
	added := 0
	for _, k := range keywords {
		if e.AddKeyword(k) {
			added++
		}
	}
	return added
}

// SetKeywords replaces the keyword set with keywords plus the empty string and recomputes
// every lexicon record from scratch.
func (e *Engine) SetKeywords(keywords []string) {
	e.resetKeywords()
	for _, k := range keywords {
		if _, ok := e.keywords[k]; ok {
			continue
		}
		e.keywords[k] = struct{}{}
		e.ordered = append(e.ordered, k)
	}
	sort.Strings(e.ordered)
	for _, w := range e.Words() {
		e.lexicon[w] = e.nearest(w)
	}
	e.logger.Debug("keyword set replaced",
		zap.Int("keywords", len(e.ordered)),
		zap.Int("words", len(e.lexicon)))
}

// Match returns the record for word when its edit intensity (edit distance divided by word
// length) is strictly below threshold. Unknown words are inserted first. The empty word
// never matches and is not inserted.
func (e *Engine) Match(word string, threshold float64) (Match, bool) {
	n := utf8.RuneCountInString(word)
	if n == 0 {
		return Match{}, false
	}
	e.AddWord(word)
	m := e.lexicon[word]
	if float64(m.Leven)/float64(n) < threshold {
		return m, true
	}
	return Match{}, false
}

// Lookup returns the stored record for word without inserting it.
func (e *Engine) Lookup(word string) (Match, bool) {
	m, ok := e.lexicon[word]
	return m, ok
}

// Keywords returns the keyword set in lexicographic order, including the empty string.
func (e *Engine) Keywords() []string {
	return append([]string(nil), e.ordered...)
}

// Words returns the known words in lexicographic order.
func (e *Engine) Words() []string {
	words := make([]string, 0, len(e.lexicon))
	for w := range e.lexicon {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Len returns the number of words in the lexicon.
func (e *Engine) Len() int {
	return len(e.lexicon)
}

// KeywordCount returns the size of the keyword set, including the empty string.
func (e *Engine) KeywordCount() int {
	return len(e.ordered)
}

// Entries returns a copy of the lexicon.
func (e *Engine) Entries() map[string]Match {
	out := make(map[string]Match, len(e.lexicon))
	for w, m := range e.lexicon {
		out[w] = m
	}
	return out
}

// Restore replaces the engine state with a saved lexicon. scored is the keyword set the
// records were computed against and keywords is the keyword set to restore.
//
// Records pointing at a keyword missing from keywords are recomputed. Every other record is
// re-scored against the keywords that are not in scored, so the result is the same as if
// those keywords had been added after the records were saved.
func (e *Engine) Restore(scored []string, entries map[string]Match, keywords []string) {
	e.resetKeywords()
	for _, k := range keywords {
		if _, ok := e.keywords[k]; ok {
			continue
		}
		e.keywords[k] = struct{}{}
		e.ordered = append(e.ordered, k)
	}
	sort.Strings(e.ordered)

	e.lexicon = make(map[string]Match, len(entries))
	stale := 0
	for w, m := range entries {
		if _, ok := e.keywords[m.Keyword]; !ok {
			m = e.nearest(w)
			stale++
		}
		e.lexicon[w] = m
	}

	seen := make(map[string]struct{}, len(scored)+1)
	seen[""] = struct{}{}
	for _, k := range scored {
		seen[k] = struct{}{}
	}
	var missing []string
	for _, k := range e.ordered {
		if _, ok := seen[k]; !ok {
			missing = append(missing, k)
		}
	}

	rescored := 0
	if len(missing) > 0 && len(e.lexicon) > 0 {
		words := e.Words()
		candidates := make([]Match, len(words))
		e.parallel(len(words), func(i int) {
			best := unset()
			for _, k := range missing {
				if c := e.Score(words[i], k); better(c, best) {
					best = c
				}
			}
			candidates[i] = best
		})
		for i, w := range words {
			if better(candidates[i], e.lexicon[w]) {
				e.lexicon[w] = candidates[i]
				rescored++
			}
		}
	}
	e.logger.Debug("lexicon restored",
		zap.Int("keywords", len(e.ordered)),
		zap.Int("words", len(e.lexicon)),
		zap.Int("recomputed", stale),
		zap.Int("unscored_keywords", len(missing)),
		zap.Int("rescored", rescored))
}

// parallel calls fn(i) for every i in [0, n), spread over the configured workers.
// Each index is handled exactly once; fn must only write to its own slot.
func (e *Engine) parallel(n int, fn func(i int)) {
	workers := e.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var wg sync.WaitGroup
	next := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		next <- i
	}
	close(next)
	wg.Wait()
}
