package lexicon

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_seedsEmptyKeyword(t *testing.T) {
	e := New()
	assert.Equal(t, []string{""}, e.Keywords())
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, DefaultCosineCutoff, e.CosineCutoff())

	require.True(t, e.AddWord("xyz"))
	m, ok := e.Lookup("xyz")
	require.True(t, ok)
	assert.Equal(t, Match{Keyword: "", Cosine: 1, Leven: 3}, m)
}

func TestEngine_endToEnd(t *testing.T) {
	e := New()
	e.AddKeywords([]string{"engineer", "manager"})
	e.AddWord("enginer")

	m, ok := e.Lookup("enginer")
	require.True(t, ok)
	assert.Equal(t, "engineer", m.Keyword)
	assert.Equal(t, 1, m.Leven)

	got, ok := e.Match("enginer", 0.2)
	require.True(t, ok, "1/7 is below 0.2")
	assert.Equal(t, m, got)

	_, ok = e.Match("enginer", 0.1)
	assert.False(t, ok, "1/7 is not below 0.1")
}

func TestEngine_thresholdBoundary(t *testing.T) {
	e := New()
	e.AddKeyword("cats")

	m, ok := e.Match("cat", 0.34)
	require.True(t, ok)
	assert.Equal(t, "cats", m.Keyword)
	assert.Equal(t, 1, m.Leven)

	_, ok = e.Match("cat", 0.33)
	assert.False(t, ok)
}

func TestEngine_emptyWordNeverMatches(t *testing.T) {
	e := New()
	e.AddKeyword("engineer")
	for _, threshold := range []float64{0, 0.1, 1, 100, math.Inf(1)} {
		_, ok := e.Match("", threshold)
		assert.False(t, ok, "threshold %v", threshold)
	}
	_, ok := e.Lookup("")
	assert.False(t, ok, "empty query must not be inserted")
}

func TestEngine_matchMaterializesWord(t *testing.T) {
	e := New()
	e.AddKeyword("manager")

	_, ok := e.Lookup("manger")
	require.False(t, ok)

	m, ok := e.Match("manger", 0.2)
	require.True(t, ok)
	assert.Equal(t, "manager", m.Keyword)

	_, ok = e.Lookup("manger")
	assert.True(t, ok)
	assert.Equal(t, 1, e.Len())
}

func TestEngine_addWordIdempotent(t *testing.T) {
	e := New()
	e.AddKeywords([]string{"sales", "engineer"})
	require.True(t, e.AddWord("sale"))
	before := e.Entries()

	assert.False(t, e.AddWord("sale"))
	assert.Equal(t, 1, e.AddWords([]string{"sale", "sale", "engineers"}))
	assert.Equal(t, before["sale"], e.Entries()["sale"])
}

func TestEngine_addKeywordIdempotent(t *testing.T) {
	e := New()
	e.AddWords([]string{"enginer", "manger"})
	require.True(t, e.AddKeyword("engineer"))
	before := e.Entries()
	keywords := e.Keywords()

	assert.False(t, e.AddKeyword("engineer"))
	assert.False(t, e.AddKeyword(""))
	assert.Equal(t, 0, e.AddKeywords([]string{"engineer", ""}))
	assert.Equal(t, before, e.Entries())
	assert.Equal(t, keywords, e.Keywords())
}

func TestEngine_keywordsStaySorted(t *testing.T) {
	e := New()
	e.AddKeywords([]string{"sales", "accountant", "manager", "engineer"})
	assert.Equal(t, []string{"", "accountant", "engineer", "manager", "sales"}, e.Keywords())
	assert.Equal(t, 5, e.KeywordCount())
}

func TestEngine_keywordInsertionIsMonotonic(t *testing.T) {
	e := New()
	e.AddWords([]string{"enginer", "manger", "acountant", "saels", "programer", "วิศวกร", "driver"})

	keywords := []string{"manager", "engineer", "engine", "accountant", "sales", "programmer", "วิศวกรรม", "drive"}
	for _, k := range keywords {
		before := e.Entries()
		e.AddKeyword(k)
		after := e.Entries()
		for w, prev := range before {
			assert.LessOrEqual(t, after[w].Leven, prev.Leven, "word %q after keyword %q", w, k)
		}
	}

	m, _ := e.Lookup("programer")
	assert.Equal(t, "programmer", m.Keyword)
	m, _ = e.Lookup("driver")
	assert.Equal(t, "drive", m.Keyword)
	m, _ = e.Lookup("วิศวกร")
	assert.Equal(t, "วิศวกรรม", m.Keyword)
	assert.Equal(t, 2, m.Leven)
}

func TestEngine_insertionOrderDoesNotMatter(t *testing.T) {
	words := []string{"enginer", "manger", "acountant", "saels"}
	keywords := []string{"engineer", "manager", "accountant", "sales"}

	wordsFirst := New()
	wordsFirst.AddWords(words)
	wordsFirst.AddKeywords(keywords)

	keywordsFirst := New()
	keywordsFirst.AddKeywords(keywords)
	keywordsFirst.AddWords(words)

	assert.Equal(t, keywordsFirst.Entries(), wordsFirst.Entries())
}

func TestEngine_tieBreakPrefersLowerCosine(t *testing.T) {
	// "ab" is one edit from both "abb" and "abc"; "abb" shares more of its character
	// profile, so it wins regardless of insertion order.
	for _, order := range [][]string{{"abc", "abb"}, {"abb", "abc"}} {
		e := New(WithCosineCutoff(1))
		e.AddKeywords(order)
		e.AddWord("ab")
		m, _ := e.Lookup("ab")
		assert.Equal(t, "abb", m.Keyword, "order %v", order)
		assert.Equal(t, 1, m.Leven)
		assert.Less(t, m.Cosine, CharacterCosineDistance("ab", "abc"))
	}
}

func TestEngine_fullTieKeepsFirstKeyword(t *testing.T) {
	// "ab" vs "ac" and "ab" vs "ad" have equal distance and equal cosine.
	e := New(WithCosineCutoff(1))
	e.AddKeywords([]string{"ad", "ac"})
	e.AddWord("ab")
	m, _ := e.Lookup("ab")
	assert.Equal(t, "ac", m.Keyword, "lexicographically first keyword wins a full tie")

	// Added after the word: the incumbent keeps its place.
	e2 := New(WithCosineCutoff(1))
	e2.AddKeyword("ad")
	e2.AddWord("ab")
	e2.AddKeyword("ac")
	m, _ = e2.Lookup("ab")
	assert.Equal(t, "ad", m.Keyword)
}

func TestEngine_cutoffBoundaryTakesExactBranch(t *testing.T) {
	cosine := CharacterCosineDistance("cat", "bat")
	require.Greater(t, cosine, 0.0)

	atCutoff := New(WithCosineCutoff(cosine))
	got := atCutoff.Score("cat", "bat")
	assert.Equal(t, 1, got.Leven, "cosine equal to cutoff computes the exact distance")

	belowCutoff := New(WithCosineCutoff(math.Nextafter(cosine, 0)))
	got = belowCutoff.Score("cat", "bat")
	assert.Equal(t, 6, got.Leven, "cosine above cutoff uses the length proxy")
	assert.Equal(t, cosine, got.Cosine)
}

func TestEngine_defaultCutoffUsesProxyForDissimilarPairs(t *testing.T) {
	e := New()
	e.AddKeywords([]string{"engineer", "manager"})
	e.AddWord("enginer")

	m := e.Score("enginer", "manager")
	assert.Equal(t, 14, m.Leven)
	assert.Greater(t, m.Cosine, DefaultCosineCutoff)
}

func TestEngine_setKeywordsRecomputes(t *testing.T) {
	e := New()
	e.AddKeyword("engineer")
	e.AddWord("enginer")

	e.SetKeywords([]string{"manager", "manager"})
	assert.Equal(t, []string{"", "manager"}, e.Keywords())

	m, ok := e.Lookup("enginer")
	require.True(t, ok)
	assert.Equal(t, "", m.Keyword)
	assert.Equal(t, 7, m.Leven)

	e.SetKeywords([]string{"engineer"})
	m, _ = e.Lookup("enginer")
	assert.Equal(t, "engineer", m.Keyword)
}

func TestEngine_restore(t *testing.T) {
	src := New()
	src.AddKeywords([]string{"engineer", "manager"})
	src.AddWords([]string{"enginer", "manger"})

	dst := New()
	dst.Restore(src.Keywords(), src.Entries(), src.Keywords()[1:])
	assert.Equal(t, src.Keywords(), dst.Keywords())
	assert.Equal(t, src.Entries(), dst.Entries())

	// A record pointing at a keyword that is not in the restored set is recomputed.
	dst.Restore(src.Keywords(), src.Entries(), []string{"manager"})
	m, _ := dst.Lookup("enginer")
	assert.Equal(t, "", m.Keyword)
	m, _ = dst.Lookup("manger")
	assert.Equal(t, "manager", m.Keyword)
}

func TestEngine_restoreScoresKeywordsAddedAfterSave(t *testing.T) {
	// Records saved before "engineer" existed.
	src := New()
	src.AddKeyword("manager")
	src.AddWords([]string{"enginer", "manger", "xyz"})
	saved := src.Entries()
	require.Equal(t, "", saved["enginer"].Keyword)

	dst := New()
	dst.Restore(src.Keywords(), saved, []string{"engineer", "manager"})

	m, ok := dst.Match("enginer", 0.2)
	require.True(t, ok)
	assert.Equal(t, Match{Keyword: "engineer", Cosine: CharacterCosineDistance("enginer", "engineer"), Leven: 1}, m)
	assert.False(t, dst.AddKeyword("engineer"))

	fresh := New()
	fresh.AddKeywords([]string{"engineer", "manager"})
	fresh.AddWords([]string{"enginer", "manger", "xyz"})
	assert.Equal(t, fresh.Entries(), dst.Entries())
	assert.Equal(t, fresh.Keywords(), dst.Keywords())
}

func TestEngine_restoreMatchesIncrementalInsertion(t *testing.T) {
	words := []string{"enginer", "manger", "acountant", "saels", "ab"}
	src := New(WithCosineCutoff(1))
	src.AddKeywords([]string{"sales", "ad"})
	src.AddWords(words)

	incremental := New(WithCosineCutoff(1))
	incremental.Restore(src.Keywords(), src.Entries(), src.Keywords())
	incremental.AddKeywords([]string{"ac", "accountant", "engineer", "manager"})

	restored := New(WithCosineCutoff(1), WithWorkers(4))
	restored.Restore(src.Keywords(), src.Entries(),
		[]string{"sales", "ad", "accountant", "ac", "engineer", "manager"})

	assert.Equal(t, incremental.Entries(), restored.Entries())
	// "ac" ties "ad" on both distances; the saved record stays.
	m, _ := restored.Lookup("ab")
	assert.Equal(t, "ad", m.Keyword)
}

func TestEngine_workersAreDeterministic(t *testing.T) {
	words := []string{"enginer", "manger", "acountant", "saels", "programer", "develper", "desinger", "analyts", "ab", "ac"}
	keywords := []string{"engineer", "manager", "accountant", "sales", "programmer", "developer", "designer", "analyst", "ad", "ae"}

	run := func(workers int) map[string]Match {
		e := New(WithWorkers(workers), WithCosineCutoff(0.5))
		e.AddWords(words[:5])
		e.AddKeywords(keywords[:5])
		e.AddWords(words[5:])
		e.AddKeywords(keywords[5:])
		return e.Entries()
	}

	want := run(1)
	for _, n := range []int{2, 4, 16} {
		for i := 0; i < 5; i++ {
			assert.Equal(t, want, run(n), "workers=%d", n)
		}
	}
}

func TestOptions_ignoreInvalidValues(t *testing.T) {
	e := New(WithCosineCutoff(-1), WithWorkers(0), WithLogger(nil))
	assert.Equal(t, DefaultCosineCutoff, e.CosineCutoff())
	assert.Equal(t, 1, e.workers)
	assert.NotNil(t, e.logger)
}

func BenchmarkEngine_AddKeyword(b *testing.B) {
	e := New()
	for i := 0; i < 1000; i++ {
		e.AddWord(string(rune('a'+i%26)) + "ngineer" + string(rune('a'+i/26%26)))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.AddKeyword("keyword" + string(rune(i)))
	}
}
