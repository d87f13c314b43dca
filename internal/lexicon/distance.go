// Package lexicon maps observed words to their nearest keyword from a controlled vocabulary.
package lexicon

import (
	"math"
	"unicode"
	"unicode/utf8"
)

// EditDistance returns the Levenshtein distance between a and b: the minimum number of
// single-rune insertions, deletions or substitutions needed to turn one into the other.
// The comparison is case-sensitive and always exact.
func EditDistance(a, b string) int {
	if a == b {
		return 0
	}
	runesA := []rune(a)
	runesB := []rune(b)
	lenA := len(runesA)
	lenB := len(runesB)
	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	// Two rows of the DP matrix are enough.
	prev := make([]int, lenB+1)
	curr := make([]int, lenB+1)
	for j := 0; j <= lenB; j++ {
		prev[j] = j
	}

	for i := 1; i <= lenA; i++ {
		curr[0] = i
		for j := 1; j <= lenB; j++ {
			cost := 1
			if runesA[i-1] == runesB[j-1] {
				cost = 0
			}
			curr[j] = min3(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[lenB]
}

func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

// CharacterCosineDistance returns 1 minus the cosine similarity of the character-frequency
// vectors of a and b. Characters are case-folded and order is ignored, so the value only
// measures how alike the two bags of characters are.
//
// Two empty strings are at distance 0; an empty and a non-empty string are at distance 1.
func CharacterCosineDistance(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == "" || b == "" {
		return 1
	}

	countsA := charCounts(a)
	countsB := charCounts(b)

	// Counts are integers, so these sums are exact whatever the map order.
	var dot, normA, normB int
	same := len(countsA) == len(countsB)
	for r, ca := range countsA {
		normA += ca * ca
		cb, ok := countsB[r]
		if ok {
			dot += ca * cb
		}
		if cb != ca {
			same = false
		}
	}
	if same {
		return 0
	}
	for _, cb := range countsB {
		normB += cb * cb
	}

	dist := 1 - float64(dot)/(math.Sqrt(float64(normA))*math.Sqrt(float64(normB)))
	// Rounding can push identical profiles slightly below zero.
	if dist < 0 {
		return 0
	}
	if dist > 2 {
		return 2
	}
	return dist
}

func charCounts(s string) map[rune]int {
	counts := make(map[rune]int, utf8.RuneCountInString(s))
	for _, r := range s {
		counts[unicode.ToLower(r)]++
	}
	return counts
}

// proxyCost is the trivial edit-distance upper bound: delete every rune of word, then
// insert every rune of keyword.
func proxyCost(word, keyword string) int {
	return utf8.RuneCountInString(word) + utf8.RuneCountInString(keyword)
}
