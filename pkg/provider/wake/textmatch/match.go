package textmatch

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// scorePhrase returns the best similarity score between the wake phrase and
// any aligned token window of the heard text, and whether that score clears
// the matcher's thresholds.
//
// Matching proceeds in two stages, mirroring how speech recognizers mangle
// short phrases:
//
//  1. Phonetic gate: Double Metaphone codes are computed for the heard window
//     and the phrase. Overlapping codes admit the window at the lower
//     phonetic threshold ("uh sistant" still sounds like "assistant").
//
//  2. Jaro-Winkler ranking: windows without phonetic overlap must clear the
//     stricter fuzzy threshold on string similarity alone.
func scorePhrase(heard, phrase string, phoneticThreshold, fuzzyThreshold float64) (float64, bool) {
	heardLower := strings.ToLower(strings.TrimSpace(heard))
	phraseLower := strings.ToLower(strings.TrimSpace(phrase))
	if heardLower == "" || phraseLower == "" {
		return 0, false
	}

	heardTokens := strings.Fields(heardLower)
	phraseTokens := strings.Fields(phraseLower)
	phraseCodes := codesForTokens(phraseTokens)

	n := len(phraseTokens)
	if len(heardTokens) < n {
		// Fewer heard tokens than phrase tokens: score the whole thing.
		return scoreWindow(heardTokens, phraseTokens, heardLower, phraseLower,
			phraseCodes, phoneticThreshold, fuzzyThreshold)
	}

	var (
		bestScore   float64
		bestMatched bool
	)
	for i := 0; i+n <= len(heardTokens); i++ {
		window := heardTokens[i : i+n]
		full := strings.Join(window, " ")
		score, ok := scoreWindow(window, phraseTokens, full, phraseLower,
			phraseCodes, phoneticThreshold, fuzzyThreshold)
		if ok && (!bestMatched || score > bestScore) {
			bestScore, bestMatched = score, true
		} else if !bestMatched && score > bestScore {
			bestScore = score
		}
	}
	return bestScore, bestMatched
}

// scoreWindow scores one aligned token window against the phrase.
func scoreWindow(window, phraseTokens []string, windowFull, phraseFull string,
	phraseCodes map[string]struct{}, phoneticThreshold, fuzzyThreshold float64) (float64, bool) {

	jw := bestJWScore(window, phraseTokens, windowFull, phraseFull)
	if codesOverlap(codesForTokens(window), phraseCodes) {
		return jw, jw >= phoneticThreshold
	}
	return jw, jw >= fuzzyThreshold
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or contains
// no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	// Iterate over the smaller set for efficiency.
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the heard
// window and the phrase using three strategies:
//
//  1. Full-string comparison (e.g., "a sistant" vs "assistant").
//  2. Space-stripped comparison (e.g., "asistant" vs "assistant").
//  3. Best pairwise token comparison, for when one heard token carries the
//     whole phrase.
func bestJWScore(windowTokens, phraseTokens []string, windowFull, phraseFull string) float64 {
	score := matchr.JaroWinkler(windowFull, phraseFull, false)

	if len(windowTokens) > 1 || len(phraseTokens) > 1 {
		concat1 := strings.Join(windowTokens, "")
		concat2 := strings.Join(phraseTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, wt := range windowTokens {
		for _, pt := range phraseTokens {
			if s := matchr.JaroWinkler(wt, pt, false); s > score {
				score = s
			}
		}
	}

	return score
}
