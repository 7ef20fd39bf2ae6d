// Package phonetic matches misheard words against a menu vocabulary using
// Double Metaphone phonetic encoding with Jaro-Winkler ranking.
//
// Menu item names are exactly the words a transcription model is worst at:
// low-frequency, often transliterated, and acoustically close to common
// words ("masala dosa" heard as "marsala doza"). The matcher proceeds in
// two stages:
//
//  1. Phonetic candidate filtering: Double Metaphone codes are computed
//     for the input and for each menu item; items sharing at least one
//     code become candidates.
//  2. Jaro-Winkler ranking: among candidates, the item with the highest
//     similarity on the original strings wins, provided it clears the
//     phonetic threshold. When no phonetic candidate exists, a secondary
//     pass accepts a pure string-similarity match at a stricter
//     threshold.
//
// Multi-word items are supported: codes are computed per word and the
// best pairwise score across word pairs is considered when ranking.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched item to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the matcher falls back to pure string
// similarity. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher aligns misheard words with menu item names. Read-only after
// construction, so safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a new [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match finds the menu item most phonetically similar to phrase.
//
// phrase may be a single word or a space-separated n-gram. When matched is
// false, corrected equals phrase unchanged and confidence is 0.
func (m *Matcher) Match(phrase string, items []string) (corrected string, confidence float64, matched bool) {
	if len(items) == 0 || strings.TrimSpace(phrase) == "" {
		return phrase, 0, false
	}

	phraseLower := strings.ToLower(strings.TrimSpace(phrase))
	phraseTokens := strings.Fields(phraseLower)
	phraseCodes := codesForTokens(phraseTokens)

	type candidate struct {
		item     string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, item := range items {
		itemLower := strings.ToLower(strings.TrimSpace(item))
		if itemLower == "" {
			continue
		}
		itemTokens := strings.Fields(itemLower)
		phoneticMatch := codesOverlap(phraseCodes, codesForTokens(itemTokens))
		jwScore := bestJWScore(phraseTokens, itemTokens, phraseLower, itemLower)

		if phoneticMatch {
			if jwScore >= m.phoneticThreshold {
				if !best.phonetic || jwScore > best.score {
					best = candidate{item: item, score: jwScore, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if jwScore >= m.fuzzyThreshold && jwScore > best.score {
				best = candidate{item: item, score: jwScore, phonetic: false}
			}
		}
	}

	if best.item != "" {
		return best.item, best.score, true
	}
	return phrase, 0, false
}

// MatchPhrase is like [Matcher.Match] but ranks candidates only on
// whole-phrase similarity, ignoring the pairwise token strategy. Use it
// for multi-word windows where a single shared token must not drag in an
// item the rest of the window does not resemble ("one masala" must not
// become "masala dosa").
func (m *Matcher) MatchPhrase(phrase string, items []string) (corrected string, confidence float64, matched bool) {
	if len(items) == 0 || strings.TrimSpace(phrase) == "" {
		return phrase, 0, false
	}

	phraseLower := strings.ToLower(strings.TrimSpace(phrase))
	phraseTokens := strings.Fields(phraseLower)
	phraseCodes := codesForTokens(phraseTokens)

	type candidate struct {
		item     string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, item := range items {
		itemLower := strings.ToLower(strings.TrimSpace(item))
		if itemLower == "" {
			continue
		}
		itemTokens := strings.Fields(itemLower)
		phoneticMatch := codesOverlap(phraseCodes, codesForTokens(itemTokens))
		jwScore := phraseJWScore(phraseTokens, itemTokens, phraseLower, itemLower)

		if phoneticMatch {
			if jwScore >= m.phoneticThreshold {
				if !best.phonetic || jwScore > best.score {
					best = candidate{item: item, score: jwScore, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if jwScore >= m.fuzzyThreshold && jwScore > best.score {
				best = candidate{item: item, score: jwScore, phonetic: false}
			}
		}
	}

	if best.item != "" {
		return best.item, best.score, true
	}
	return phrase, 0, false
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
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

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
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

// bestJWScore computes the highest Jaro-Winkler similarity between the
// input and the item using three strategies: full strings, space-stripped
// strings, and the best pairwise token score. The pairwise pass handles
// one spoken word corresponding to one item word.
func bestJWScore(inputTokens, itemTokens []string, inputFull, itemFull string) float64 {
	score := matchr.JaroWinkler(inputFull, itemFull, false)

	if len(inputTokens) > 1 || len(itemTokens) > 1 {
		concatIn := strings.Join(inputTokens, "")
		concatItem := strings.Join(itemTokens, "")
		if s := matchr.JaroWinkler(concatIn, concatItem, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, mt := range itemTokens {
			if s := matchr.JaroWinkler(it, mt, false); s > score {
				score = s
			}
		}
	}

	return score
}

// phraseJWScore is bestJWScore without the pairwise token strategy.
func phraseJWScore(inputTokens, itemTokens []string, inputFull, itemFull string) float64 {
	score := matchr.JaroWinkler(inputFull, itemFull, false)
	if len(inputTokens) > 1 || len(itemTokens) > 1 {
		concatIn := strings.Join(inputTokens, "")
		concatItem := strings.Join(itemTokens, "")
		if s := matchr.JaroWinkler(concatIn, concatItem, false); s > score {
			score = s
		}
	}
	return score
}
