package transcript

import (
	"strings"

	"github.com/tablevox/tablevox/internal/transcript/phonetic"
)

// Correction records one menu item substitution made by the corrector.
type Correction struct {
	// Original is the phrase as transcribed.
	Original string

	// Corrected is the menu item it was replaced with.
	Corrected string

	// Confidence is the similarity score of the match.
	Confidence float64
}

// MenuCorrector aligns misheard menu item names in an accepted transcript
// with the venue's vocabulary. Safe for concurrent use.
type MenuCorrector struct {
	matcher *phonetic.Matcher
	items   []string

	// maxItemWords is the longest item name in words, bounding the n-gram
	// window.
	maxItemWords int
}

// NewMenuCorrector creates a corrector for the given menu vocabulary.
// An empty vocabulary yields a corrector that passes text through
// unchanged.
func NewMenuCorrector(items []string, opts ...phonetic.Option) *MenuCorrector {
	maxWords := 0
	for _, item := range items {
		if n := len(strings.Fields(item)); n > maxWords {
			maxWords = n
		}
	}
	return &MenuCorrector{
		matcher:      phonetic.New(opts...),
		items:        items,
		maxItemWords: maxWords,
	}
}

// Correct replaces misheard menu item names in text and returns the
// corrected text with the list of substitutions applied.
//
// At each token position the corrector tries n-gram windows from the
// longest item name down to a single word and accepts the longest match,
// so multi-word items take precedence over partial single-word matches.
// Tokens that exactly match a vocabulary word are never rewritten.
func (c *MenuCorrector) Correct(text string) (string, []Correction) {
	if c.maxItemWords == 0 {
		return text, nil
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	exact := make(map[string]struct{})
	for _, item := range c.items {
		for _, w := range strings.Fields(strings.ToLower(item)) {
			exact[w] = struct{}{}
		}
	}

	var out []string
	var corrections []Correction

	for i := 0; i < len(tokens); {
		matched := false
		for n := min(c.maxItemWords, len(tokens)-i); n >= 1 && !matched; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			if c.allExact(tokens[i:i+n], exact) {
				// Already correct vocabulary words; leave untouched.
				break
			}
			// Multi-word windows are ranked on whole-phrase similarity so a
			// single shared token cannot drag in an unrelated item.
			var (
				item  string
				score float64
				ok    bool
			)
			if n > 1 {
				item, score, ok = c.matcher.MatchPhrase(window, c.items)
			} else {
				item, score, ok = c.matcher.Match(window, c.items)
			}
			if !ok {
				continue
			}
			corrections = append(corrections, Correction{
				Original:   window,
				Corrected:  item,
				Confidence: score,
			})
			out = append(out, item)
			i += n
			matched = true
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}

	return strings.Join(out, " "), corrections
}

func (c *MenuCorrector) allExact(tokens []string, exact map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := exact[strings.ToLower(t)]; !ok {
			return false
		}
	}
	return true
}
