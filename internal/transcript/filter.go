// Package transcript validates and corrects transcription output before it
// reaches the ordering agent.
//
// The Filter is a rule-based classifier that rejects transcripts which are
// artifacts of the transcription service rather than real speech: echoed
// labels, leaked instructions, repeated words or phrases, and stock
// filler sentences the service produces for silence. The MenuCorrector
// aligns misheard menu item names phonetically.
package transcript

import (
	"strings"
)

// Reason is the typed rejection reason attached to a rejected verdict.
type Reason string

const (
	// ReasonMetaWord flags a transcript that is exactly one internal label
	// word (a language name or format label) echoed by the service.
	ReasonMetaWord Reason = "meta_word"

	// ReasonPromptLeak flags a transcript containing a fragment of the
	// transcription instructions.
	ReasonPromptLeak Reason = "prompt_leak"

	// ReasonVocabularyEcho flags a transcript that mostly repeats the
	// supplied vocabulary hint instead of transcribing audio.
	ReasonVocabularyEcho Reason = "vocabulary_echo"

	// ReasonWordRepetition flags a transcript dominated by one word.
	ReasonWordRepetition Reason = "word_repetition"

	// ReasonNgramRepetition flags a transcript with a short phrase
	// repeated implausibly often.
	ReasonNgramRepetition Reason = "ngram_repetition"

	// ReasonTooLong flags a transcript too long for a single utterance.
	ReasonTooLong Reason = "too_long"

	// ReasonGarbagePhrase flags a transcript matching a known stock
	// artifact phrase.
	ReasonGarbagePhrase Reason = "garbage_phrase"
)

// Verdict is the filter's decision for one transcript.
type Verdict struct {
	// Accepted reports whether the transcript passed all checks.
	Accepted bool

	// Text is the transcript under judgement, unchanged.
	Text string

	// Reason is set when Accepted is false.
	Reason Reason
}

// metaWords are label words the transcription service occasionally echoes
// verbatim instead of transcribing: supported language names and output
// format labels.
var metaWords = map[string]struct{}{
	"english":    {},
	"german":     {},
	"french":     {},
	"spanish":    {},
	"italian":    {},
	"hindi":      {},
	"tamil":      {},
	"telugu":     {},
	"kannada":    {},
	"malayalam":  {},
	"transcript": {},
	"subtitles":  {},
	"json":       {},
	"text":       {},
}

// promptLeakFragments are instruction substrings that can only appear in a
// transcript when the service leaks its own prompt.
var promptLeakFragments = []string{
	"transcribe the following",
	"transcribe the audio",
	"you are a transcription",
	"system prompt",
	"as an ai",
	"vocabulary hint",
	"output only the",
	"respond with the transcript",
}

// garbagePhrases are stock sentences transcription models emit for silence
// or music, learned from caption training data.
var garbagePhrases = []string{
	"thank you for watching",
	"thanks for watching",
	"please subscribe",
	"like and subscribe",
	"see you in the next video",
	"subtitles by",
	"copyright ©",
	"www.",
	"[music]",
	"[applause]",
}

const (
	// vocabEchoMinWords is the minimum transcript length for the
	// vocabulary echo check to apply.
	vocabEchoMinWords = 3

	// vocabEchoOverlap is the word-overlap ratio above which a transcript
	// is considered an echo of the vocabulary hint.
	vocabEchoOverlap = 0.6

	// wordRepetitionMinWords is the minimum transcript length for the
	// single-word repetition check to apply.
	wordRepetitionMinWords = 6

	// wordRepetitionRatio is the share of all words one word must exceed
	// to be flagged.
	wordRepetitionRatio = 0.4

	// ngramMinRecurrence is the number of times an n-gram must recur to be
	// flagged.
	ngramMinRecurrence = 3
)

// FilterConfig tunes the hallucination filter.
type FilterConfig struct {
	// MaxWords rejects transcripts longer than this many words.
	MaxWords int

	// BaseLanguage is the transcriber's working language (lowercase ISO
	// 639-1). The vocabulary echo check only applies to transcripts in
	// this language, since the hint is supplied in it.
	BaseLanguage string
}

// Filter classifies transcripts as genuine speech or transcription
// artifacts. The checks run in a fixed order and short-circuit on the
// first hit, so identical input always yields an identical verdict.
// Safe for concurrent use.
type Filter struct {
	cfg FilterConfig
}

// NewFilter creates a Filter. Zero MaxWords defaults to 100.
func NewFilter(cfg FilterConfig) *Filter {
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = 100
	}
	if cfg.BaseLanguage == "" {
		cfg.BaseLanguage = "en"
	}
	return &Filter{cfg: cfg}
}

// Check judges one transcript. vocabularyHint is the hint supplied to the
// transcriber for this session; language is the session's language.
func (f *Filter) Check(text, vocabularyHint, language string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(text))
	words := fieldsWithoutPunct(normalized)

	if reason, rejected := f.classify(normalized, words, vocabularyHint, language); rejected {
		return Verdict{Accepted: false, Text: text, Reason: reason}
	}
	return Verdict{Accepted: true, Text: text}
}

func (f *Filter) classify(normalized string, words []string, vocabularyHint, language string) (Reason, bool) {
	// 1. Meta-word leak: the whole transcript is one label word.
	if len(words) == 1 {
		if _, ok := metaWords[words[0]]; ok {
			return ReasonMetaWord, true
		}
	}

	// 2. Prompt leak.
	for _, fragment := range promptLeakFragments {
		if strings.Contains(normalized, fragment) {
			return ReasonPromptLeak, true
		}
	}

	// 3. Vocabulary hint echo, base language only.
	if language == f.cfg.BaseLanguage && vocabularyHint != "" && len(words) >= vocabEchoMinWords {
		if vocabularyOverlap(words, vocabularyHint) > vocabEchoOverlap {
			return ReasonVocabularyEcho, true
		}
	}

	// 4. Single-word repetition.
	if len(words) >= wordRepetitionMinWords {
		counts := make(map[string]int, len(words))
		maxCount := 0
		for _, w := range words {
			counts[w]++
			if counts[w] > maxCount {
				maxCount = counts[w]
			}
		}
		if float64(maxCount) > wordRepetitionRatio*float64(len(words)) {
			return ReasonWordRepetition, true
		}
	}

	// 5. N-gram repetition for n in {2, 3, 4}.
	for n := 2; n <= 4; n++ {
		if len(words) < 3*n {
			continue
		}
		if hasRecurringNgram(words, n, ngramMinRecurrence) {
			return ReasonNgramRepetition, true
		}
	}

	// 6. Excessive length.
	if len(words) > f.cfg.MaxWords {
		return ReasonTooLong, true
	}

	// 7. Known garbage phrases.
	for _, phrase := range garbagePhrases {
		if strings.Contains(normalized, phrase) {
			return ReasonGarbagePhrase, true
		}
	}

	return "", false
}

// vocabularyOverlap returns the share of transcript words present in the
// vocabulary hint.
func vocabularyOverlap(words []string, hint string) float64 {
	hintWords := make(map[string]struct{})
	for _, w := range fieldsWithoutPunct(strings.ToLower(hint)) {
		hintWords[w] = struct{}{}
	}
	if len(hintWords) == 0 {
		return 0
	}
	matched := 0
	for _, w := range words {
		if _, ok := hintWords[w]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(words))
}

// hasRecurringNgram reports whether any n-word phrase occurs at least
// minCount times.
func hasRecurringNgram(words []string, n, minCount int) bool {
	counts := make(map[string]int)
	for i := 0; i+n <= len(words); i++ {
		key := strings.Join(words[i:i+n], " ")
		counts[key]++
		if counts[key] >= minCount {
			return true
		}
	}
	return false
}

// fieldsWithoutPunct splits text into words with leading and trailing
// punctuation stripped. Empty tokens are dropped.
func fieldsWithoutPunct(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !isWordRune(r)
		})
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r > 127:
		// Non-ASCII letters (accented Latin, Indic scripts) are word runes.
		return true
	}
	return false
}
