package transcript

import (
	"fmt"
	"strings"
	"testing"
)

func newTestFilter() *Filter {
	return NewFilter(FilterConfig{MaxWords: 100, BaseLanguage: "en"})
}

// distinctWords builds an n-word transcript with no repeated words, so
// only the length check can fire.
func distinctWords(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "item%d", i)
	}
	return sb.String()
}

func TestFilterAccepts(t *testing.T) {
	t.Parallel()

	f := newTestFilter()
	cases := []string{
		"add two masala dosa to my order",
		"yes",
		"what do you recommend for a vegetarian",
		"one filter coffee and an idli sambar please",
	}
	for _, text := range cases {
		t.Run(text, func(t *testing.T) {
			t.Parallel()
			v := f.Check(text, "masala dosa, idli sambar", "en")
			if !v.Accepted {
				t.Errorf("Check(%q) rejected with %q, want accepted", text, v.Reason)
			}
			if v.Text != text {
				t.Errorf("verdict text = %q, want unchanged input", v.Text)
			}
		})
	}
}

func TestFilterRejects(t *testing.T) {
	t.Parallel()

	f := newTestFilter()
	cases := []struct {
		name string
		text string
		want Reason
	}{
		{
			name: "meta word language label",
			text: "English",
			want: ReasonMetaWord,
		},
		{
			name: "meta word format label",
			text: "transcript",
			want: ReasonMetaWord,
		},
		{
			name: "prompt leak",
			text: "transcribe the following audio into text",
			want: ReasonPromptLeak,
		},
		{
			name: "word repetition",
			text: "the the the the the the",
			want: ReasonWordRepetition,
		},
		{
			name: "bigram repetition",
			text: "i want i want i want a coffee now",
			want: ReasonNgramRepetition,
		},
		{
			name: "trigram repetition",
			text: "to my order please to my order please to my order please",
			want: ReasonNgramRepetition,
		},
		{
			name: "excessive length",
			text: distinctWords(101),
			want: ReasonTooLong,
		},
		{
			name: "garbage phrase",
			text: "Thank You For Watching",
			want: ReasonGarbagePhrase,
		},
		{
			name: "garbage phrase embedded",
			text: "okay thanks for watching everyone",
			want: ReasonGarbagePhrase,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := f.Check(tc.text, "", "en")
			if v.Accepted {
				t.Fatalf("Check(%q) accepted, want rejection %q", tc.text, tc.want)
			}
			if v.Reason != tc.want {
				t.Errorf("reason = %q, want %q", v.Reason, tc.want)
			}
		})
	}
}

func TestFilterVocabularyEcho(t *testing.T) {
	t.Parallel()

	f := newTestFilter()
	hint := "masala dosa, idli sambar, filter coffee"

	t.Run("echo rejected in base language", func(t *testing.T) {
		t.Parallel()
		v := f.Check("masala dosa idli sambar coffee", hint, "en")
		if v.Accepted || v.Reason != ReasonVocabularyEcho {
			t.Errorf("verdict = %+v, want vocabulary echo rejection", v)
		}
	})

	t.Run("echo ignored outside base language", func(t *testing.T) {
		t.Parallel()
		v := f.Check("masala dosa idli sambar coffee", hint, "de")
		if !v.Accepted {
			t.Errorf("rejected with %q, want accepted outside base language", v.Reason)
		}
	})

	t.Run("short transcript exempt", func(t *testing.T) {
		t.Parallel()
		v := f.Check("masala dosa", hint, "en")
		if !v.Accepted {
			t.Errorf("two-word order rejected with %q, want accepted", v.Reason)
		}
	})

	t.Run("partial overlap under threshold accepted", func(t *testing.T) {
		t.Parallel()
		// 3 of 7 words are hint words (43%), below the 60% bar.
		v := f.Check("add one masala dosa and filter water", hint, "en")
		if !v.Accepted {
			t.Errorf("rejected with %q, want accepted", v.Reason)
		}
	})
}

func TestFilterDeterministic(t *testing.T) {
	t.Parallel()

	f := newTestFilter()
	inputs := []string{
		"add two masala dosa to my order",
		"the the the the the the",
		"thank you for watching",
	}
	for _, text := range inputs {
		first := f.Check(text, "hint words", "en")
		for i := 0; i < 10; i++ {
			if got := f.Check(text, "hint words", "en"); got != first {
				t.Fatalf("Check(%q) verdict changed between calls: %+v vs %+v", text, first, got)
			}
		}
	}
}

func TestFilterChecksRunInOrder(t *testing.T) {
	t.Parallel()

	// A transcript that is both a repeated word and a garbage phrase must
	// report the earlier check's reason.
	f := newTestFilter()
	text := "thanks thanks thanks thanks thanks thanks for watching"
	v := f.Check(text, "", "en")
	if v.Accepted {
		t.Fatal("accepted, want rejection")
	}
	if v.Reason != ReasonWordRepetition {
		t.Errorf("reason = %q, want word_repetition (earlier check wins)", v.Reason)
	}
}
