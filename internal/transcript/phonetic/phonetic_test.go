package phonetic

import "testing"

var menu = []string{
	"masala dosa",
	"idli sambar",
	"filter coffee",
	"paneer tikka",
	"gulab jamun",
}

func TestMatch(t *testing.T) {
	t.Parallel()

	m := New()

	t.Run("misheard multi-word item", func(t *testing.T) {
		t.Parallel()
		got, score, ok := m.Match("marsala doza", menu)
		if !ok {
			t.Fatal("no match for marsala doza")
		}
		if got != "masala dosa" {
			t.Errorf("Match = %q, want masala dosa", got)
		}
		if score < 0.7 {
			t.Errorf("score = %.2f, want at least the phonetic threshold", score)
		}
	})

	t.Run("misheard single word", func(t *testing.T) {
		t.Parallel()
		got, _, ok := m.Match("panir", menu)
		if !ok {
			t.Fatal("no match for panir")
		}
		if got != "paneer tikka" {
			t.Errorf("Match = %q, want paneer tikka", got)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		t.Parallel()
		got, _, ok := m.Match("Gulab Jamoon", menu)
		if !ok || got != "gulab jamun" {
			t.Errorf("Match = %q ok=%v, want gulab jamun", got, ok)
		}
	})

	t.Run("unrelated word unmatched", func(t *testing.T) {
		t.Parallel()
		got, score, ok := m.Match("helicopter", menu)
		if ok {
			t.Fatalf("helicopter matched %q", got)
		}
		if got != "helicopter" || score != 0 {
			t.Errorf("unmatched return = (%q, %.2f), want input unchanged and 0", got, score)
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		t.Parallel()
		if _, _, ok := m.Match("", menu); ok {
			t.Error("empty phrase matched")
		}
		if _, _, ok := m.Match("dosa", nil); ok {
			t.Error("empty item list matched")
		}
	})
}

func TestThresholdOptions(t *testing.T) {
	t.Parallel()

	// A maximally strict matcher only accepts near-exact strings.
	strict := New(WithPhoneticThreshold(0.99), WithFuzzyThreshold(0.99))
	if got, _, ok := strict.Match("marsala doza", menu); ok {
		t.Errorf("strict matcher accepted %q", got)
	}
	if _, _, ok := strict.Match("masala dosa", menu); !ok {
		t.Error("strict matcher rejected an exact item name")
	}
}
