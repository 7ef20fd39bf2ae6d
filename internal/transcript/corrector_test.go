package transcript

import (
	"testing"
)

var testMenu = []string{"masala dosa", "idli sambar", "filter coffee"}

func TestMenuCorrector(t *testing.T) {
	t.Parallel()

	c := NewMenuCorrector(testMenu)

	t.Run("corrects misheard item", func(t *testing.T) {
		t.Parallel()
		got, corrections := c.Correct("add two marsala doza to my order")
		if got != "add two masala dosa to my order" {
			t.Errorf("Correct = %q", got)
		}
		if len(corrections) != 1 {
			t.Fatalf("corrections = %d, want 1", len(corrections))
		}
		if corrections[0].Original != "marsala doza" || corrections[0].Corrected != "masala dosa" {
			t.Errorf("correction = %+v", corrections[0])
		}
		if corrections[0].Confidence <= 0 {
			t.Error("correction confidence not recorded")
		}
	})

	t.Run("exact item untouched", func(t *testing.T) {
		t.Parallel()
		got, corrections := c.Correct("one masala dosa please")
		if got != "one masala dosa please" {
			t.Errorf("Correct = %q, want input unchanged", got)
		}
		if len(corrections) != 0 {
			t.Errorf("corrections = %v, want none", corrections)
		}
	})

	t.Run("unrelated text untouched", func(t *testing.T) {
		t.Parallel()
		in := "what time do you close tonight"
		got, corrections := c.Correct(in)
		if got != in || len(corrections) != 0 {
			t.Errorf("Correct = %q (%d corrections), want unchanged", got, len(corrections))
		}
	})

	t.Run("empty vocabulary passes through", func(t *testing.T) {
		t.Parallel()
		empty := NewMenuCorrector(nil)
		in := "add two marsala doza"
		got, corrections := empty.Correct(in)
		if got != in || corrections != nil {
			t.Errorf("Correct = %q %v, want passthrough", got, corrections)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		t.Parallel()
		got, corrections := c.Correct("")
		if got != "" || corrections != nil {
			t.Errorf("Correct(\"\") = %q %v", got, corrections)
		}
	})
}
