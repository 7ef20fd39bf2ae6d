package segment

import (
	"bytes"
	"testing"
)

func TestPrerollBuffer(t *testing.T) {
	t.Parallel()

	t.Run("evicts oldest when full", func(t *testing.T) {
		t.Parallel()
		b := NewPrerollBuffer(3)
		for i := byte(0); i < 5; i++ {
			b.Push([]byte{i})
		}
		got := b.Snapshot()
		if len(got) != 3 {
			t.Fatalf("Len = %d, want 3", len(got))
		}
		for i, want := range []byte{2, 3, 4} {
			if got[i][0] != want {
				t.Errorf("frame[%d] = %d, want %d", i, got[i][0], want)
			}
		}
	})

	t.Run("snapshot preserves push order", func(t *testing.T) {
		t.Parallel()
		b := NewPrerollBuffer(4)
		b.Push([]byte{1})
		b.Push([]byte{2})
		got := b.Snapshot()
		if len(got) != 2 || got[0][0] != 1 || got[1][0] != 2 {
			t.Errorf("Snapshot = %v, want [[1] [2]]", got)
		}
	})

	t.Run("push copies the frame", func(t *testing.T) {
		t.Parallel()
		b := NewPrerollBuffer(2)
		frame := []byte{7, 7}
		b.Push(frame)
		frame[0] = 9
		if got := b.Snapshot()[0]; !bytes.Equal(got, []byte{7, 7}) {
			t.Errorf("buffered frame mutated via caller slice: %v", got)
		}
	})

	t.Run("zero capacity retains nothing", func(t *testing.T) {
		t.Parallel()
		b := NewPrerollBuffer(0)
		b.Push([]byte{1})
		if b.Len() != 0 {
			t.Errorf("Len = %d, want 0", b.Len())
		}
	})

	t.Run("reset empties the buffer", func(t *testing.T) {
		t.Parallel()
		b := NewPrerollBuffer(2)
		b.Push([]byte{1})
		b.Reset()
		if b.Len() != 0 || len(b.Snapshot()) != 0 {
			t.Error("buffer not empty after Reset")
		}
	})
}
