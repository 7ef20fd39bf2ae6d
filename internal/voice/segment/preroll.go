package segment

// PrerollBuffer retains the most recent audio frames regardless of speech
// state, so quiet onset syllables preceding a detection threshold crossing
// can be recovered when a new utterance starts.
//
// The buffer is a fixed-capacity FIFO ring: pushing onto a full buffer
// evicts the oldest frame. Not safe for concurrent use; the session's
// receive loop is the only writer.
type PrerollBuffer struct {
	frames [][]byte
	head   int
	size   int
}

// NewPrerollBuffer creates a buffer retaining up to capacity frames.
// A capacity of zero yields a buffer that retains nothing.
func NewPrerollBuffer(capacity int) *PrerollBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &PrerollBuffer{frames: make([][]byte, capacity)}
}

// Push appends a copy of frame, evicting the oldest frame when full.
func (b *PrerollBuffer) Push(frame []byte) {
	if len(b.frames) == 0 {
		return
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)

	tail := (b.head + b.size) % len(b.frames)
	b.frames[tail] = cp
	if b.size < len(b.frames) {
		b.size++
	} else {
		b.head = (b.head + 1) % len(b.frames)
	}
}

// Snapshot returns the buffered frames oldest first. The returned slices
// are the buffer's own copies; callers must not mutate them.
func (b *PrerollBuffer) Snapshot() [][]byte {
	out := make([][]byte, 0, b.size)
	for i := 0; i < b.size; i++ {
		out = append(out, b.frames[(b.head+i)%len(b.frames)])
	}
	return out
}

// Len returns the number of buffered frames.
func (b *PrerollBuffer) Len() int {
	return b.size
}

// Reset discards all buffered frames.
func (b *PrerollBuffer) Reset() {
	b.head = 0
	b.size = 0
}
