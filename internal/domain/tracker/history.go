package tracker

// History is a fixed-capacity FIFO of balances. Once full, each Push
// evicts the oldest value.
type History struct {
	buf   []float64
	head  int // index of the oldest value
	count int
}

// NewHistory creates a history holding at most capacity values.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when the history is full.
func (h *History) Push(v float64) {
	if h.count < len(h.buf) {
		h.buf[(h.head+h.count)%len(h.buf)] = v
		h.count++
		return
	}
	h.buf[h.head] = v
	h.head = (h.head + 1) % len(h.buf)
}

// Last returns the most recently pushed value.
func (h *History) Last() (float64, bool) {
	if h.count == 0 {
		return 0, false
	}
	return h.buf[(h.head+h.count-1)%len(h.buf)], true
}

// Len returns the number of retained values.
func (h *History) Len() int { return h.count }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.buf) }

// Values returns the retained values, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}
