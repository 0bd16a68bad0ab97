package learning

// History keeps the most recent transitions for diagnostics. When full, the
// oldest entry is overwritten. The learner never reads it.
type History struct {
	buf  []Transition
	next int
	full bool
}

// NewHistory returns a ring holding up to capacity transitions. A capacity
// of zero or less retains nothing.
func NewHistory(capacity int) *History {
	if capacity < 0 {
		capacity = 0
	}
	return &History{buf: make([]Transition, capacity)}
}

// Push records t, evicting the oldest transition if needed.
func (h *History) Push(t Transition) {
	if len(h.buf) == 0 {
		return
	}
	h.buf[h.next] = t
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Len is the number of retained transitions.
func (h *History) Len() int {
	if h.full {
		return len(h.buf)
	}
	return h.next
}

// Cap is the ring's capacity.
func (h *History) Cap() int { return len(h.buf) }

// Recent returns up to n transitions, oldest first.
func (h *History) Recent(n int) []Transition {
	size := h.Len()
	if n > size || n < 0 {
		n = size
	}
	out := make([]Transition, 0, n)
	start := h.next - n
	if start < 0 {
		start += len(h.buf)
	}
	for i := 0; i < n; i++ {
		out = append(out, h.buf[(start+i)%len(h.buf)])
	}
	return out
}
