package room

// History is a bounded ring of play events. The oldest event is evicted when
// the ring is full. It is not safe for concurrent use; Store guards it.
type History struct {
	events []PlayEvent
	size   int
}

// NewHistory creates a History holding at most size events.
// A non-positive size uses DefaultHistorySize.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		events: make([]PlayEvent, 0, size),
		size:   size,
	}
}

// Push appends an event, evicting the oldest one when full.
func (h *History) Push(e PlayEvent) {
	if len(h.events) == h.size {
		copy(h.events, h.events[1:])
		h.events = h.events[:h.size-1]
	}
	h.events = append(h.events, e)
}

// Len returns the number of stored events.
func (h *History) Len() int {
	return len(h.events)
}

// Recent returns up to n of the newest events, oldest first.
func (h *History) Recent(n int) []PlayEvent {
	if n <= 0 || n > len(h.events) {
		n = len(h.events)
	}
	out := make([]PlayEvent, n)
	copy(out, h.events[len(h.events)-n:])
	return out
}

// Humans returns up to n of the newest events not performed by self, oldest first.
func (h *History) Humans(n int) []PlayEvent {
	var out []PlayEvent
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].IsSelfPerformed {
			continue
		}
		out = append(out, h.events[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
