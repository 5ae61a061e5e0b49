package crow

import "github.com/kingrea/crow-eye/internal/threat"

// Memory is a bounded FIFO of remembered threats; adding past capacity
// evicts the oldest entry.
type Memory struct {
	capacity int
	items    []threat.Threat
}

// NewMemory creates an empty memory. Capacities below one hold one entry.
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{capacity: capacity, items: make([]threat.Threat, 0, capacity)}
}

// Remember stores t unless it is already present. It reports whether t was
// added.
func (m *Memory) Remember(t threat.Threat) bool {
	if m.Contains(t) {
		return false
	}
	if len(m.items) == m.capacity {
		copy(m.items, m.items[1:])
		m.items = m.items[:len(m.items)-1]
	}
	m.items = append(m.items, t)
	return true
}

// Contains reports whether an equal threat is remembered.
func (m *Memory) Contains(t threat.Threat) bool {
	for _, item := range m.items {
		if item == t {
			return true
		}
	}
	return false
}

func (m *Memory) Len() int      { return len(m.items) }
func (m *Memory) Capacity() int { return m.capacity }

// Items returns the remembered threats, oldest first.
func (m *Memory) Items() []threat.Threat {
	return append([]threat.Threat(nil), m.items...)
}
