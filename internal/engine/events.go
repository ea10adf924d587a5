package engine

import "log/slog"

const (
	maxEvents     = 1000 // Events kept in memory
	subBufferSize = 64
)

// Event categories.
const (
	CategoryState   = "state"
	CategoryControl = "control"
	CategoryAlarm   = "alarm"
	CategoryLayout  = "layout"
	CategoryConfig  = "config"
)

// Event is a notable occurrence during a run.
type Event struct {
	Frame       uint64         `json:"frame" db:"frame"`
	Description string         `json:"description" db:"description"`
	Category    string         `json:"category" db:"category"`
	Meta        map[string]any `json:"meta,omitempty" db:"-"`
}

// EmitEvent records e and fans it out to subscribers. Callers hold s.mu.
// Slow subscribers miss events rather than stall the tick.
func (s *Simulation) EmitEvent(e Event) {
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = append([]Event(nil), s.Events[len(s.Events)-maxEvents:]...)
	}
	s.unsaved = append(s.unsaved, e)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- e:
		default:
			slog.Debug("event dropped for slow subscriber", "sub_id", id, "category", e.Category)
		}
	}
}

// Subscribe registers a listener for new events.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]chan Event)
	}
	s.nextSub++
	ch := make(chan Event, subBufferSize)
	s.subs[s.nextSub] = ch
	return s.nextSub, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// RecentEvents returns up to n of the latest events, oldest first.
func (s *Simulation) RecentEvents(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.Events) - n
	if n <= 0 || start < 0 {
		start = 0
	}
	return append([]Event(nil), s.Events[start:]...)
}

// DrainEvents returns events emitted since the last drain, for persistence.
func (s *Simulation) DrainEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.unsaved
	s.unsaved = nil
	return out
}
