package state

// Event is a tick-scoped cross-subsystem signal. Producers append during
// their phase; later phases may read, and the snapshot capturer drains the
// log into the capture for that tick. Events never survive past the tick in
// which they were produced.
type Event struct {
	Kind      string // "incident", "tension", "unlock", "victory"
	Subsystem string
	Entity    string
	Detail    string
	Severity  string
	Value     int64
}

const (
	EventIncident = "incident"
	EventTension  = "tension"
	EventUnlock   = "unlock"
	EventVictory  = "victory"

	SeverityWarn     = "warn"
	SeverityCritical = "critical"
)

// EventLog is an explicit append-only queue threaded through the scheduler.
// It is not a pub/sub bus: consumers scan the slice in append order.
type EventLog struct {
	events []Event
}

func (l *EventLog) Append(e Event) {
	l.events = append(l.events, e)
}

// Events returns the log contents in append order. The returned slice is
// the log's backing store; callers must not mutate it.
func (l *EventLog) Events() []Event {
	return l.events
}

// Drain returns all events and clears the log.
func (l *EventLog) Drain() []Event {
	out := l.events
	l.events = nil
	return out
}

func (l *EventLog) Len() int {
	return len(l.events)
}
