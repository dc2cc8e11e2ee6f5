// Package lifecycle holds the status machines for bookings and orders and the
// rules that derive medical alerts from health records. Nothing in here
// touches the database; services apply the results.
package lifecycle

import (
	"fmt"
	"sort"
)

// Event names a partner action that moves a record between statuses.
type Event string

// NoopEvent is returned by Resolve when the requested status equals the
// current one. Callers re-emit the notice and skip the write.
const NoopEvent Event = "noop"

// Rule is a single row of a transition table.
type Rule[S ~string] struct {
	From  S
	Event Event
	To    S
}

// Machine is an explicit transition table keyed by (state, event).
type Machine[S ~string] struct {
	name        string
	transitions map[S]map[Event]S
	notices     map[S]string
}

// NewMachine builds a machine from its rules. A duplicate (from, event)
// pair is a programming error and panics.
func NewMachine[S ~string](name string, rules []Rule[S], notices map[S]string) *Machine[S] {
	m := &Machine[S]{
		name:        name,
		transitions: make(map[S]map[Event]S),
		notices:     notices,
	}
	for _, r := range rules {
		events, ok := m.transitions[r.From]
		if !ok {
			events = make(map[Event]S)
			m.transitions[r.From] = events
		}
		if _, dup := events[r.Event]; dup {
			panic(fmt.Sprintf("lifecycle: duplicate %s rule %s/%s", name, r.From, r.Event))
		}
		events[r.Event] = r.To
	}
	return m
}

// Name identifies the machine in errors and logs.
func (m *Machine[S]) Name() string {
	return m.name
}

// Fire applies event to from and returns the resulting status.
func (m *Machine[S]) Fire(from S, event Event) (S, error) {
	if to, ok := m.transitions[from][event]; ok {
		return to, nil
	}
	return from, m.invalid(from, "", event)
}

// Resolve finds the event that moves from into to. Asking for the current
// status yields NoopEvent.
func (m *Machine[S]) Resolve(from, to S) (Event, error) {
	if from == to {
		return NoopEvent, nil
	}
	for _, event := range m.events(from) {
		if m.transitions[from][event] == to {
			return event, nil
		}
	}
	return "", m.invalid(from, to, "")
}

// Allowed lists the statuses reachable from from in one step, sorted.
func (m *Machine[S]) Allowed(from S) []S {
	seen := make(map[S]bool)
	var out []S
	for _, to := range m.transitions[from] {
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Notice is the confirmation text shown after reaching status.
func (m *Machine[S]) Notice(status S) string {
	return m.notices[status]
}

func (m *Machine[S]) events(from S) []Event {
	events := make([]Event, 0, len(m.transitions[from]))
	for event := range m.transitions[from] {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

func (m *Machine[S]) invalid(from, to S, event Event) *TransitionError {
	allowed := m.Allowed(from)
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return &TransitionError{
		Machine: m.name,
		From:    string(from),
		To:      string(to),
		Event:   string(event),
		Allowed: names,
	}
}

// TransitionError reports a move that is not in the transition table.
type TransitionError struct {
	Machine string
	From    string
	To      string
	Event   string
	Allowed []string
}

func (e *TransitionError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("%s: event %q not allowed in status %q", e.Machine, e.Event, e.From)
	}
	return fmt.Sprintf("%s: cannot move from %q to %q", e.Machine, e.From, e.To)
}

// StatusError reports a status name that the machine does not know.
type StatusError struct {
	Kind  string
	Value string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unknown %s status: %q", e.Kind, e.Value)
}
