package model

// Transition is one row of a guarded transition table: in state From,
// event On moves the entity to To.
type Transition[S ~string, E ~string] struct {
	From S
	On   E
	To   S
}

type transitionKey[S ~string, E ~string] struct {
	from S
	on   E
}

// StateMachine is an immutable transition table. Apply returns the next
// state and true, or the current state and false when the event does not
// apply (a noop, not an error).
type StateMachine[S ~string, E ~string] struct {
	name  string
	table map[transitionKey[S, E]]S
}

func NewStateMachine[S ~string, E ~string](name string, ts ...Transition[S, E]) *StateMachine[S, E] {
	m := &StateMachine[S, E]{name: name, table: make(map[transitionKey[S, E]]S, len(ts))}
	for _, t := range ts {
		m.table[transitionKey[S, E]{t.From, t.On}] = t.To
	}
	return m
}

func (m *StateMachine[S, E]) Name() string { return m.name }

func (m *StateMachine[S, E]) Apply(cur S, ev E) (S, bool) {
	next, ok := m.table[transitionKey[S, E]{cur, ev}]
	if !ok {
		return cur, false
	}
	return next, true
}

func (m *StateMachine[S, E]) Can(cur S, ev E) bool {
	_, ok := m.table[transitionKey[S, E]{cur, ev}]
	return ok
}

// Sources lists every state from which ev is accepted.
func (m *StateMachine[S, E]) Sources(ev E) []S {
	var out []S
	for k := range m.table {
		if k.on == ev {
			out = append(out, k.from)
		}
	}
	return out
}
