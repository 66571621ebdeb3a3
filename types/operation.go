package types

// OpKind tags a write operation queued against a component store.
type OpKind uint8

const (
	OpCreate OpKind = iota
	OpWrite
	OpMutate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpMutate:
		return "mutate"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// WriteOperation is a single staged state change. Exactly one of Payload
// (writes) or Mutator (mutations, create initializers) is set depending on
// Kind; deletes carry neither.
type WriteOperation struct {
	Kind          OpKind
	ComponentType string
	Entity        EntityID

	// Payload is the full value for OpWrite. The store copies it on apply,
	// so the caller keeps ownership of the instance it passed in.
	Payload Component

	// Mutator edits stored data in place for OpMutate. For OpCreate it is
	// an optional initializer run before the fresh payload is stored.
	Mutator Mutator
}

// CommitStats counts what a single store actually did while applying one
// commit batch.
type CommitStats struct {
	Created int `json:"created"`
	Written int `json:"written"`
	Mutated int `json:"mutated"`
	Deleted int `json:"deleted"`
	// Skipped counts creates that found the entity already present and
	// mutations against absent entities.
	Skipped int `json:"skipped"`
}

func (s CommitStats) Total() int {
	return s.Created + s.Written + s.Mutated + s.Deleted
}
