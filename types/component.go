package types

import (
	"github.com/rotisserie/eris"

	"github.com/meridian-games/shardcore/codec"
)

var (
	ErrMissingOwner = eris.New("component data must have an owner")
)

// Component is the contract for all component payloads. Concrete component
// types are plain structs that report their type name; the core is agnostic
// to their shape beyond that.
type Component interface {
	Name() string
}

// ComponentData is a single component payload bound to its owning entity.
// It is always built through NewComponentData so an ownerless record cannot
// exist.
type ComponentData struct {
	Owner EntityID  `json:"owner"`
	Data  Component `json:"data"`
}

func NewComponentData(owner EntityID, data Component) (ComponentData, error) {
	if owner.IsZero() {
		return ComponentData{}, eris.Wrapf(ErrMissingOwner, "component %q", data.Name())
	}
	return ComponentData{Owner: owner, Data: data}, nil
}

// ComponentMetadata is the type-erased handle a store uses to create, copy,
// and serialize payloads of one concrete component type.
type ComponentMetadata interface {
	// Name returns the component type name.
	Name() string
	// New builds a zero-valued payload for the given owner. A zero owner is
	// an error: payloads never exist unowned.
	New(owner EntityID) (Component, error)
	// Encode serializes a payload of this type.
	Encode(c Component) ([]byte, error)
	// Decode deserializes bytes into a fresh payload of this type.
	Decode(bz []byte) (Component, error)
	// Copy returns an independent deep copy of the payload. Mutating the
	// copy never affects the original.
	Copy(c Component) (Component, error)
}

type componentMetadata[T Component] struct {
	name string
}

// NewComponentMetadata builds the metadata handle for component type T.
// T must be a struct type whose Name method has a value receiver; payloads
// are handled as *T so mutators can edit them in place.
func NewComponentMetadata[T Component]() ComponentMetadata {
	var zero T
	return &componentMetadata[T]{name: zero.Name()}
}

func (m *componentMetadata[T]) Name() string {
	return m.name
}

func (m *componentMetadata[T]) New(owner EntityID) (Component, error) {
	if owner.IsZero() {
		return nil, eris.Wrapf(ErrMissingOwner, "component %q", m.name)
	}
	return any(new(T)).(Component), nil
}

func (m *componentMetadata[T]) Encode(c Component) ([]byte, error) {
	return codec.Encode(c)
}

func (m *componentMetadata[T]) Decode(bz []byte) (Component, error) {
	v, err := codec.Decode[T](bz)
	if err != nil {
		return nil, err
	}
	return any(&v).(Component), nil
}

func (m *componentMetadata[T]) Copy(c Component) (Component, error) {
	bz, err := m.Encode(c)
	if err != nil {
		return nil, eris.Wrapf(err, "copy %q", m.name)
	}
	return m.Decode(bz)
}

// Mutator edits a payload in place. Mutators run inside the owning store's
// goroutine and must not retain the payload after returning.
type Mutator func(Component)

// Predicate filters component data. Predicates are evaluated in the same
// process as the store that owns the data; they are never serialized.
type Predicate func(ComponentData) bool
