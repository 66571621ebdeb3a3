// Package buffer implements the tick-scoped write buffer. Systems and
// external game logic queue create/write/mutate/delete operations against
// it during a tick's process phase; at commit the queued operations are
// dispatched to each touched store concurrently and the entity index is
// brought up to date. A buffer lives for exactly one tick: once committed
// or discarded it rejects everything.
package buffer

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian-games/shardcore/index"
	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/types"
)

var (
	ErrBufferCommitted = eris.New("write buffer already committed")
	ErrBufferDiscarded = eris.New("write buffer already discarded")
)

type bufferState uint8

const (
	stateOpen bufferState = iota
	stateCommitted
	stateDiscarded
)

// WriteBuffer accumulates write operations for one tick.
type WriteBuffer struct {
	id     uuid.UUID
	tickID uint64
	reg    *registry.Registry
	idx    *index.Index
	logger zerolog.Logger

	mu    sync.Mutex
	state bufferState
	// ops is component type -> entity -> queued operations in call order.
	ops map[string]map[types.EntityID][]types.WriteOperation
}

// New creates a buffer for the given tick. The buffer carries its own
// unique identity beyond the tick number so an accidentally reused tick ID
// cannot conflate two buffers.
func New(tickID uint64, reg *registry.Registry, idx *index.Index) *WriteBuffer {
	id := uuid.New()
	return &WriteBuffer{
		id:     id,
		tickID: tickID,
		reg:    reg,
		idx:    idx,
		logger: log.With().Str("buffer", id.String()).Uint64("tick", tickID).Logger(),
		ops:    make(map[string]map[types.EntityID][]types.WriteOperation),
	}
}

func (b *WriteBuffer) ID() uuid.UUID  { return b.id }
func (b *WriteBuffer) TickID() uint64 { return b.tickID }

// QueueCreate stages a component creation, with an optional initializer run
// before the fresh payload is stored.
func (b *WriteBuffer) QueueCreate(componentType string, id types.EntityID, init types.Mutator) error {
	return b.queue(types.WriteOperation{
		Kind:          types.OpCreate,
		ComponentType: componentType,
		Entity:        id,
		Mutator:       init,
	})
}

// QueueWrite stages a full-value overwrite.
func (b *WriteBuffer) QueueWrite(componentType string, id types.EntityID, payload types.Component) error {
	return b.queue(types.WriteOperation{
		Kind:          types.OpWrite,
		ComponentType: componentType,
		Entity:        id,
		Payload:       payload,
	})
}

// QueueMutate stages an in-place mutation. Multiple mutations against the
// same entity replay at commit in the order they were queued here.
func (b *WriteBuffer) QueueMutate(componentType string, id types.EntityID, m types.Mutator) error {
	return b.queue(types.WriteOperation{
		Kind:          types.OpMutate,
		ComponentType: componentType,
		Entity:        id,
		Mutator:       m,
	})
}

// QueueDelete stages a component removal.
func (b *WriteBuffer) QueueDelete(componentType string, id types.EntityID) error {
	return b.queue(types.WriteOperation{
		Kind:          types.OpDelete,
		ComponentType: componentType,
		Entity:        id,
	})
}

func (b *WriteBuffer) queue(op types.WriteOperation) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	byEntity, ok := b.ops[op.ComponentType]
	if !ok {
		byEntity = make(map[types.EntityID][]types.WriteOperation)
		b.ops[op.ComponentType] = byEntity
	}
	byEntity[op.Entity] = append(byEntity[op.Entity], op)
	return nil
}

func (b *WriteBuffer) checkOpen() error {
	switch b.state {
	case stateCommitted:
		return eris.Wrap(ErrBufferCommitted, b.id.String())
	case stateDiscarded:
		return eris.Wrap(ErrBufferDiscarded, b.id.String())
	}
	return nil
}

// TouchedTypes returns the component types with at least one queued
// operation, sorted.
func (b *WriteBuffer) TouchedTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.ops))
	for t := range b.ops {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// OpCount returns the total number of queued operations.
func (b *WriteBuffer) OpCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, byEntity := range b.ops {
		for _, queue := range byEntity {
			count += len(queue)
		}
	}
	return count
}

// Discard clears all queues without touching stores or the index. Used to
// abort a tick that failed upstream. Discarding twice is an error.
func (b *WriteBuffer) Discard() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkOpen(); err != nil {
		return err
	}
	b.state = stateDiscarded
	b.ops = nil
	b.logger.Debug().Msg("buffer discarded")
	return nil
}
