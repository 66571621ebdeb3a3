package store

import (
	"context"

	"github.com/meridian-games/shardcore/types"
)

// ApplyCommit is the single entry point the write buffer uses at commit
// time. Operations are applied in a fixed category order: creates, then
// writes, then mutations, then deletes. Within a category the incoming
// slice order is preserved, so multiple mutations against one entity replay
// in the order they were queued.
//
// Creates that find the entity already present are skipped rather than
// overwritten, preserving Create's uniqueness contract even under commit.
// Mutations and deletes against absent entities are skipped silently.
func (s *Store) ApplyCommit(ctx context.Context, ops []types.WriteOperation) (types.CommitStats, error) {
	var (
		stats types.CommitStats
		opErr error
	)
	err := s.call(ctx, func() {
		for _, op := range ops {
			if op.Kind != types.OpCreate {
				continue
			}
			if _, ok := s.data[op.Entity]; ok {
				stats.Skipped++
				continue
			}
			fresh, err := s.meta.New(op.Entity)
			if err != nil {
				opErr = err
				return
			}
			if op.Mutator != nil {
				op.Mutator(fresh)
			}
			s.data[op.Entity] = fresh
			stats.Created++
		}

		for _, op := range ops {
			if op.Kind != types.OpWrite {
				continue
			}
			cp, err := s.meta.Copy(op.Payload)
			if err != nil {
				opErr = err
				return
			}
			s.data[op.Entity] = cp
			stats.Written++
		}

		for _, op := range ops {
			if op.Kind != types.OpMutate {
				continue
			}
			c, ok := s.data[op.Entity]
			if !ok {
				stats.Skipped++
				continue
			}
			op.Mutator(c)
			stats.Mutated++
		}

		for _, op := range ops {
			if op.Kind != types.OpDelete {
				continue
			}
			if _, ok := s.data[op.Entity]; ok {
				delete(s.data, op.Entity)
				stats.Deleted++
			}
		}
	})
	if err != nil {
		return types.CommitStats{}, err
	}
	if opErr != nil {
		return types.CommitStats{}, opErr
	}
	s.logger.Debug().
		Int("created", stats.Created).
		Int("written", stats.Written).
		Int("mutated", stats.Mutated).
		Int("deleted", stats.Deleted).
		Int("skipped", stats.Skipped).
		Msg("commit applied")
	return stats, nil
}
