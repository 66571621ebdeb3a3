// Package log builds structured zerolog events for engine-level state:
// registered systems and component types, and per-tick result summaries.
package log

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/meridian-games/shardcore/types"
)

// Loggable is the engine surface needed to describe a running coordinator.
type Loggable interface {
	RegisteredComponents() []string
	RegisteredSystems() []string
}

// Engine emits one event describing the coordinator's registered systems
// and component types.
func Engine(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	event := logger.WithLevel(level)

	components := target.RegisteredComponents()
	sort.Strings(components)
	event.Int("total_components", len(components))
	componentArr := zerolog.Arr()
	for _, name := range components {
		componentArr = componentArr.Str(name)
	}
	event.Array("components", componentArr)

	systems := target.RegisteredSystems()
	event.Int("total_systems", len(systems))
	systemArr := zerolog.Arr()
	for _, name := range systems {
		systemArr = systemArr.Str(name)
	}
	event.Array("systems", systemArr)

	event.Msg("engine state")
}

// TickResult emits a one-line summary of a completed tick.
func TickResult(logger *zerolog.Logger, res *types.TickResult) {
	event := logger.Info()
	if len(res.Errors) > 0 {
		event = logger.Warn()
	}
	event.
		Uint64("tick", res.TickID).
		Dur("snapshot_ms", res.SnapshotDuration).
		Dur("process_ms", res.ProcessDuration).
		Dur("commit_ms", res.CommitDuration).
		Int("systems_executed", len(res.SystemsExecuted)).
		Int("entities_processed", res.EntitiesProcessed).
		Int("writes_committed", res.TotalWrites()).
		Int("errors", len(res.Errors)).
		Msg("tick complete")
}
