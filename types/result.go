package types

import "time"

// TickResult is the audit record of one tick: what ran, what was written,
// how long each phase took, and every error the tick absorbed along the way.
// A tick with errors is still a completed tick.
type TickResult struct {
	TickID uint64 `json:"tick_id"`

	SnapshotDuration time.Duration `json:"snapshot_duration"`
	ProcessDuration  time.Duration `json:"process_duration"`
	CommitDuration   time.Duration `json:"commit_duration"`

	// SystemsExecuted lists systems that completed without error, in group
	// order, priority-ordered within each group.
	SystemsExecuted   []string `json:"systems_executed"`
	EntitiesProcessed int      `json:"entities_processed"`

	// WritesCommitted maps component type to what its store applied. Types
	// whose commit failed appear in Errors instead.
	WritesCommitted map[string]CommitStats `json:"writes_committed"`

	Errors []string `json:"errors"`
}

func NewTickResult(tickID uint64) *TickResult {
	return &TickResult{
		TickID:          tickID,
		SystemsExecuted: make([]string, 0),
		WritesCommitted: make(map[string]CommitStats),
		Errors:          make([]string, 0),
	}
}

func (r *TickResult) Duration() time.Duration {
	return r.SnapshotDuration + r.ProcessDuration + r.CommitDuration
}

func (r *TickResult) TotalWrites() int {
	total := 0
	for _, stats := range r.WritesCommitted {
		total += stats.Total()
	}
	return total
}

// EngineStats is the read-only statistics view exposed to operators and
// external collaborators.
type EngineStats struct {
	TickID          uint64      `json:"tick_id"`
	TicksRun        uint64      `json:"ticks_run"`
	TicksWithErrors uint64      `json:"ticks_with_errors"`
	SystemCount     int         `json:"system_count"`
	ComponentTypes  []string    `json:"component_types"`
	LastTick        *TickResult `json:"last_tick,omitempty"`
}
