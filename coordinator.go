// Package shardcore implements the tick coordinator that drives a
// simulation shard: it owns the registered systems, schedules them into
// dependency-ordered execution groups, and advances the world through
// snapshot, process, and commit phases on a fixed cadence.
package shardcore

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian-games/shardcore/index"
	enginelog "github.com/meridian-games/shardcore/log"
	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/stage"
	"github.com/meridian-games/shardcore/statsd"
	"github.com/meridian-games/shardcore/system"
	"github.com/meridian-games/shardcore/types"
)

var (
	ErrDuplicateSystem  = eris.New("a system with this name is already registered")
	ErrUnknownSystem    = eris.New("no system registered under this name")
	ErrNotRunning       = eris.New("coordinator is not running")
	ErrAlreadyStarted   = eris.New("coordinator was already started")
	ErrInvalidSignature = eris.New("system signature references an unregistered component type")
)

// Coordinator drives one shard's tick loop.
type Coordinator struct {
	cfg    Config
	reg    *registry.Registry
	idx    *index.Index
	logger zerolog.Logger
	stage  *stage.Manager

	tickID atomic.Uint64

	mu       sync.Mutex
	systems  []system.System
	byName   map[string]system.System
	groups   []executionGroup
	excluded []string
	dirty    bool

	statsMu         sync.RWMutex
	ticksRun        uint64
	ticksWithErrors uint64
	lastTick        *types.TickResult

	loopCancel context.CancelFunc
	loopWG     sync.WaitGroup

	// tickMu serializes tick execution so the fast loop and a dev-mode
	// manual step can never interleave phases.
	tickMu sync.Mutex
}

func New(cfg Config, reg *registry.Registry, idx *index.Index) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		reg:    reg,
		idx:    idx,
		logger: log.With().Str("module", "coordinator").Logger(),
		stage:  stage.NewManager(),
		byName: make(map[string]system.System),
	}
}

// RegisterSystem adds a system to the shard. Every component type in the
// system's signature must already have a store; dependencies are not
// checked here because the depended-on system may register later.
// Registration invalidates the cached execution groups.
func (c *Coordinator) RegisterSystem(sys system.System) error {
	def := sys.Definition()
	if def.Name == "" {
		return eris.New("system name must not be empty")
	}
	for _, componentType := range append(append([]string{}, def.Required...), def.Optional...) {
		if !c.reg.Has(componentType) {
			return eris.Wrapf(ErrInvalidSignature, "system %q requires %q", def.Name, componentType)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[def.Name]; exists {
		return eris.Wrap(ErrDuplicateSystem, def.Name)
	}
	c.systems = append(c.systems, sys)
	c.byName[def.Name] = sys
	c.dirty = true
	c.logger.Info().
		Str("system", def.Name).
		Strs("required", def.Required).
		Strs("dependencies", def.Dependencies).
		Int("priority", def.Priority).
		Msg("system registered")
	return nil
}

// DeregisterSystem removes a system by name and invalidates the cached
// execution groups. Systems that depended on it keep their dependency
// declaration; the scheduler drops the now-unknown name from the graph.
func (c *Coordinator) DeregisterSystem(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[name]; !exists {
		return eris.Wrap(ErrUnknownSystem, name)
	}
	delete(c.byName, name)
	for i, sys := range c.systems {
		if sys.Definition().Name == name {
			c.systems = append(c.systems[:i], c.systems[i+1:]...)
			break
		}
	}
	c.dirty = true
	c.logger.Info().Str("system", name).Msg("system deregistered")
	return nil
}

// executionGroups returns the cached groups, rebuilding them when the
// system set changed since the last build.
func (c *Coordinator) executionGroups() []executionGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		c.groups, c.excluded = buildExecutionGroups(c.systems, c.logger)
		if len(c.excluded) > 0 {
			c.logger.Error().
				Strs("systems", c.excluded).
				Msg("dependency cycle detected, cycle members will not run")
		}
		c.dirty = false
	}
	return c.groups
}

// ExecutionGroups reports the current schedule as system names, one slice
// per group in execution order.
func (c *Coordinator) ExecutionGroups() [][]string {
	groups := c.executionGroups()
	out := make([][]string, len(groups))
	for i, group := range groups {
		names := make([]string, len(group))
		for j, sys := range group {
			names[j] = sys.Definition().Name
		}
		out[i] = names
	}
	return out
}

// ExcludedSystems reports systems currently excluded from the schedule
// because of a dependency cycle.
func (c *Coordinator) ExcludedSystems() []string {
	c.executionGroups()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.excluded))
	copy(out, c.excluded)
	return out
}

func (c *Coordinator) RegisteredSystems() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.systems))
	for i, sys := range c.systems {
		names[i] = sys.Definition().Name
	}
	return names
}

func (c *Coordinator) RegisteredComponents() []string {
	return c.reg.Types()
}

// TickID returns the most recently assigned tick number.
func (c *Coordinator) TickID() uint64 {
	return c.tickID.Load()
}

// Stage returns the coordinator's lifecycle stage.
func (c *Coordinator) Stage() stage.Stage {
	return c.stage.Current()
}

// GetStats returns a copy of the engine counters and the last tick's
// result.
func (c *Coordinator) GetStats() types.EngineStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	stats := types.EngineStats{
		TickID:          c.tickID.Load(),
		TicksRun:        c.ticksRun,
		TicksWithErrors: c.ticksWithErrors,
		SystemCount:     len(c.RegisteredSystems()),
		ComponentTypes:  c.reg.Types(),
	}
	if c.lastTick != nil {
		last := *c.lastTick
		stats.LastTick = &last
	}
	return stats
}

func (c *Coordinator) recordTick(res *types.TickResult) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.ticksRun++
	if len(res.Errors) > 0 {
		c.ticksWithErrors++
	}
	c.lastTick = res
}

// Start launches the periodic loops: the fast loop runs ticks, the medium
// loop emits stats, the slow loop audits index consistency against the
// stores. Start returns once the loops are running.
func (c *Coordinator) Start() error {
	if !c.stage.CompareAndSwap(stage.Init, stage.Starting) &&
		!c.stage.CompareAndSwap(stage.ShutDown, stage.Starting) {
		return eris.Wrapf(ErrAlreadyStarted, "stage is %s", c.stage.Current())
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.loopCancel = cancel

	c.loopWG.Add(3)
	go c.runLoop(loopCtx, "tick", c.cfg.TickInterval(), c.tickLoopBody)
	go c.runLoop(loopCtx, "stats", c.cfg.StatsInterval(), c.statsLoopBody)
	go c.runLoop(loopCtx, "audit", c.cfg.AuditInterval(), c.auditLoopBody)

	c.stage.Store(stage.Running)
	enginelog.Engine(&c.logger, c, zerolog.InfoLevel)
	c.logger.Info().
		Dur("tick_interval", c.cfg.TickInterval()).
		Dur("stats_interval", c.cfg.StatsInterval()).
		Dur("audit_interval", c.cfg.AuditInterval()).
		Msg("coordinator started")
	return nil
}

// Stop cancels the loops and blocks until they exit. A tick already in
// flight finishes all three phases before the tick loop observes the
// cancellation.
func (c *Coordinator) Stop() error {
	if !c.stage.CompareAndSwap(stage.Running, stage.ShuttingDown) {
		return eris.Wrapf(ErrNotRunning, "stage is %s", c.stage.Current())
	}
	c.loopCancel()
	c.loopWG.Wait()
	c.stage.Store(stage.ShutDown)
	c.logger.Info().Uint64("last_tick", c.tickID.Load()).Msg("coordinator stopped")
	return nil
}

// runLoop executes body on the given cadence, sleeping only for whatever
// remains of the interval after the body ran. Overruns are logged and the
// next iteration starts immediately.
func (c *Coordinator) runLoop(ctx context.Context, name string, interval time.Duration, body func(context.Context)) {
	defer c.loopWG.Done()
	logger := c.logger.With().Str("loop", name).Logger()
	for {
		start := time.Now()
		body(ctx)
		elapsed := time.Since(start)

		remaining := interval - elapsed
		if remaining < 0 {
			logger.Warn().
				Dur("elapsed", elapsed).
				Dur("interval", interval).
				Msg("loop iteration overran its interval")
			remaining = 0
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Debug().Msg("loop exiting")
			return
		case <-timer.C:
		}
	}
}

// tickLoopBody runs one tick. The tick uses its own phase budgets rather
// than the loop context so cancellation never truncates a tick mid-phase.
func (c *Coordinator) tickLoopBody(context.Context) {
	c.ExecuteSingleTick(context.Background())
}

func (c *Coordinator) statsLoopBody(ctx context.Context) {
	for _, componentType := range c.reg.Types() {
		s, err := c.reg.Get(componentType)
		if err != nil {
			continue
		}
		count, err := s.Len(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Str("component", componentType).Msg("stats read failed")
			continue
		}
		statsd.EmitEntityGauge(componentType, count)
	}
	stats := c.GetStats()
	c.logger.Info().
		Uint64("tick", stats.TickID).
		Uint64("ticks_run", stats.TicksRun).
		Uint64("ticks_with_errors", stats.TicksWithErrors).
		Int("entities", c.idx.EntityCount()).
		Msg("engine stats")
}

// auditLoopBody rebuilds the entity index from the stores. The index is
// kept up to date by buffer commits, so the rebuild is a drift correction
// for index entries orphaned by partial commit failures.
func (c *Coordinator) auditLoopBody(ctx context.Context) {
	// Take the tick lock so the rebuild cannot interleave with a commit's
	// index update.
	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	if err := c.idx.SyncFromStores(ctx, c.reg); err != nil {
		c.logger.Warn().Err(err).Msg("index audit failed")
		return
	}
	c.logger.Debug().Int("entities", c.idx.EntityCount()).Msg("index audit complete")
}
