package shardcore

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-games/shardcore/buffer"
	enginelog "github.com/meridian-games/shardcore/log"
	"github.com/meridian-games/shardcore/statsd"
	"github.com/meridian-games/shardcore/system"
	"github.com/meridian-games/shardcore/types"
)

// ExecuteSingleTick advances the world by one tick: snapshot every store,
// run the execution groups against the shared snapshot with a fresh write
// buffer, then commit the buffer. Failures anywhere are absorbed into the
// returned TickResult, a tick never aborts partway and never returns an
// error. The tick number is assigned at entry regardless of outcome.
func (c *Coordinator) ExecuteSingleTick(ctx context.Context) *types.TickResult {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	tickID := c.tickID.Add(1)
	result := types.NewTickResult(tickID)

	snap := c.snapshotPhase(ctx, tickID, result)

	buf := buffer.New(tickID, c.reg, c.idx)
	c.processPhase(ctx, tickID, snap, buf, result)
	c.commitPhase(ctx, buf, result)

	c.recordTick(result)
	enginelog.TickResult(&c.logger, result)
	return result
}

// snapshotPhase fans out snapshot requests to every store and assembles
// the per-type results into one shared snapshot. A store that fails or
// times out contributes nothing; its component type is simply absent, so
// systems requiring it match no entities this tick.
func (c *Coordinator) snapshotPhase(ctx context.Context, tickID uint64, result *types.TickResult) types.Snapshot {
	start := time.Now()
	defer func() {
		result.SnapshotDuration = time.Since(start)
		statsd.EmitPhaseStat(start, "snapshot")
	}()

	snapCtx, cancel := context.WithTimeout(ctx, c.cfg.SnapshotTimeout())
	defer cancel()

	snap := make(types.Snapshot)
	for componentType, pending := range c.reg.AllSnapshots(snapCtx, tickID) {
		_, data, err := pending.Await(snapCtx)
		if err != nil {
			result.Errors = append(result.Errors, eris.ToString(err, false))
			// Substitute an empty map so downstream joins simply find no
			// entities for this type.
			snap[componentType] = map[types.EntityID]types.ComponentData{}
			continue
		}
		snap[componentType] = data
	}
	return snap
}

// processPhase runs the execution groups in order. Groups run one after
// another; the systems inside a group run concurrently, each with its own
// call budget. Every system sees the same snapshot and queues its writes
// on the shared buffer, so no system observes another's writes this tick.
func (c *Coordinator) processPhase(
	ctx context.Context, tickID uint64, snap types.Snapshot, buf *buffer.WriteBuffer, result *types.TickResult,
) {
	start := time.Now()
	defer func() {
		result.ProcessDuration = time.Since(start)
		statsd.EmitPhaseStat(start, "process")
	}()

	for _, group := range c.executionGroups() {
		type systemOutcome struct {
			processed int
			err       error
		}
		outcomes := make([]systemOutcome, len(group))

		g := new(errgroup.Group)
		for i, sys := range group {
			i, sys := i, sys
			g.Go(func() error {
				n, err := c.runSystem(ctx, tickID, sys, snap, buf)
				outcomes[i] = systemOutcome{processed: n, err: err}
				return nil
			})
		}
		// Never fails, errors are collected per outcome.
		_ = g.Wait()

		// Report in group order so the result is stable across runs.
		for i, sys := range group {
			if outcomes[i].err != nil {
				result.Errors = append(result.Errors, eris.ToString(outcomes[i].err, false))
				continue
			}
			result.SystemsExecuted = append(result.SystemsExecuted, sys.Definition().Name)
			result.EntitiesProcessed += outcomes[i].processed
		}
	}
}

// runSystem invokes one system with a per-call timeout. A panicking system
// is contained here and reported as that system's error.
func (c *Coordinator) runSystem(
	ctx context.Context, tickID uint64, sys system.System, snap types.Snapshot, buf *buffer.WriteBuffer,
) (processed int, err error) {
	name := sys.Definition().Name
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("system %q panicked: %v\n%s", name, r, debug.Stack())
		}
	}()

	sysCtx, cancel := context.WithTimeout(ctx, c.cfg.SystemTimeout())
	defer cancel()

	processed, err = sys.ProcessTick(sysCtx, tickID, snap, buf)
	if err != nil {
		return 0, eris.Wrapf(err, "system %q failed", name)
	}
	return processed, nil
}

// commitPhase flushes the buffer. Per-type stats land in the result; types
// whose store commit failed are reported as errors. After this returns the
// buffer is spent either way.
func (c *Coordinator) commitPhase(ctx context.Context, buf *buffer.WriteBuffer, result *types.TickResult) {
	start := time.Now()
	defer func() {
		result.CommitDuration = time.Since(start)
		statsd.EmitPhaseStat(start, "commit")
	}()

	commitCtx, cancel := context.WithTimeout(ctx, c.cfg.CommitTimeout())
	defer cancel()

	commitResult, err := buf.Commit(commitCtx)
	if err != nil {
		result.Errors = append(result.Errors, eris.ToString(err, false))
		_ = buf.Discard()
		return
	}
	for componentType, stats := range commitResult.Stats {
		result.WritesCommitted[componentType] = stats
		statsd.EmitCommitStat(componentType, stats.Total())
	}
	result.Errors = append(result.Errors, commitResult.Errors...)
}
