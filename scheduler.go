package shardcore

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/meridian-games/shardcore/system"
)

// executionGroup is one tier of systems with no ordering constraints
// between them; every member's dependencies live in earlier groups.
type executionGroup []system.System

// buildExecutionGroups orders the systems with Kahn's algorithm, one group
// per dependency depth. Dependencies naming no registered system are
// dropped from the graph. Systems trapped in a dependency cycle are
// excluded entirely and returned separately so the caller can report them.
//
// Within a group, lower priority sorts first; ties fall back to
// registration order. The order only affects reporting, members of a
// group run concurrently.
func buildExecutionGroups(systems []system.System, logger zerolog.Logger) ([]executionGroup, []string) {
	if len(systems) == 0 {
		return nil, nil
	}

	position := make(map[string]int, len(systems))
	for i, sys := range systems {
		position[sys.Definition().Name] = i
	}

	// dependents maps a system to the systems waiting on it.
	indegree := make(map[string]int, len(systems))
	dependents := make(map[string][]string, len(systems))
	for _, sys := range systems {
		indegree[sys.Definition().Name] = 0
	}
	for _, sys := range systems {
		def := sys.Definition()
		for _, dep := range def.Dependencies {
			if _, known := position[dep]; !known {
				logger.Warn().
					Str("system", def.Name).
					Str("dependency", dep).
					Msg("dependency is not a registered system, ignoring")
				continue
			}
			indegree[def.Name]++
			dependents[dep] = append(dependents[dep], def.Name)
		}
	}

	var groups []executionGroup
	frontier := make([]string, 0, len(systems))
	for name, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, name)
		}
	}

	scheduled := 0
	for len(frontier) > 0 {
		sortGroupMembers(frontier, systems, position)
		group := make(executionGroup, 0, len(frontier))
		for _, name := range frontier {
			group = append(group, systems[position[name]])
		}
		groups = append(groups, group)
		scheduled += len(frontier)

		next := frontier[:0:0]
		for _, name := range frontier {
			for _, dependent := range dependents[name] {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		frontier = next
	}

	if scheduled == len(systems) {
		return groups, nil
	}

	// Whatever never reached indegree zero is part of a cycle (or depends
	// on one). Those systems do not run.
	excluded := make([]string, 0, len(systems)-scheduled)
	for name, deg := range indegree {
		if deg > 0 {
			excluded = append(excluded, name)
		}
	}
	sort.Strings(excluded)
	return groups, excluded
}

func sortGroupMembers(names []string, systems []system.System, position map[string]int) {
	sort.Slice(names, func(i, j int) bool {
		a, b := position[names[i]], position[names[j]]
		pa := systems[a].Definition().Priority
		pb := systems[b].Definition().Priority
		if pa != pb {
			return pa < pb
		}
		return a < b
	})
}
