package types

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// EntityID identifies an entity within the simulation. It is a plain value:
// the numeric ID plus the entity kind it was spawned as (player, npc, item,
// region, ...). It carries no behavior and is never mutated after creation.
type EntityID struct {
	ID   uint64 `json:"id"`
	Kind string `json:"kind"`
}

func NewEntityID(id uint64, kind string) EntityID {
	return EntityID{ID: id, Kind: kind}
}

// IsZero reports whether the ID is the zero value, which is never a valid
// entity identity.
func (e EntityID) IsZero() bool {
	return e.ID == 0 && e.Kind == ""
}

func (e EntityID) String() string {
	return e.Kind + ":" + strconv.FormatUint(e.ID, 10)
}

// MarshalText lets EntityID serve as a JSON map key.
func (e EntityID) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *EntityID) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityID(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ParseEntityID parses the "kind:id" form produced by String.
func ParseEntityID(s string) (EntityID, error) {
	sep := strings.LastIndexByte(s, ':')
	if sep < 0 {
		return EntityID{}, eris.Errorf("malformed entity id %q", s)
	}
	id, err := strconv.ParseUint(s[sep+1:], 10, 64)
	if err != nil {
		return EntityID{}, eris.Wrapf(err, "malformed entity id %q", s)
	}
	return EntityID{ID: id, Kind: s[:sep]}, nil
}

// SortEntityIDs orders IDs by kind, then numeric ID. Queries return sorted
// slices so results are stable across runs.
func SortEntityIDs(ids []EntityID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Kind != ids[j].Kind {
			return ids[i].Kind < ids[j].Kind
		}
		return ids[i].ID < ids[j].ID
	})
}
