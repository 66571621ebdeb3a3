package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/meridian-games/shardcore/index"
	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/types"
)

type GetHealthResponse struct {
	IsServerRunning bool   `json:"isServerRunning"`
	TickID          uint64 `json:"tickId"`
}

func GetHealth(engine Engine) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(GetHealthResponse{
			IsServerRunning: true,
			TickID:          engine.TickID(),
		})
	}
}

func GetStats(engine Engine) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(engine.GetStats())
	}
}

type GetScheduleResponse struct {
	Groups   [][]string `json:"groups"`
	Excluded []string   `json:"excluded"`
}

func GetSchedule(engine Engine) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(GetScheduleResponse{
			Groups:   engine.ExecutionGroups(),
			Excluded: engine.ExcludedSystems(),
		})
	}
}

type QueryResponse struct {
	Entities []types.EntityID `json:"entities"`
	Count    int              `json:"count"`
}

// typesParam parses the comma-separated component type list from the given
// query parameter.
func typesParam(ctx *fiber.Ctx, param string) []string {
	raw := ctx.Query(param)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryResponse(ids []types.EntityID) QueryResponse {
	if ids == nil {
		ids = []types.EntityID{}
	}
	return QueryResponse{Entities: ids, Count: len(ids)}
}

func GetQueryJoin(idx *index.Index) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(queryResponse(idx.QueryJoin(typesParam(ctx, "types"))))
	}
}

func GetQueryAny(idx *index.Index) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(queryResponse(idx.QueryAny(typesParam(ctx, "types"))))
	}
}

func GetQueryExactly(idx *index.Index) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(queryResponse(idx.QueryExactly(typesParam(ctx, "types"))))
	}
}

func GetQueryWithout(idx *index.Index) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		required := typesParam(ctx, "types")
		excluded := typesParam(ctx, "exclude")
		return ctx.JSON(queryResponse(idx.QueryWithout(required, excluded)))
	}
}

func GetQueryByKind(idx *index.Index) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		kind := ctx.Params("kind")
		if kind == "" {
			return fiber.NewError(fiber.StatusBadRequest, "kind must not be empty")
		}
		return ctx.JSON(queryResponse(idx.QueryByKind(kind, typesParam(ctx, "types"))))
	}
}

func GetComponentEntities(reg *registry.Registry) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		s, err := reg.Get(ctx.Params("type"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		ids, err := s.Entities(ctx.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return ctx.JSON(queryResponse(ids))
	}
}

type GetComponentResponse struct {
	Entity    types.EntityID  `json:"entity"`
	Type      string          `json:"type"`
	Component types.Component `json:"component"`
}

func GetComponent(reg *registry.Registry) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		s, err := reg.Get(ctx.Params("type"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		id, err := types.ParseEntityID(ctx.Params("entity"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		data, found, err := s.Get(ctx.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "entity does not hold this component")
		}
		return ctx.JSON(GetComponentResponse{
			Entity:    data.Owner,
			Type:      ctx.Params("type"),
			Component: data.Data,
		})
	}
}

type PostDebugTickResponse struct {
	Result *types.TickResult `json:"result"`
}

// PostDebugTick runs one tick on demand. Only mounted in dev mode.
func PostDebugTick(engine Engine) func(*fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		res := engine.ExecuteSingleTick(ctx.UserContext())
		return ctx.JSON(PostDebugTickResponse{Result: res})
	}
}
