package registry

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

var ErrAddressNotFound = eris.New("no store address registered for component type")

// Namespace is the shared component-type -> store-address map kept in
// redis. External collaborators (gateway, generation, web) resolve stores
// by name through it without holding a registry reference.
type Namespace struct {
	client redis.Cmdable
	key    string
}

func NewNamespace(client redis.Cmdable, name string) *Namespace {
	return &Namespace{
		client: client,
		key:    "shardcore:" + name + ":stores",
	}
}

func (n *Namespace) Publish(ctx context.Context, componentType, address string) error {
	if err := n.client.HSet(ctx, n.key, componentType, address).Err(); err != nil {
		return eris.Wrapf(err, "publish address for %q", componentType)
	}
	return nil
}

func (n *Namespace) Lookup(ctx context.Context, componentType string) (string, error) {
	addr, err := n.client.HGet(ctx, n.key, componentType).Result()
	if err != nil {
		if eris.Is(err, redis.Nil) {
			return "", eris.Wrap(ErrAddressNotFound, componentType)
		}
		return "", eris.Wrapf(err, "lookup address for %q", componentType)
	}
	return addr, nil
}

// All returns the full component-type -> address map.
func (n *Namespace) All(ctx context.Context) (map[string]string, error) {
	out, err := n.client.HGetAll(ctx, n.key).Result()
	if err != nil {
		return nil, eris.Wrap(err, "list store addresses")
	}
	return out, nil
}

func (n *Namespace) Remove(ctx context.Context, componentType string) error {
	if err := n.client.HDel(ctx, n.key, componentType).Err(); err != nil {
		return eris.Wrapf(err, "remove address for %q", componentType)
	}
	return nil
}
