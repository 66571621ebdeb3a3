// Command shardcored runs one simulation shard: it wires the component
// registry, entity index and tick coordinator together, publishes store
// addresses to the shared redis namespace, and serves the read-only HTTP
// surface until it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/meridian-games/shardcore"
	"github.com/meridian-games/shardcore/index"
	"github.com/meridian-games/shardcore/query"
	"github.com/meridian-games/shardcore/registry"
	"github.com/meridian-games/shardcore/server"
	"github.com/meridian-games/shardcore/statsd"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("shardcored exited with error")
	}
}

func run() error {
	cfg, err := shardcore.LoadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg)

	if err := statsd.Init(cfg.StatsdAddress, []string{"namespace:" + cfg.ShardNamespace}); err != nil {
		log.Warn().Err(err).Msg("statsd unavailable, metrics disabled")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})
	defer client.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return eris.Wrapf(err, "redis at %s is unreachable", cfg.RedisAddress)
	}

	ns := registry.NewNamespace(client, cfg.ShardNamespace)
	reg := registry.New(ns)
	idx := index.New()
	coord := shardcore.New(*cfg, reg, idx)
	queries := query.NewEngine(reg, idx)

	srv, err := server.New(coord, reg, idx, queries, cfg.Port, cfg.IsDevMode())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Serve(ctx)
	}()

	if err := coord.Start(); err != nil {
		return err
	}
	log.Info().
		Str("namespace", cfg.ShardNamespace).
		Int("port", cfg.Port).
		Msg("shard is running")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed, shutting down")
		}
	}

	if err := coord.Stop(); err != nil {
		log.Warn().Err(err).Msg("coordinator stop failed")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	reg.Shutdown(shutdownCtx)

	log.Info().Msg("shard shut down cleanly")
	return nil
}

func setupLogger(cfg *shardcore.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.IsDevMode() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
