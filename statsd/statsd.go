// Package statsd wraps the statsd client used for tick metrics. It hides
// the datadog dependency so a future metrics migration touches this file
// only, and defaults to a no-op client until Init succeeds.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		ddstatsd.WithNamespace("shardcore"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}
	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrap(err, "statsd init")
	}
	client = newClient
	return nil
}

// EmitPhaseStat records how long one tick phase took.
func EmitPhaseStat(start time.Time, phase string) {
	if err := Client().Timing("tick", time.Since(start), []string{"phase:" + phase}, 1); err != nil {
		log.Warn().Msgf("failed to emit tick stat: %v", err)
	}
}

// EmitCommitStat records how many writes one component type committed.
func EmitCommitStat(componentType string, writes int) {
	if err := Client().Count("writes_committed", int64(writes), []string{"component:" + componentType}, 1); err != nil {
		log.Warn().Msgf("failed to emit commit stat: %v", err)
	}
}

// EmitEntityGauge records the entity count for one component type.
func EmitEntityGauge(componentType string, count int) {
	if err := Client().Gauge("entities", float64(count), []string{"component:" + componentType}, 1); err != nil {
		log.Warn().Msgf("failed to emit entity gauge: %v", err)
	}
}
