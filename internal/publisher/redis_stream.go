package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/felicitas/internal/snapshot"
)

// Stream names consumed by the site build and downstream alerting.
const (
	StreamSnapshots = "felicitas:snapshots"
	StreamChanges   = "felicitas:changes"
)

// RedisStreamPublisher publishes snapshot events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
	}
}

// PublishSnapshot announces a freshly assembled snapshot on the stream
func (rsp *RedisStreamPublisher) PublishSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamSnapshots,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"games":     len(snap.Games),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}

// PublishChanges announces jackpot movement between consecutive
// snapshots. Unchanged games are skipped; an all-unchanged run
// publishes nothing.
func (rsp *RedisStreamPublisher) PublishChanges(ctx context.Context, changes []snapshot.Change) error {
	for _, change := range changes {
		if change.Kind == snapshot.ChangeUnchanged {
			continue
		}

		data, err := json.Marshal(change)
		if err != nil {
			return err
		}

		err = rsp.client.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamChanges,
			MaxLen: 10000,
			Approx: true,
			Values: map[string]interface{}{
				"data":      string(data),
				"game":      change.Game,
				"kind":      string(change.Kind),
				"timestamp": time.Now().Unix(),
			},
		}).Err()
		if err != nil {
			return err
		}
	}

	return nil
}
