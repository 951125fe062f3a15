// Package broker wraps Redis lists as the durable FIFO queues §6 specifies:
// push_left (atomic append) and pop_right_blocking (FIFO read with a
// maximum wait). Grounded on github.com/redis/go-redis/v9, attested across
// the example pack (Generativebots-ocx-backend-go-svc, evalgo-org-eve,
// semaj90-mau5law, virtengine-virtengine), replacing the teacher's MQTT
// pub/sub (content-service/mqtt.go) with the broker semantics spec.md
// actually requires.
package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue names, the stable set spec.md's broker surface enumerates.
const (
	ExtractQueue   = "extract_queue"
	SegmentQueue   = "segment_queue"
	SynthQueue     = "synth_queue"
	TranscodeQueue = "transcode_queue"
	CleanupQueue   = "cleanup_queue"

	ExtractCompleted   = "extract_completed"
	SegmentCompleted   = "segment_completed"
	SynthCompleted     = "synth_completed"
	TranscodeCompleted = "transcode_completed"
)

// Broker is a thin typed wrapper over a *redis.Client so call sites never
// touch raw Redis verbs.
type Broker struct {
	client *redis.Client
}

// New connects to the broker at url, the same "REDIS_URL, required" config
// contract spec.md documents.
func New(url string) (*Broker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Broker{client: redis.NewClient(opts)}, nil
}

// Ping reports broker health, mirroring the original Python services'
// health_check(). Neither /health nor any service's startup calls it.
func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Push atomically appends a JSON-encoded payload to the named queue.
func (b *Broker) Push(ctx context.Context, queue string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.client.LPush(ctx, queue, data).Err()
}

// PopBlocking reads the oldest payload from the named queue, blocking up
// to timeout. It returns ok=false on timeout (no item ready), never an
// error for the normal "nothing to do yet" case.
func (b *Broker) PopBlocking(ctx context.Context, queue string, timeout time.Duration, dest any) (ok bool, err error) {
	result, err := b.client.BRPop(ctx, timeout, queue).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BRPop returns [queueName, value].
	if len(result) != 2 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(result[1]), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Broker) Close() error { return b.client.Close() }
