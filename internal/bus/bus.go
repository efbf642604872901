// Package bus wires the session controller to Redis: it publishes
// CBOR-encoded sensor and log telemetry on pub/sub channels, and watches a
// command list for operator-issued requests. This is the application-layer
// plumbing gkctl uses; the core session package has no Redis dependency.
package bus

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

const (
	SensorChannel = "gkc:sensors"
	LogChannel    = "gkc:logs"
	StateChannel  = "gkc:state"
	CommandList   = "gkc:commands"
)

// Client wraps a Redis connection with the publish/subscribe and
// blocking-list operations gkctl needs.
type Client struct {
	rdb *redis.Client
	ctx context.Context
}

// New dials addr and verifies connectivity with a PING.
func New(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("bus: connect to redis at %s: %w", addr, err)
	}
	return &Client{rdb: rdb, ctx: ctx}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// PublishCBOR CBOR-encodes v and publishes it to channel.
func (c *Client) PublishCBOR(channel string, v interface{}) error {
	payload, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("bus: encode cbor for %s: %w", channel, err)
	}
	return c.rdb.Publish(c.ctx, channel, payload).Err()
}

// Command is a single operator request popped off CommandList.
type Command struct {
	Op       string  `cbor:"op"`
	Throttle float32 `cbor:"throttle,omitempty"`
	Steering float32 `cbor:"steering,omitempty"`
	Brake    float32 `cbor:"brake,omitempty"`
	TimeoutMs uint32 `cbor:"timeout_ms,omitempty"`
}

// NextCommand blocks up to timeout for a command on CommandList, CBOR
// decoding the popped value. A nil, nil return means the wait timed out
// with nothing queued, or that the popped value was not valid CBOR and was
// dropped.
func (c *Client) NextCommand(timeout time.Duration) (*Command, error) {
	result, err := c.rdb.BRPop(c.ctx, timeout, CommandList).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("bus: brpop %s: %w", CommandList, err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("bus: unexpected brpop result length %d", len(result))
	}

	var cmd Command
	if err := cbor.Unmarshal([]byte(result[1]), &cmd); err != nil {
		log.Printf("bus: dropping malformed command: %v", err)
		return nil, nil
	}
	return &cmd, nil
}
