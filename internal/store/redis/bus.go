// Package redis publishes live signals to Redis so other processes (the
// dashboard) can stream them: PUBLISH for push, a capped stream for history
// and a per-symbol latest key with a TTL.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trading-signalsv1/internal/strategy"
)

const (
	// SignalStream keeps recent signals for late subscribers.
	SignalStream = "stream:signals"
	// SignalChannelPrefix is followed by the symbol, e.g. "pub:signal:TCS.NS".
	SignalChannelPrefix = "pub:signal:"
	// SignalPattern matches every signal channel.
	SignalPattern = SignalChannelPrefix + "*"

	latestKeyPrefix  = "signal:latest:"
	defaultMaxLen    = 5000
	defaultLatestTTL = 24 * time.Hour
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Bus writes and reads signals.
type Bus struct {
	client *goredis.Client
	maxLen int64
	ttl    time.Duration
}

// Client returns the underlying Redis client for health checks.
func (b *Bus) Client() *goredis.Client { return b.client }

// New connects and pings the server.
func New(cfg Config) (*Bus, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Bus{client: client, maxLen: defaultMaxLen, ttl: defaultLatestTTL}, nil
}

// ChannelFor returns the pub/sub channel of a symbol.
func ChannelFor(symbol string) string { return SignalChannelPrefix + symbol }

// SymbolFromChannel reverses ChannelFor.
func SymbolFromChannel(channel string) string {
	return strings.TrimPrefix(channel, SignalChannelPrefix)
}

// PublishSignal pipelines XADD + SET latest + PUBLISH for one signal.
func (b *Bus) PublishSignal(ctx context.Context, sig strategy.Signal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: SignalStream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]interface{}{"symbol": sig.Symbol, "data": data},
	})
	pipe.Set(ctx, latestKeyPrefix+sig.Symbol, data, b.ttl)
	pipe.Publish(ctx, ChannelFor(sig.Symbol), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish signal %s: %w", sig.Symbol, err)
	}
	return nil
}

// Recent returns up to n signals from the stream, newest first.
func (b *Bus) Recent(ctx context.Context, n int64) ([]json.RawMessage, error) {
	msgs, err := b.client.XRevRangeN(ctx, SignalStream, "+", "-", n).Result()
	if err != nil {
		return nil, fmt.Errorf("redis xrevrange: %w", err)
	}
	out := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if s, ok := m.Values["data"].(string); ok {
			out = append(out, json.RawMessage(s))
		}
	}
	return out, nil
}

// Subscribe streams every published signal until ctx ends. fn receives the
// symbol and the raw JSON payload.
func (b *Bus) Subscribe(ctx context.Context, fn func(symbol string, payload []byte)) error {
	pubsub := b.client.PSubscribe(ctx, SignalPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe %s: %w", SignalPattern, err)
	}
	log.Printf("[redis] subscribed to %s", SignalPattern)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(SymbolFromChannel(msg.Channel), []byte(msg.Payload))
		}
	}
}

func (b *Bus) Close() error { return b.client.Close() }
