// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/bureau-foundation/homewire/controller"
)

// DefaultPrefix namespaces every key and channel.
const DefaultPrefix = "homewire"

// RedisConfig configures a RedisPublisher.
type RedisConfig struct {
	// URL selects the deployment: redis://, rediss://, redis-sentinel://,
	// or rediss-sentinel://. A bare host:port is a single server.
	URL string

	// Prefix namespaces keys and channels. Defaults to "homewire".
	Prefix string

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// RedisPublisher fans change events out through Redis. Each event is
// PUBLISHed as JSON on <prefix>:changes:<resource id> and stored as the
// latest value in the hash <prefix>:state, keyed by resource id.
type RedisPublisher struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection with
// PING.
func NewRedisPublisher(ctx context.Context, config RedisConfig) (*RedisPublisher, error) {
	options, err := ParseRedisURL(config.URL)
	if err != nil {
		return nil, err
	}
	publisher := &RedisPublisher{
		client: redis.NewUniversalClient(options),
		prefix: config.Prefix,
		logger: config.Logger,
	}
	if publisher.prefix == "" {
		publisher.prefix = DefaultPrefix
	}
	if publisher.logger == nil {
		publisher.logger = slog.Default()
	}
	if err := publisher.client.Ping(ctx).Err(); err != nil {
		publisher.client.Close()
		return nil, fmt.Errorf("publish: connecting to redis: %w", err)
	}
	publisher.logger.Info("redis publisher connected", "addrs", options.Addrs, "prefix", publisher.prefix)
	return publisher, nil
}

// Channel returns the channel events for resourceID are published on.
func (p *RedisPublisher) Channel(resourceID int) string {
	return p.prefix + ":changes:" + strconv.Itoa(resourceID)
}

// StateKey returns the hash holding the latest value of every resource.
func (p *RedisPublisher) StateKey() string {
	return p.prefix + ":state"
}

// Publish sends event to subscribers and records it as the resource's
// latest value. Both writes go out in one pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, event controller.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publish: encoding event for resource %d: %w", event.ResourceID, err)
	}
	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.Channel(event.ResourceID), payload)
		pipe.HSet(ctx, p.StateKey(), strconv.Itoa(event.ResourceID), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish: resource %d: %w", event.ResourceID, err)
	}
	return nil
}

// Latest returns the last published value of resourceID. ok is false
// when nothing was published for it yet.
func (p *RedisPublisher) Latest(ctx context.Context, resourceID int) (event controller.ChangeEvent, ok bool, err error) {
	payload, err := p.client.HGet(ctx, p.StateKey(), strconv.Itoa(resourceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return controller.ChangeEvent{}, false, nil
	}
	if err != nil {
		return controller.ChangeEvent{}, false, fmt.Errorf("publish: reading resource %d: %w", resourceID, err)
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return controller.ChangeEvent{}, false, fmt.Errorf("publish: decoding resource %d: %w", resourceID, err)
	}
	return event, true, nil
}

// Close closes the Redis connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// ParseRedisURL parses url into UniversalOptions supporting single,
// cluster (comma-separated hosts), and sentinel deployments. A value
// without a scheme is treated as a plain host:port.
func ParseRedisURL(address string) (*redis.UniversalOptions, error) {
	if address == "" {
		return nil, errors.New("publish: redis URL is empty")
	}
	if !strings.Contains(address, "://") {
		return &redis.UniversalOptions{Addrs: []string{address}}, nil
	}

	parsed, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("publish: parsing redis URL: %w", err)
	}

	options := &redis.UniversalOptions{}
	if parsed.User != nil {
		options.Username = parsed.User.Username()
		if password, ok := parsed.User.Password(); ok {
			options.Password = password
		}
	}
	options.Addrs = strings.Split(parsed.Host, ",")

	query := parsed.Query()
	parseDB := func(text string) error {
		if text == "" {
			return nil
		}
		db, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("publish: invalid redis db %q", text)
		}
		options.DB = db
		return nil
	}

	switch parsed.Scheme {
	case "redis", "rediss":
		db := strings.TrimPrefix(parsed.Path, "/")
		if db == "" {
			db = query.Get("db")
		}
		if err := parseDB(db); err != nil {
			return nil, err
		}
	case "redis-sentinel", "rediss-sentinel":
		options.MasterName = strings.TrimPrefix(parsed.Path, "/")
		if options.MasterName == "" {
			return nil, errors.New("publish: sentinel URL needs a master name path")
		}
		if err := parseDB(query.Get("db")); err != nil {
			return nil, err
		}
		options.SentinelUsername = query.Get("sentinel_username")
		options.SentinelPassword = query.Get("sentinel_password")
	default:
		return nil, fmt.Errorf("publish: unsupported redis URL scheme %q", parsed.Scheme)
	}
	if strings.HasPrefix(parsed.Scheme, "rediss") {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return options, nil
}
