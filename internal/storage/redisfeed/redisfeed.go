// Package redisfeed shares document change notifications between server
// processes through a Redis stream. Each process publishes the collections it
// wrote and wakes its own live queries when another process reports a change.
package redisfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream used when none is configured.
const DefaultStream = "justsplit.changes"

// Feed publishes and consumes change notifications on one Redis stream.
type Feed struct {
	client *redis.Client
	stream string
	origin string
	block  time.Duration
	maxLen int64
}

// New creates a feed on stream. Messages published by this feed are not
// delivered back to its own subscriber.
func New(client *redis.Client, stream string) *Feed {
	if stream == "" {
		stream = DefaultStream
	}
	return &Feed{
		client: client,
		stream: stream,
		origin: uuid.New().String(),
		block:  5 * time.Second,
		maxLen: 1000,
	}
}

// Connect opens a Redis client and checks it is reachable.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Publish records that collection changed.
func (f *Feed) Publish(ctx context.Context, collection string) error {
	args := &redis.XAddArgs{
		Stream: f.stream,
		MaxLen: f.maxLen,
		Approx: true,
		Values: map[string]any{
			"collection": collection,
			"origin":     f.origin,
		},
	}
	if _, err := f.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe calls fn for every change published by other processes after
// the call starts. It blocks until ctx is done.
func (f *Feed) Subscribe(ctx context.Context, fn func(collection string)) error {
	lastID := "$"
	slog.Info("Change feed subscribed", "stream", f.stream, "origin", f.origin)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		streams, err := f.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{f.stream, lastID},
			Count:   100,
			Block:   f.block,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue // No messages
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("Error reading change feed", "stream", f.stream, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				lastID = message.ID
				if origin, _ := message.Values["origin"].(string); origin == f.origin {
					continue
				}
				collection, ok := message.Values["collection"].(string)
				if !ok {
					slog.Warn("Invalid change message", "id", message.ID)
					continue
				}
				fn(collection)
			}
		}
	}
}
