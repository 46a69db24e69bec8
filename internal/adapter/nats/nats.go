// Package nats connects to NATS JetStream and provisions the key-value
// buckets used by the tenant cache and the proxy credential store.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Client holds a NATS connection and its JetStream context.
type Client struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and initialises JetStream.
func Connect(_ context.Context, url string) (*Client, error) {
	nc, err := nats.Connect(url, nats.Name("nusahire-core"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	slog.Info("nats connected", "url", url)
	return &Client{nc: nc, js: js}, nil
}

// Bucket creates or updates a KV bucket whose entries age out after ttl.
// A zero ttl keeps entries until deleted.
func (c *Client) Bucket(ctx context.Context, name string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := c.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  name,
		TTL:     ttl,
		History: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("jetstream kv %s: %w", name, err)
	}
	return kv, nil
}

// Healthy reports whether the connection is up.
func (c *Client) Healthy() bool {
	return c.nc.IsConnected()
}

// Close drains and closes the connection.
func (c *Client) Close() error {
	return c.nc.Drain()
}
