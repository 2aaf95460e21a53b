package client

import (
	"context"
	"fmt"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"github.com/ArkBriar/smartqq/internal/api"
	"google.golang.org/grpc"
)

// Stream is the receiving side of a server stream. Recv returns io.EOF
// once the daemon ends it.
type Stream[T any] interface {
	Recv() (*T, error)
}

// Client is a connection to a session daemon.
type Client struct {
	*api.Client
	conn *grpc.ClientConn
}

// New dials the daemon's Unix socket. The connection is lazy; the first
// call reports an unreachable daemon.
func New(socketPath string) (*Client, error) {
	conn, err := api.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{Client: api.NewClient(conn), conn: conn}, nil
}

// Auth starts a login and streams its progress.
func (c *Client) Auth(ctx context.Context) (Stream[adapter.AuthEvent], error) {
	s, err := c.StartAuth(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Events streams daemon events of a namespace, all when empty.
func (c *Client) Events(ctx context.Context, namespace string) (Stream[api.Envelope], error) {
	s, err := c.WatchEvents(ctx, &api.WatchEventsRequest{Namespace: namespace})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
