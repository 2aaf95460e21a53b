package api

import (
	"context"
	"fmt"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Dial connects to a daemon's Unix socket. The connection is established
// lazily on the first call.
func Dial(socketPath string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	return conn, nil
}

// Client is a typed Control client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := encodeStruct(req)
	if err != nil {
		return err
	}
	out := &structpb.Struct{}
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return err
	}
	return decodeStruct(out, resp)
}

// call runs a unary method and decodes its response.
func call[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	resp := new(Resp)
	if err := c.invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	return call[Status](ctx, c, "GetStatus", &StatusRequest{})
}

func (c *Client) StopPolling(ctx context.Context) (*StopPollingResponse, error) {
	return call[StopPollingResponse](ctx, c, "StopPolling", &StopPollingRequest{})
}

func (c *Client) ListContacts(ctx context.Context, req *ListContactsRequest) (*ListContactsResponse, error) {
	return call[ListContactsResponse](ctx, c, "ListContacts", req)
}

func (c *Client) GetInfo(ctx context.Context, req *GetInfoRequest) (*GetInfoResponse, error) {
	return call[GetInfoResponse](ctx, c, "GetInfo", req)
}

func (c *Client) RefreshContacts(ctx context.Context, req *RefreshContactsRequest) (*RefreshContactsResponse, error) {
	return call[RefreshContactsResponse](ctx, c, "RefreshContacts", req)
}

func (c *Client) ListConversations(ctx context.Context, req *ListConversationsRequest) (*ListConversationsResponse, error) {
	return call[ListConversationsResponse](ctx, c, "ListConversations", req)
}

func (c *Client) ListMessages(ctx context.Context, req *ListMessagesRequest) (*ListMessagesResponse, error) {
	return call[ListMessagesResponse](ctx, c, "ListMessages", req)
}

func (c *Client) SearchMessages(ctx context.Context, req *SearchMessagesRequest) (*SearchMessagesResponse, error) {
	return call[SearchMessagesResponse](ctx, c, "SearchMessages", req)
}

func (c *Client) SendText(ctx context.Context, req *SendTextRequest) (*SendTextResponse, error) {
	return call[SendTextResponse](ctx, c, "SendText", req)
}

// StartAuth opens a login stream. Cancel ctx to abort the attempt.
func (c *Client) StartAuth(ctx context.Context) (*ClientStream[adapter.AuthEvent], error) {
	return openStream[adapter.AuthEvent](ctx, c.cc, "StartAuth", &AuthRequest{})
}

// WatchEvents opens an event stream.
func (c *Client) WatchEvents(ctx context.Context, req *WatchEventsRequest) (*ClientStream[Envelope], error) {
	return openStream[Envelope](ctx, c.cc, "WatchEvents", req)
}

// ClientStream receives typed messages of a server-streaming call.
type ClientStream[T any] struct {
	stream grpc.ClientStream
}

// Recv returns the next message, or io.EOF once the server is done.
func (s *ClientStream[T]) Recv() (*T, error) {
	out := &structpb.Struct{}
	if err := s.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	v := new(T)
	if err := decodeStruct(out, v); err != nil {
		return nil, err
	}
	return v, nil
}

func openStream[T any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any) (*ClientStream[T], error) {
	in, err := encodeStruct(req)
	if err != nil {
		return nil, err
	}
	desc := &grpc.StreamDesc{StreamName: method, ServerStreams: true}
	stream, err := cc.NewStream(ctx, desc, fullMethod(method))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ClientStream[T]{stream: stream}, nil
}
