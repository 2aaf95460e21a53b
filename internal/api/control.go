package api

import (
	"context"

	"github.com/ArkBriar/smartqq/internal/adapter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "smartqq.v1.Control"

// Stream is the server side of a server-streaming call.
type Stream[T any] interface {
	Send(*T) error
	Context() context.Context
}

// ControlServer is the daemon's control surface.
type ControlServer interface {
	GetStatus(context.Context, *StatusRequest) (*Status, error)
	StartAuth(*AuthRequest, Stream[adapter.AuthEvent]) error
	StopPolling(context.Context, *StopPollingRequest) (*StopPollingResponse, error)
	ListContacts(context.Context, *ListContactsRequest) (*ListContactsResponse, error)
	GetInfo(context.Context, *GetInfoRequest) (*GetInfoResponse, error)
	RefreshContacts(context.Context, *RefreshContactsRequest) (*RefreshContactsResponse, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	SearchMessages(context.Context, *SearchMessagesRequest) (*SearchMessagesResponse, error)
	SendText(context.Context, *SendTextRequest) (*SendTextResponse, error)
	WatchEvents(*WatchEventsRequest, Stream[Envelope]) error
}

// Control implements ControlServer by composing the per-area services.
type Control struct {
	*SessionService
	*ContactService
	*ChatService
	*MessageService
	*EventService
}

var _ ControlServer = (*Control)(nil)

// ControlServiceDesc describes the Control service. Every message is a
// google.protobuf.Struct.
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", ControlServer.GetStatus),
		unary("StopPolling", ControlServer.StopPolling),
		unary("ListContacts", ControlServer.ListContacts),
		unary("GetInfo", ControlServer.GetInfo),
		unary("RefreshContacts", ControlServer.RefreshContacts),
		unary("ListConversations", ControlServer.ListConversations),
		unary("ListMessages", ControlServer.ListMessages),
		unary("SearchMessages", ControlServer.SearchMessages),
		unary("SendText", ControlServer.SendText),
	},
	Streams: []grpc.StreamDesc{
		serverStream("StartAuth", ControlServer.StartAuth),
		serverStream("WatchEvents", ControlServer.WatchEvents),
	},
	Metadata: "smartqq/v1/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(ControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			handle := func(ctx context.Context, req any) (any, error) {
				var r Req
				if err := decodeStruct(req.(*structpb.Struct), &r); err != nil {
					return nil, grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", name, err)
				}
				resp, err := call(srv.(ControlServer), ctx, &r)
				if err != nil {
					return nil, err
				}
				out, err := encodeStruct(resp)
				if err != nil {
					return nil, grpcstatus.Errorf(codes.Internal, "%s: %v", name, err)
				}
				return out, nil
			}
			if interceptor == nil {
				return handle(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, handle)
		},
	}
}

func serverStream[Req, Resp any](name string, call func(ControlServer, *Req, Stream[Resp]) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := &structpb.Struct{}
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			var req Req
			if err := decodeStruct(in, &req); err != nil {
				return grpcstatus.Errorf(codes.InvalidArgument, "%s: %v", name, err)
			}
			return call(srv.(ControlServer), &req, &structSender[Resp]{stream})
		},
	}
}

type structSender[T any] struct {
	grpc.ServerStream
}

func (s *structSender[T]) Send(v *T) error {
	out, err := encodeStruct(v)
	if err != nil {
		return err
	}
	return s.SendMsg(out)
}
