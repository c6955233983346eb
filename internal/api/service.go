package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "intel.v1.IntelEngine"

// Method names of the IntelEngine service.
const (
	MethodEvaluate        = "Evaluate"
	MethodCreateAction    = "CreateAction"
	MethodExecuteAction   = "ExecuteAction"
	MethodTrackEvents     = "TrackEvents"
	MethodGetProfile      = "GetProfile"
	MethodUpdateProfile   = "UpdateProfile"
	MethodResetProfile    = "ResetProfile"
	MethodGetTransparency = "GetTransparency"
)

// IntelEngineServer is the server API of the IntelEngine service. Requests
// and responses travel as google.protobuf.Struct holding the JSON form of
// the message types in this package.
type IntelEngineServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExecuteAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	TrackEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTransparency(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(IntelEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(IntelEngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(IntelEngineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// IntelEngineServiceDesc describes the IntelEngine service for grpc.Server.
var IntelEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IntelEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodEvaluate, Handler: unaryHandler(MethodEvaluate, IntelEngineServer.Evaluate)},
		{MethodName: MethodCreateAction, Handler: unaryHandler(MethodCreateAction, IntelEngineServer.CreateAction)},
		{MethodName: MethodExecuteAction, Handler: unaryHandler(MethodExecuteAction, IntelEngineServer.ExecuteAction)},
		{MethodName: MethodTrackEvents, Handler: unaryHandler(MethodTrackEvents, IntelEngineServer.TrackEvents)},
		{MethodName: MethodGetProfile, Handler: unaryHandler(MethodGetProfile, IntelEngineServer.GetProfile)},
		{MethodName: MethodUpdateProfile, Handler: unaryHandler(MethodUpdateProfile, IntelEngineServer.UpdateProfile)},
		{MethodName: MethodResetProfile, Handler: unaryHandler(MethodResetProfile, IntelEngineServer.ResetProfile)},
		{MethodName: MethodGetTransparency, Handler: unaryHandler(MethodGetTransparency, IntelEngineServer.GetTransparency)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "intel/v1/intel.proto",
}

// RegisterIntelEngineServer registers srv on s.
func RegisterIntelEngineServer(s grpc.ServiceRegistrar, srv IntelEngineServer) {
	s.RegisterService(&IntelEngineServiceDesc, srv)
}

// FullMethod returns the gRPC path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Client calls the IntelEngine service over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call encodes req, invokes method and decodes the reply into resp.
func (c *Client) Call(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	in, err := Encode(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	return Decode(out, resp)
}
