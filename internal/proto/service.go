// Package proto defines the memvault intake gRPC service. Requests and
// responses travel as google.protobuf.Struct values; messages.go holds the
// typed Go forms and the conversions.
package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "memvault.intake.IntakeService"

// Full method names.
const (
	MethodPing         = "/" + ServiceName + "/Ping"
	MethodSubmit       = "/" + ServiceName + "/Submit"
	MethodRunPass      = "/" + ServiceName + "/RunPass"
	MethodRegisterUnit = "/" + ServiceName + "/RegisterUnit"
	MethodSeedLedger   = "/" + ServiceName + "/SeedLedger"
	MethodAuditLog     = "/" + ServiceName + "/AuditLog"
)

// IntakeServiceServer is the server API for IntakeService.
type IntakeServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunPass(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterUnit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SeedLedger(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AuditLog(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type serverCall func(IntakeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call serverCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(IntakeServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(IntakeServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// IntakeService_ServiceDesc is the grpc.ServiceDesc for IntakeService.
var IntakeService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IntakeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, IntakeServiceServer.Ping)},
		{MethodName: "Submit", Handler: unaryHandler(MethodSubmit, IntakeServiceServer.Submit)},
		{MethodName: "RunPass", Handler: unaryHandler(MethodRunPass, IntakeServiceServer.RunPass)},
		{MethodName: "RegisterUnit", Handler: unaryHandler(MethodRegisterUnit, IntakeServiceServer.RegisterUnit)},
		{MethodName: "SeedLedger", Handler: unaryHandler(MethodSeedLedger, IntakeServiceServer.SeedLedger)},
		{MethodName: "AuditLog", Handler: unaryHandler(MethodAuditLog, IntakeServiceServer.AuditLog)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "memvault/intake.proto",
}

func RegisterIntakeServiceServer(s grpc.ServiceRegistrar, srv IntakeServiceServer) {
	s.RegisterService(&IntakeService_ServiceDesc, srv)
}

// IntakeServiceClient is the client API for IntakeService.
type IntakeServiceClient interface {
	Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RunPass(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RegisterUnit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SeedLedger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	AuditLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type intakeServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewIntakeServiceClient(cc grpc.ClientConnInterface) IntakeServiceClient {
	return &intakeServiceClient{cc}
}

func (c *intakeServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *intakeServiceClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPing, in, opts)
}

func (c *intakeServiceClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSubmit, in, opts)
}

func (c *intakeServiceClient) RunPass(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRunPass, in, opts)
}

func (c *intakeServiceClient) RegisterUnit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRegisterUnit, in, opts)
}

func (c *intakeServiceClient) SeedLedger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodSeedLedger, in, opts)
}

func (c *intakeServiceClient) AuditLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodAuditLog, in, opts)
}
