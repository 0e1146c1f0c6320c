package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/memvault/internal/common"
	pb "github.com/dmitrijs2005/memvault/internal/proto"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      pb.IntakeServiceClient
	accessToken string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if s.accessToken != "" {
		ctx = withAccessToken(ctx, s.accessToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func NewIntakeClient(endpointURL, accessToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, accessToken: accessToken}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(extra ...grpc.DialOption) error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, extra...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = pb.NewIntakeServiceClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalid, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, st.Message())
	case codes.Aborted:
		return ErrBusy
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

type call func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

// do encodes req, runs fn and decodes the reply into resp.
func (s *GRPCClient) do(ctx context.Context, fn call, req, resp any) error {
	in, err := pb.Encode(req)
	if err != nil {
		return err
	}
	out, err := fn(ctx, in)
	if err != nil {
		return s.mapError(err)
	}
	if resp == nil {
		return nil
	}
	return pb.Decode(out, resp)
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	var resp pb.PingResponse
	if err := s.do(ctx, s.client.Ping, struct{}{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return fmt.Errorf("%w: status %q", ErrUnavailable, resp.Status)
	}
	return nil
}

func (s *GRPCClient) Submit(ctx context.Context, req pb.SubmitRequest) (*pb.SubmitResponse, error) {
	resp := &pb.SubmitResponse{}
	if err := s.do(ctx, s.client.Submit, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) RunPass(ctx context.Context) (*pb.RunPassResponse, error) {
	resp := &pb.RunPassResponse{}
	if err := s.do(ctx, s.client.RunPass, struct{}{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) RegisterUnit(ctx context.Context, req pb.RegisterUnitRequest) (*pb.RegisterUnitResponse, error) {
	resp := &pb.RegisterUnitResponse{}
	if err := s.do(ctx, s.client.RegisterUnit, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) SeedLedger(ctx context.Context, req pb.SeedLedgerRequest) (*pb.SeedLedgerResponse, error) {
	resp := &pb.SeedLedgerResponse{}
	if err := s.do(ctx, s.client.SeedLedger, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *GRPCClient) AuditLog(ctx context.Context, req pb.AuditLogRequest) (*pb.AuditLogResponse, error) {
	resp := &pb.AuditLogResponse{}
	if err := s.do(ctx, s.client.AuditLog, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
