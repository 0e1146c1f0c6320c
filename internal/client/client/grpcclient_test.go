package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/memvault/internal/common"
	pb "github.com/dmitrijs2005/memvault/internal/proto"
)

/*************
 * Fake pb client
 *************/

type fakePB struct {
	lastMethod string
	lastIn     *structpb.Struct

	out *structpb.Struct
	err error
}

func (f *fakePB) call(method string, in *structpb.Struct) (*structpb.Struct, error) {
	f.lastMethod, f.lastIn = method, in
	if f.err != nil {
		return nil, f.err
	}
	if f.out == nil {
		return &structpb.Struct{}, nil
	}
	return f.out, nil
}

func (f *fakePB) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return f.call("Ping", in)
}
func (f *fakePB) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return f.call("Submit", in)
}
func (f *fakePB) RunPass(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return f.call("RunPass", in)
}
func (f *fakePB) RegisterUnit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return f.call("RegisterUnit", in)
}
func (f *fakePB) SeedLedger(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return f.call("SeedLedger", in)
}
func (f *fakePB) AuditLog(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return f.call("AuditLog", in)
}

func newWithFake(f *fakePB) *GRPCClient {
	return &GRPCClient{client: f, accessToken: "tok"}
}

func encoded(t *testing.T, v any) *structpb.Struct {
	t.Helper()
	s, err := pb.Encode(v)
	require.NoError(t, err)
	return s
}

func TestPing(t *testing.T) {
	f := &fakePB{out: encoded(t, pb.PingResponse{Status: "OK"})}
	require.NoError(t, newWithFake(f).Ping(context.Background()))

	f.out = encoded(t, pb.PingResponse{Status: "DEGRADED"})
	assert.ErrorIs(t, newWithFake(f).Ping(context.Background()), ErrUnavailable)
}

func TestSubmit_EncodesRequestAndDecodesReply(t *testing.T) {
	f := &fakePB{out: encoded(t, pb.SubmitResponse{Outcome: "Done", Accepted: 1, AddedBytes: 42})}

	resp, err := newWithFake(f).Submit(context.Background(), pb.SubmitRequest{UnitKey: "A-104", FileRefs: "abc"})
	require.NoError(t, err)
	assert.Equal(t, &pb.SubmitResponse{Outcome: "Done", Accepted: 1, AddedBytes: 42}, resp)

	assert.Equal(t, "Submit", f.lastMethod)
	var sent pb.SubmitRequest
	require.NoError(t, pb.Decode(f.lastIn, &sent))
	assert.Equal(t, pb.SubmitRequest{UnitKey: "A-104", FileRefs: "abc"}, sent)
}

func TestRunPass_RegisterUnit_SeedLedger(t *testing.T) {
	f := &fakePB{out: encoded(t, pb.RunPassResponse{Processed: 3})}
	c := newWithFake(f)

	rp, err := c.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, rp.Processed)

	f.out = encoded(t, pb.RegisterUnitResponse{ID: 5, NormalizedKey: "a-1"})
	ru, err := c.RegisterUnit(context.Background(), pb.RegisterUnitRequest{UnitKey: "A-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), ru.ID)

	f.out = encoded(t, pb.SeedLedgerResponse{Updated: 2})
	sl, err := c.SeedLedger(context.Background(), pb.SeedLedgerRequest{Rows: []pb.HistoryRow{{UnitKey: "A-1"}}})
	require.NoError(t, err)
	assert.Equal(t, 2, sl.Updated)
}

func TestAuditLog(t *testing.T) {
	f := &fakePB{out: encoded(t, pb.AuditLogResponse{Records: []pb.AuditRecord{{ID: 9, Category: "SYNC", Status: "SUCCESS"}}})}

	resp, err := newWithFake(f).AuditLog(context.Background(), pb.AuditLogRequest{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []pb.AuditRecord{{ID: 9, Category: "SYNC", Status: "SUCCESS"}}, resp.Records)

	assert.Equal(t, "AuditLog", f.lastMethod)
	var sent pb.AuditLogRequest
	require.NoError(t, pb.Decode(f.lastIn, &sent))
	assert.Equal(t, 5, sent.Limit)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.Unauthenticated, ErrUnauthorized},
		{codes.PermissionDenied, ErrForbidden},
		{codes.Unavailable, ErrUnavailable},
		{codes.DeadlineExceeded, ErrUnavailable},
		{codes.InvalidArgument, ErrInvalid},
		{codes.AlreadyExists, ErrAlreadyExists},
		{codes.Aborted, ErrBusy},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			f := &fakePB{err: status.Error(tt.code, "x")}
			_, err := newWithFake(f).RunPass(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	f := &fakePB{err: status.Error(codes.Internal, "boom")}
	_, err := newWithFake(f).RunPass(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc error")
	assert.Nil(t, (&GRPCClient{}).mapError(nil))
}

func TestAccessTokenInterceptor_AttachesToken(t *testing.T) {
	c := &GRPCClient{accessToken: "tok-1"}

	var got []string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		got = md.Get(common.AccessTokenHeaderName)
		return nil
	}

	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "stale")
	require.NoError(t, c.accessTokenInterceptor(ctx, pb.MethodSubmit, nil, nil, nil, invoker))
	assert.Equal(t, []string{"tok-1"}, got)
}

func TestAccessTokenInterceptor_NoTokenLeavesContext(t *testing.T) {
	c := &GRPCClient{}

	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		if _, ok := metadata.FromOutgoingContext(ctx); ok {
			return errors.New("unexpected metadata")
		}
		return nil
	}
	assert.NoError(t, c.accessTokenInterceptor(context.Background(), pb.MethodPing, nil, nil, nil, invoker))
}

func TestNewIntakeClient_LazyConnect(t *testing.T) {
	c, err := NewIntakeClient("127.0.0.1:1", "tok")
	require.NoError(t, err)
	require.NoError(t, c.Close())
}
