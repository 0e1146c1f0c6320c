package client

import (
	"context"

	pb "github.com/dmitrijs2005/memvault/internal/proto"
)

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Submit(ctx context.Context, req pb.SubmitRequest) (*pb.SubmitResponse, error)
	RunPass(ctx context.Context) (*pb.RunPassResponse, error)
	RegisterUnit(ctx context.Context, req pb.RegisterUnitRequest) (*pb.RegisterUnitResponse, error)
	SeedLedger(ctx context.Context, req pb.SeedLedgerRequest) (*pb.SeedLedgerResponse, error)
	AuditLog(ctx context.Context, req pb.AuditLogRequest) (*pb.AuditLogResponse, error)
}
