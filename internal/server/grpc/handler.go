package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/memvault/internal/common"
	pb "github.com/dmitrijs2005/memvault/internal/proto"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/scheduler"
)

func encode(v any) (*structpb.Struct, error) {
	out, err := pb.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func decode(in *structpb.Struct, v any) error {
	if err := pb.Decode(in, v); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return encode(pb.PingResponse{Status: "OK"})
}

func (s *GRPCServer) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := claimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	var in pb.SubmitRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.UnitKey) == "" {
		return nil, status.Error(codes.InvalidArgument, common.ErrInvalidUnitKey.Error())
	}

	res, err := s.services.Intake.Process(ctx, models.Submission{
		SubmitterIdentity: claims.Email,
		RawUnitKey:        in.UnitKey,
		OwnerName:         in.OwnerName,
		Phone:             in.Phone,
		FileRefs:          in.FileRefs,
	})
	if err != nil {
		s.logger.Error(ctx, "submit failed", "unit", in.UnitKey, "error", err)
		if errors.Is(err, common.ErrLockTimeout) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "submission processed", "unit", in.UnitKey, "outcome", res.Outcome, "accepted", res.Accepted)
	return encode(pb.SubmitResponse{
		Outcome:      string(res.Outcome),
		Accepted:     res.Accepted,
		AddedBytes:   res.AddedBytes,
		Reason:       res.Reason,
		ContainerRef: res.ContainerRef,
	})
}

func (s *GRPCServer) RunPass(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	report, err := s.services.Passer.RunPass(ctx)
	if err != nil {
		if errors.Is(err, scheduler.ErrPassRunning) {
			return nil, status.Error(codes.Aborted, err.Error())
		}
		s.logger.Error(ctx, "pass failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return encode(pb.RunPassResponse{
		Processed:   report.Processed,
		Deferred:    report.Deferred,
		Provisioned: report.Provisioned,
		Failed:      report.Failed,
		DurationMs:  report.Duration.Milliseconds(),
	})
}

func (s *GRPCServer) RegisterUnit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in pb.RegisterUnitRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	entry, err := s.services.Units.RegisterUnit(ctx, in.UnitKey, in.OwnerIdentity, in.ContainerRef)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidUnitKey):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		}
		s.logger.Error(ctx, "register unit failed", "unit", in.UnitKey, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	return encode(pb.RegisterUnitResponse{ID: entry.ID, UnitKey: entry.UnitKey, NormalizedKey: entry.NormalizedKey})
}

func (s *GRPCServer) SeedLedger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in pb.SeedLedgerRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	history := make([]models.HistoricalSubmission, 0, len(in.Rows))
	for _, r := range in.Rows {
		history = append(history, models.HistoricalSubmission{RawUnitKey: r.UnitKey, FileRefs: r.FileRefs})
	}

	report, err := s.services.Seeder.Seed(ctx, history)
	if err != nil {
		s.logger.Error(ctx, "seed ledger failed", "error", err)
		if errors.Is(err, common.ErrLockTimeout) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	return encode(pb.SeedLedgerResponse{Updated: report.Updated, IDs: report.IDs, Unmatched: report.Unmatched})
}

func (s *GRPCServer) AuditLog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in pb.AuditLogRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if in.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "negative limit")
	}

	recs, err := s.services.Audit.Recent(ctx, in.Limit)
	if err != nil {
		s.logger.Error(ctx, "audit log failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	resp := pb.AuditLogResponse{Records: make([]pb.AuditRecord, 0, len(recs))}
	for _, r := range recs {
		resp.Records = append(resp.Records, pb.AuditRecord{
			ID:        r.ID,
			Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
			Category:  string(r.Category),
			Subject:   r.Subject,
			Object:    r.Object,
			Status:    string(r.Status),
			Reason:    r.Reason,
			Action:    r.Action,
		})
	}
	return encode(resp)
}
