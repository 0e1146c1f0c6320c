package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/memvault/internal/logging"
	pb "github.com/dmitrijs2005/memvault/internal/proto"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/scheduler"
	"github.com/dmitrijs2005/memvault/internal/server/services"
)

// Intake processes member submissions.
type Intake interface {
	Process(ctx context.Context, sub models.Submission) (*services.IntakeResult, error)
}

// Passer runs one scheduled pass on demand.
type Passer interface {
	RunPass(ctx context.Context) (*scheduler.PassReport, error)
}

// Units registers registry entries.
type Units interface {
	RegisterUnit(ctx context.Context, unitKey, ownerIdentity, containerRef string) (*models.RegistryEntry, error)
}

// Seeder rebuilds ledgers from submission history.
type Seeder interface {
	Seed(ctx context.Context, history []models.HistoricalSubmission) (*services.SeedReport, error)
}

// AuditLog reads back the audit trail.
type AuditLog interface {
	Recent(ctx context.Context, limit int) ([]models.AuditRecord, error)
}

// Services bundles the backends the gRPC server dispatches to.
type Services struct {
	Intake Intake
	Passer Passer
	Units  Units
	Seeder Seeder
	Audit  AuditLog
}

type GRPCServer struct {
	address   string
	services  Services
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, svc Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		services:  svc,
		jwtSecret: []byte(secretKey),
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on listen until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	pb.RegisterIntakeServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
