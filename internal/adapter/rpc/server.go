// Package rpc implements the request router: it decodes the streaming
// RPC's frames, authenticates every request before any filesystem or
// store access, dispatches to the ingestion, query and listing
// services, and maps domain errors onto transport status codes.
package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mekarlab/payrollgate/internal/adapter/metrics"
	"github.com/mekarlab/payrollgate/internal/domain"
	"github.com/mekarlab/payrollgate/internal/usecase"
	pb "github.com/mekarlab/payrollgate/proto"
)

// Server implements pb.PayrollFlightServer.
type Server struct {
	creds     domain.CredentialStore
	transform *usecase.TransformService
	query     *usecase.QueryService
	limiter   *rate.Limiter
	batchRows int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewServer creates the router with its dependencies injected.
func NewServer(
	creds domain.CredentialStore,
	transform *usecase.TransformService,
	query *usecase.QueryService,
	limiter *rate.Limiter,
	batchRows int,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Server {
	if batchRows <= 0 {
		batchRows = 1024
	}
	return &Server{
		creds:     creds,
		transform: transform,
		query:     query,
		limiter:   limiter,
		batchRows: batchRows,
		metrics:   m,
		logger:    logger,
	}
}

// authenticate verifies credentials and resolves the tenant record.
// It runs before any filesystem or store access on every request path.
func (s *Server) authenticate(ctx context.Context, clientID, password string) (*domain.Tenant, error) {
	ok, err := s.creds.Verify(ctx, clientID, password)
	if err != nil {
		s.logger.Error("credential verification unavailable", "client_id", clientID, "error", err)
		return nil, err
	}
	if !ok {
		s.logger.Warn("authentication failed", "client_id", clientID)
		return nil, domain.ErrAuthenticationFailed
	}
	return s.creds.Lookup(ctx, clientID)
}

// Put handles an upload: descriptor frame, then row frames, then the
// transform pipeline.
func (s *Server) Put(stream pb.PayrollFlight_PutServer) error {
	ctx := stream.Context()

	first, err := stream.Recv()
	if err != nil {
		s.count("ingest", "error")
		if errors.Is(err, io.EOF) {
			return status.Error(codes.InvalidArgument, "missing descriptor frame")
		}
		return status.Errorf(codes.Internal, "receive descriptor frame: %v", err)
	}
	if first.Descriptor == nil {
		s.count("ingest", "error")
		return status.Error(codes.InvalidArgument, "first frame must carry the descriptor")
	}
	desc := first.Descriptor

	tenant, err := s.authenticate(ctx, desc.ClientID, desc.Password)
	if err != nil {
		s.count("ingest", outcome(err))
		return s.mapError("ingest", err)
	}

	// Ingest pacing. Not an auth lockout: authenticated requests are
	// simply admitted at a bounded rate.
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			s.count("ingest", "error")
			return status.Error(codes.ResourceExhausted, "ingestion rate exceeded")
		}
	}

	up := domain.Upload{Filename: desc.Filename, Header: first.Header, Rows: first.Rows}
	for {
		frame, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.count("ingest", "error")
			return status.Errorf(codes.Internal, "receive upload frame: %v", err)
		}
		if len(up.Header) == 0 && len(frame.Header) > 0 {
			up.Header = frame.Header
		}
		up.Rows = append(up.Rows, frame.Rows...)
	}

	storeName, err := s.transform.Ingest(ctx, tenant, up)
	if err != nil {
		s.count("ingest", outcome(err))
		return s.mapError("ingest", err)
	}

	s.count("ingest", "ok")
	return stream.SendAndClose(&pb.PutResult{Store: storeName, Rows: len(up.Rows)})
}

// Get answers query tickets with a stream of record batches.
func (s *Server) Get(t *pb.Ticket, stream pb.PayrollFlight_GetServer) error {
	ctx := stream.Context()

	action, err := domain.ParseAction(t.Action)
	if err != nil {
		s.count("unknown", "unknown")
		return s.mapError(t.Action, err)
	}
	if action != domain.ActionFullExport && action != domain.ActionBudgetSummary {
		s.count(action.String(), "unknown")
		return status.Errorf(codes.InvalidArgument, "%s is not a query action", action)
	}

	tenant, err := s.authenticate(ctx, t.ClientID, t.Password)
	if err != nil {
		s.count(action.String(), outcome(err))
		return s.mapError(action.String(), err)
	}

	table, err := s.query.Fetch(ctx, tenant, action, t.TargetFile, t.SaveToDownloads)
	if err != nil {
		s.count(action.String(), outcome(err))
		return s.mapError(action.String(), err)
	}

	if err := s.sendBatches(table, stream.Send); err != nil {
		s.count(action.String(), "error")
		return status.Errorf(codes.Internal, "stream result: %v", err)
	}
	s.count(action.String(), "ok")
	return nil
}

// Do handles the lightweight metadata actions.
func (s *Server) Do(ctx context.Context, req *pb.ActionRequest) (*pb.ActionResult, error) {
	action, err := domain.ParseAction(req.Name)
	if err != nil {
		s.count("unknown", "unknown")
		return nil, s.mapError(req.Name, err)
	}
	if action != domain.ActionListFiles {
		s.count(action.String(), "unknown")
		return nil, status.Errorf(codes.InvalidArgument, "%s is not an action verb", action)
	}

	tenant, err := s.authenticate(ctx, req.ClientID, req.Password)
	if err != nil {
		s.count(action.String(), outcome(err))
		return nil, s.mapError(action.String(), err)
	}

	listing, err := s.query.ListFiles(ctx, tenant)
	if err != nil {
		s.count(action.String(), outcome(err))
		return nil, s.mapError(action.String(), err)
	}

	s.count(action.String(), "ok")
	return &pb.ActionResult{
		Success:    true,
		RawFiles:   listing.RawFiles,
		CleanFiles: listing.CleanFiles,
	}, nil
}

// sendBatches streams a table in bounded frames; columns ride on the
// first frame only.
func (s *Server) sendBatches(table *domain.Table, send func(*pb.RecordBatch) error) error {
	rows := table.Rows
	cols := table.Columns
	for first := true; first || len(rows) > 0; first = false {
		n := len(rows)
		if n > s.batchRows {
			n = s.batchRows
		}
		batch := &pb.RecordBatch{Rows: rows[:n]}
		if first {
			batch.Columns = cols
		}
		if err := send(batch); err != nil {
			return err
		}
		s.metrics.RowsStreamed.Add(float64(n))
		rows = rows[n:]
	}
	return nil
}

func (s *Server) count(action, st string) {
	s.metrics.RequestsTotal.WithLabelValues(action, st).Inc()
}

// outcome buckets an error for metrics.
func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return "auth_failed"
	case errors.Is(err, domain.ErrPolicyViolation):
		return "policy"
	case errors.Is(err, domain.ErrEngineFailure), errors.Is(err, domain.ErrCheckpointFailure):
		return "engine"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store"
	case errors.Is(err, domain.ErrUnknownAction):
		return "unknown"
	default:
		return "error"
	}
}

// mapError converts domain errors to gRPC status codes, keeping the
// "your request is wrong" / "the system failed" / "no data yet"
// distinction visible to the caller.
func (s *Server) mapError(action string, err error) error {
	switch {
	case errors.Is(err, domain.ErrAuthenticationFailed):
		return status.Error(codes.Unauthenticated, "authentication failed")
	case errors.Is(err, domain.ErrUnknownAction):
		return status.Errorf(codes.InvalidArgument, "unknown action %q", action)
	case errors.Is(err, domain.ErrPolicyViolation):
		return status.Errorf(codes.FailedPrecondition, "%v", err)
	case errors.Is(err, domain.ErrStoreUnavailable):
		return status.Errorf(codes.NotFound, "%v", err)
	case errors.Is(err, domain.ErrTenantInfrastructureMissing):
		return status.Errorf(codes.FailedPrecondition, "%v", err)
	case errors.Is(err, domain.ErrCredentialsUnavailable):
		return status.Error(codes.Unavailable, "credential store unavailable")
	case errors.Is(err, domain.ErrRawPersistFailure),
		errors.Is(err, domain.ErrEngineFailure),
		errors.Is(err, domain.ErrCheckpointFailure):
		return status.Errorf(codes.Internal, "%s failed: %v", action, err)
	default:
		return status.Errorf(codes.Internal, "%s: %v", action, err)
	}
}
