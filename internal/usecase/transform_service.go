package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mekarlab/payrollgate/internal/adapter/layout"
	"github.com/mekarlab/payrollgate/internal/adapter/metrics"
	"github.com/mekarlab/payrollgate/internal/domain"
)

// TransformService orchestrates one ingestion Job: policy check, raw
// snapshot persistence, the serialized engine invocation, the
// durability pass, and rollback of half-built stores.
type TransformService struct {
	layout  *layout.Layout
	engine  domain.TransformEngine
	store   domain.AnalyticalStore
	logger  *slog.Logger
	metrics *metrics.Metrics

	// lock serializes engine invocations process-wide: the engine is
	// not known to be safe under concurrent runs against shared state.
	// Held only around the invocation itself, never around the
	// checkpoint pass, so queries are never blocked by it.
	lock sync.Locker

	engineTimeout time.Duration
	settleDelay   time.Duration
}

// NewTransformService creates a TransformService. A nil lock gets a
// fresh process-wide mutex; tests inject their own.
func NewTransformService(
	l *layout.Layout,
	engine domain.TransformEngine,
	store domain.AnalyticalStore,
	logger *slog.Logger,
	m *metrics.Metrics,
	engineTimeout, settleDelay time.Duration,
	lock sync.Locker,
) *TransformService {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &TransformService{
		layout:        l,
		engine:        engine,
		store:         store,
		logger:        logger,
		metrics:       m,
		lock:          lock,
		engineTimeout: engineTimeout,
		settleDelay:   settleDelay,
	}
}

// Ingest runs the full transform pipeline for one upload and returns
// the Clean Store name on success. On any failure after the raw
// snapshot is written, the target store and its sidecars are removed;
// the raw snapshot is always retained as an audit artifact.
func (s *TransformService) Ingest(ctx context.Context, tenant *domain.Tenant, up domain.Upload) (string, error) {
	jobID := uuid.NewString()
	log := s.logger.With("job_id", jobID, "client_id", tenant.ClientID, "filename", up.Filename)

	// 1. Filename policy check, before touching disk or the lock. A
	// tenant must not process data under another industry's schema.
	if !strings.Contains(strings.ToLower(up.Filename), strings.ToLower(tenant.Industry)) {
		log.Warn("policy check rejected upload", "industry", tenant.Industry)
		return "", fmt.Errorf("%w: %q lacks industry token %q",
			domain.ErrPolicyViolation, up.Filename, tenant.Industry)
	}

	// 2. Persist the raw snapshot. Never rolled back: Raw is the
	// append/overwrite-only audit trail.
	rawPath := s.layout.RawPath(tenant.ClientID, up.Filename)
	if err := s.writeRaw(tenant.ClientID, rawPath, up); err != nil {
		log.Error("raw snapshot persist failed", "error", err, "raw", rawPath)
		return "", fmt.Errorf("%w: %v", domain.ErrRawPersistFailure, err)
	}
	log.Info("raw snapshot persisted", "raw", rawPath, "rows", len(up.Rows))

	storeName := layout.StoreName(tenant.ClientID, tenant.Industry, up.Filename)
	storePath := s.layout.StorePath(tenant.ClientID, storeName)
	if err := s.layout.Ensure(s.layout.CleanDir(tenant.ClientID)); err != nil {
		// The raw snapshot is already safe at this point; this is a
		// store-side provisioning problem, not a raw persist one.
		log.Error("could not prepare clean area", "error", err)
		return "", fmt.Errorf("prepare clean area: %w", err)
	}

	job := domain.EngineJob{
		ClientID:  tenant.ClientID,
		Industry:  tenant.Industry,
		RawPath:   rawPath,
		StorePath: storePath,
	}

	// 3-5. Serialized engine invocation. The lock is taken only for
	// the invocation and released whether it succeeds or fails.
	start := time.Now()
	engineErr := s.runSerialized(ctx, job)
	s.metrics.TransformSeconds.Observe(time.Since(start).Seconds())

	if engineErr != nil {
		log.Error("engine invocation failed, rolling back store", "error", engineErr, "store", storePath)
		s.rollback(storePath, log)
		return "", fmt.Errorf("%w: %v", domain.ErrEngineFailure, engineErr)
	}

	// 6. Durability pass outside the lock. The settle delay gives the
	// OS time to release the exited engine's file handles; it is a
	// pragmatic wait, not a correctness guarantee.
	if s.settleDelay > 0 {
		select {
		case <-time.After(s.settleDelay):
		case <-ctx.Done():
			s.rollback(storePath, log)
			return "", fmt.Errorf("%w: %v", domain.ErrCheckpointFailure, ctx.Err())
		}
	}
	if err := s.store.Checkpoint(ctx, storePath); err != nil {
		log.Error("checkpoint failed, rolling back store", "error", err, "store", storePath)
		s.rollback(storePath, log)
		if errors.Is(err, domain.ErrCheckpointFailure) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrCheckpointFailure, err)
	}

	log.Info("transform complete", "store", storeName, "elapsed", time.Since(start))
	return storeName, nil
}

// runSerialized holds the global transform lock for exactly the engine
// invocation. The invocation itself is bounded so a hung engine cannot
// stall every tenant's ingestion forever.
func (s *TransformService) runSerialized(ctx context.Context, job domain.EngineJob) error {
	s.metrics.TransformWaiters.Inc()
	defer s.metrics.TransformWaiters.Dec()

	s.lock.Lock()
	defer s.lock.Unlock()

	runCtx := ctx
	if s.engineTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.engineTimeout)
		defer cancel()
	}
	return s.engine.Run(runCtx, job)
}

// writeRaw writes the upload verbatim as CSV into the tenant's Raw area.
func (s *TransformService) writeRaw(clientID, rawPath string, up domain.Upload) error {
	if err := s.layout.Ensure(s.layout.RawDir(clientID)); err != nil {
		return err
	}
	f, err := os.Create(rawPath)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if len(up.Header) > 0 {
		if err := w.Write(up.Header); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.WriteAll(up.Rows); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// rollback removes the target store and its sidecars so a half-built
// store is never discoverable. Missing files are fine; anything else is
// logged and the original failure still wins.
func (s *TransformService) rollback(storePath string, log *slog.Logger) {
	for _, p := range []string{storePath, layout.WALPath(storePath), layout.SharedMemPath(storePath)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Error("rollback: could not remove file", "error", err, "path", p)
		}
	}
}
