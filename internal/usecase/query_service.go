package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mekarlab/payrollgate/internal/adapter/layout"
	"github.com/mekarlab/payrollgate/internal/adapter/metrics"
	"github.com/mekarlab/payrollgate/internal/domain"
)

// Listing enumerates a tenant's uploaded and transformed files.
type Listing struct {
	RawFiles   []string
	CleanFiles []string
}

// QueryService answers read requests against a tenant's Clean Stores.
type QueryService struct {
	layout  *layout.Layout
	store   domain.AnalyticalStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewQueryService creates a QueryService.
func NewQueryService(l *layout.Layout, store domain.AnalyticalStore, logger *slog.Logger, m *metrics.Metrics) *QueryService {
	return &QueryService{layout: l, store: store, logger: logger, metrics: m}
}

// Fetch executes the fixed template for action against the named store.
// When save is set the full result is also archived into the tenant's
// Downloads area; archival is best-effort and never fails the response.
func (s *QueryService) Fetch(ctx context.Context, tenant *domain.Tenant, action domain.Action, targetStore string, save bool) (*domain.Table, error) {
	storePath := s.layout.StorePath(tenant.ClientID, targetStore)

	table, err := s.store.Query(ctx, storePath, tenant.Industry, action)
	if err != nil {
		s.logger.Error("query failed",
			"client_id", tenant.ClientID, "action", action.String(),
			"store", targetStore, "error", err)
		return nil, err
	}

	if save {
		if err := s.archive(tenant.ClientID, targetStore, action, table); err != nil {
			// Warn and continue: the tenant still gets their data even
			// when the Downloads copy cannot be written.
			s.metrics.ArchiveFailures.Inc()
			s.logger.Warn("downloads archival failed",
				"client_id", tenant.ClientID, "store", targetStore, "error", err)
		}
	}

	return table, nil
}

// ListFiles returns the tenant's Raw uploads and Clean Stores, sorted.
// Areas that do not exist yet yield empty listings.
func (s *QueryService) ListFiles(ctx context.Context, tenant *domain.Tenant) (*Listing, error) {
	clean, err := s.store.List(s.layout.CleanDir(tenant.ClientID))
	if err != nil {
		return nil, err
	}
	raw, err := listDir(s.layout.RawDir(tenant.ClientID))
	if err != nil {
		return nil, err
	}
	return &Listing{RawFiles: raw, CleanFiles: clean}, nil
}

// archive writes the result as a flat CSV into Downloads, named from
// the target store and the action performed.
func (s *QueryService) archive(clientID, targetStore string, action domain.Action, table *domain.Table) error {
	if err := s.layout.Ensure(s.layout.DownloadsDir(clientID)); err != nil {
		return err
	}
	base := strings.TrimSuffix(targetStore, layout.StoreExt)
	name := fmt.Sprintf("%s_%s.csv", base, action.String())
	path := s.layout.DownloadPath(clientID, name)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(table.Columns); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		_ = f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.logger.Info("result archived", "client_id", clientID, "path", layout.Canonical(path))
	return nil
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
