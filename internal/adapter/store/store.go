// Package store is the connector to the per-tenant analytical store
// files produced by the transformation engine.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mekarlab/payrollgate/internal/adapter/layout"
	"github.com/mekarlab/payrollgate/internal/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// template fixes the query shapes per industry. Queries are never built
// from caller text; only the industry (which comes from the registry,
// not the request) selects identifiers.
type template struct {
	factTable string
	sortCol   string
	groupCol  string
	moneyCol  string
}

var industryTemplates = map[string]template{
	"corporate": {factTable: "fct_corporate", sortCol: "job_title", groupCol: "job_title", moneyCol: "base_pay"},
	"education": {factTable: "fct_education", sortCol: "job_title", groupCol: "job_title", moneyCol: "base_pay"},
	"hospital":  {factTable: "fct_hospital", sortCol: "job_title", groupCol: "job_title", moneyCol: "base_pay"},
}

// Connector opens store files on demand; it holds no long-lived
// connections.
type Connector struct {
	logger *slog.Logger
}

// New creates a store Connector.
func New(logger *slog.Logger) *Connector {
	return &Connector{logger: logger}
}

// open tries a write-capable connection first, then falls back to
// read-only when another process holds the write lock. The store file
// must already exist: mode=rw never creates one.
func (c *Connector) open(ctx context.Context, storePath string) (*sql.DB, error) {
	if _, err := os.Stat(storePath); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, storePath)
	}

	var firstErr error
	for _, mode := range []string{"rw", "ro"} {
		dsn := "file:" + storePath + "?mode=" + mode + "&_pragma=busy_timeout(5000)"
		db, err := sql.Open("sqlite", dsn)
		if err == nil {
			// sql.Open is lazy; force the real open now.
			err = db.PingContext(ctx)
			if err == nil {
				return db, nil
			}
			_ = db.Close()
		}
		if firstErr == nil {
			firstErr = err
		}
		if mode == "rw" {
			c.logger.Debug("write-capable open failed, retrying read-only",
				"store", storePath, "error", err)
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, storePath, firstErr)
}

// Query implements domain.AnalyticalStore.
func (c *Connector) Query(ctx context.Context, storePath, industry string, action domain.Action) (*domain.Table, error) {
	tmpl, ok := industryTemplates[industry]
	if !ok {
		return nil, fmt.Errorf("no query template for industry %q", industry)
	}

	var q string
	switch action {
	case domain.ActionFullExport:
		q = fmt.Sprintf("SELECT * FROM %s ORDER BY %s", tmpl.factTable, tmpl.sortCol)
	case domain.ActionBudgetSummary:
		q = fmt.Sprintf(
			"SELECT %[1]s, COUNT(*) AS total_emp, SUM(%[2]s) AS total_spend FROM %[3]s GROUP BY %[1]s ORDER BY total_spend DESC",
			tmpl.groupCol, tmpl.moneyCol, tmpl.factTable,
		)
	default:
		return nil, fmt.Errorf("%w: %s is not a query action", domain.ErrUnknownAction, action)
	}

	db, err := c.open(ctx, storePath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", storePath, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	table := &domain.Table{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = formatValue(v)
		}
		table.Rows = append(table.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return table, nil
}

// openWrite demands a write-capable connection, no read-only fallback.
// SQLite silently downgrades mode=rw on a write-protected file, so a
// throwaway write transaction proves the handle can actually write.
func (c *Connector) openWrite(ctx context.Context, storePath string) (*sql.DB, error) {
	if _, err := os.Stat(storePath); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreUnavailable, storePath)
	}

	dsn := "file:" + storePath + "?mode=rw&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, storePath, err)
	}
	conn, err := db.Conn(ctx)
	if err == nil {
		_, err = conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			_, err = conn.ExecContext(ctx, "ROLLBACK")
		}
		_ = conn.Close()
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s not writable: %v", domain.ErrStoreUnavailable, storePath, err)
	}
	return db, nil
}

// Checkpoint implements domain.AnalyticalStore: merge the pending WAL
// into the primary file, then compact it. Runs outside the transform
// lock, after the engine has exited. Both statements mutate the file,
// so a store we cannot write to is unavailable, not checkpoint-failed.
func (c *Connector) Checkpoint(ctx context.Context, storePath string) error {
	db, err := c.openWrite(ctx, storePath)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("%w: wal_checkpoint: %v", domain.ErrCheckpointFailure, err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("%w: vacuum: %v", domain.ErrCheckpointFailure, err)
	}
	return nil
}

// List implements domain.AnalyticalStore: store filenames under dir,
// sorted. A tenant that has never ingested simply has no Clean dir yet,
// which is an empty listing, not an error.
func (c *Connector) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), layout.StoreExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
