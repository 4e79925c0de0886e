package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mekarlab/payrollgate/internal/adapter/layout"
	"github.com/mekarlab/payrollgate/internal/adapter/metrics"
	"github.com/mekarlab/payrollgate/internal/domain"
	"github.com/mekarlab/payrollgate/internal/domain/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var acme = &domain.Tenant{ClientID: "acme", Industry: "corporate", CompanyName: "PT Acme"}

func newTransformFixture(t *testing.T, eng *mocks.MockEngine, st *mocks.MockStore) (*TransformService, *layout.Layout) {
	t.Helper()
	lay, err := layout.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewTransformService(lay, eng, st, testLogger(), m, time.Minute, 0, nil)
	return svc, lay
}

// touchStore mimics the engine materializing the target store file.
func touchStore(t *testing.T) func(job domain.EngineJob) error {
	t.Helper()
	return func(job domain.EngineJob) error {
		if err := os.WriteFile(job.StorePath, []byte("store"), 0o644); err != nil {
			return err
		}
		return os.WriteFile(layout.WALPath(job.StorePath), []byte("wal"), 0o644)
	}
}

func TestTransformService_Ingest(t *testing.T) {
	upload := domain.Upload{
		Filename: "corp_payroll_corporate.csv",
		Header:   []string{"employee_id", "job_title", "base_pay"},
		Rows:     [][]string{{"1", "Engineer", "5000"}, {"2", "Analyst", "3000"}},
	}

	t.Run("Successful Ingestion", func(t *testing.T) {
		eng := &mocks.MockEngine{OnRun: touchStore(t)}
		st := &mocks.MockStore{}
		svc, lay := newTransformFixture(t, eng, st)

		store, err := svc.Ingest(context.Background(), acme, upload)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store != "acme_corporate_corp_payroll_corporate.db" {
			t.Errorf("unexpected store name %q", store)
		}

		rawPath := lay.RawPath("acme", upload.Filename)
		if _, err := os.Stat(rawPath); err != nil {
			t.Errorf("raw snapshot missing: %v", err)
		}
		if _, err := os.Stat(lay.StorePath("acme", store)); err != nil {
			t.Errorf("clean store missing: %v", err)
		}
		if len(st.Checkpointed) != 1 {
			t.Errorf("expected one checkpoint pass, got %d", len(st.Checkpointed))
		}
		if len(eng.Jobs) != 1 {
			t.Fatalf("expected one engine job, got %d", len(eng.Jobs))
		}
		if eng.Jobs[0].RawPath != rawPath {
			t.Errorf("engine read from %q, want %q", eng.Jobs[0].RawPath, rawPath)
		}
	})

	t.Run("Policy Violation Writes Nothing", func(t *testing.T) {
		eng := &mocks.MockEngine{}
		svc, lay := newTransformFixture(t, eng, &mocks.MockStore{})

		bad := upload
		bad.Filename = "education_report.csv"
		_, err := svc.Ingest(context.Background(), acme, bad)
		if !errors.Is(err, domain.ErrPolicyViolation) {
			t.Fatalf("expected ErrPolicyViolation, got %v", err)
		}
		if len(eng.Jobs) != 0 {
			t.Error("engine must not run after a policy rejection")
		}
		if _, err := os.Stat(lay.RawDir("acme")); !os.IsNotExist(err) {
			t.Error("no raw file may be written before the policy check passes")
		}
	})

	t.Run("Policy Check Is Case Insensitive", func(t *testing.T) {
		eng := &mocks.MockEngine{OnRun: touchStore(t)}
		svc, _ := newTransformFixture(t, eng, &mocks.MockStore{})

		up := upload
		up.Filename = "CORPORATE_payroll.csv"
		if _, err := svc.Ingest(context.Background(), acme, up); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Engine Failure Rolls Back Store But Keeps Raw", func(t *testing.T) {
		eng := &mocks.MockEngine{OnRun: touchStore(t), RunErr: errors.New("model blew up")}
		svc, lay := newTransformFixture(t, eng, &mocks.MockStore{})

		_, err := svc.Ingest(context.Background(), acme, upload)
		if !errors.Is(err, domain.ErrEngineFailure) {
			t.Fatalf("expected ErrEngineFailure, got %v", err)
		}

		storePath := lay.StorePath("acme", layout.StoreName("acme", "corporate", upload.Filename))
		if _, err := os.Stat(storePath); !os.IsNotExist(err) {
			t.Error("half-built store must be removed")
		}
		if _, err := os.Stat(layout.WALPath(storePath)); !os.IsNotExist(err) {
			t.Error("store WAL sidecar must be removed")
		}
		if _, err := os.Stat(lay.RawPath("acme", upload.Filename)); err != nil {
			t.Error("raw snapshot is the audit trail and must be retained")
		}
	})

	t.Run("Checkpoint Failure Rolls Back Store", func(t *testing.T) {
		eng := &mocks.MockEngine{OnRun: touchStore(t)}
		st := &mocks.MockStore{CheckpointErr: errors.New("disk full")}
		svc, lay := newTransformFixture(t, eng, st)

		_, err := svc.Ingest(context.Background(), acme, upload)
		if !errors.Is(err, domain.ErrCheckpointFailure) {
			t.Fatalf("expected ErrCheckpointFailure, got %v", err)
		}
		storePath := lay.StorePath("acme", layout.StoreName("acme", "corporate", upload.Filename))
		if _, err := os.Stat(storePath); !os.IsNotExist(err) {
			t.Error("store must be rolled back after a failed checkpoint")
		}
	})

	t.Run("Clean Area Failure Is Not A Raw Persist Failure", func(t *testing.T) {
		eng := &mocks.MockEngine{}
		svc, lay := newTransformFixture(t, eng, &mocks.MockStore{})

		// Occupy the Clean path with a file so the directory cannot be
		// created; the raw snapshot must still land first.
		if err := os.MkdirAll(lay.Root("acme"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(lay.CleanDir("acme"), []byte("squatter"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := svc.Ingest(context.Background(), acme, upload)
		if err == nil {
			t.Fatal("expected an error")
		}
		if errors.Is(err, domain.ErrRawPersistFailure) {
			t.Errorf("clean-area failure mislabeled as raw persist failure: %v", err)
		}
		if _, statErr := os.Stat(lay.RawPath("acme", upload.Filename)); statErr != nil {
			t.Error("raw snapshot must already be persisted")
		}
		if len(eng.Jobs) != 0 {
			t.Error("engine must not run without a clean area")
		}
	})

	t.Run("Engine Timeout Surfaces As EngineFailure", func(t *testing.T) {
		lay, err := layout.New(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		eng := &mocks.MockEngine{Sleep: time.Second}
		m := metrics.New(prometheus.NewRegistry())
		svc := NewTransformService(lay, eng, &mocks.MockStore{}, testLogger(), m, 20*time.Millisecond, 0, nil)

		_, err = svc.Ingest(context.Background(), acme, upload)
		if !errors.Is(err, domain.ErrEngineFailure) {
			t.Fatalf("expected ErrEngineFailure on timeout, got %v", err)
		}
	})
}

func TestTransformService_SerializesEngineInvocations(t *testing.T) {
	eng := &mocks.MockEngine{OnRun: touchStore(t), Sleep: 50 * time.Millisecond}
	svc, _ := newTransformFixture(t, eng, &mocks.MockStore{})

	tenants := []*domain.Tenant{
		{ClientID: "acme", Industry: "corporate"},
		{ClientID: "uni01", Industry: "corporate"},
	}

	var wg sync.WaitGroup
	for _, tenant := range tenants {
		wg.Add(1)
		go func(tn *domain.Tenant) {
			defer wg.Done()
			up := domain.Upload{
				Filename: "corporate_data.csv",
				Header:   []string{"a"},
				Rows:     [][]string{{"1"}},
			}
			if _, err := svc.Ingest(context.Background(), tn, up); err != nil {
				t.Errorf("ingest for %s: %v", tn.ClientID, err)
			}
		}(tenant)
	}
	wg.Wait()

	if len(eng.Windows) != 2 {
		t.Fatalf("expected 2 engine runs, got %d", len(eng.Windows))
	}
	a, b := eng.Windows[0], eng.Windows[1]
	if a[1].After(b[0]) && b[1].After(a[0]) {
		t.Errorf("engine invocation windows overlap: %v vs %v", a, b)
	}
}

func TestTransformService_StoreNameRoundTrip(t *testing.T) {
	// The name returned to the uploader must resolve back to the file
	// the engine produced when passed as target_store later.
	eng := &mocks.MockEngine{OnRun: touchStore(t)}
	svc, lay := newTransformFixture(t, eng, &mocks.MockStore{})

	up := domain.Upload{Filename: "corporate_q3.csv", Header: []string{"a"}, Rows: [][]string{{"1"}}}
	name, err := svc.Ingest(context.Background(), acme, up)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(eng.Jobs[0].StorePath) != name {
		t.Errorf("engine wrote %q but caller was told %q", eng.Jobs[0].StorePath, name)
	}
	if lay.StorePath("acme", name) != eng.Jobs[0].StorePath {
		t.Errorf("target_store does not resolve to the produced file")
	}
}
