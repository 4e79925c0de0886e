package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mekarlab/payrollgate/internal/adapter/layout"
	"github.com/mekarlab/payrollgate/internal/domain"
)

func newTestRegistry(t *testing.T, users string) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "users.json")
	if users != "" {
		if err := os.WriteFile(path, []byte(users), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	lay, err := layout.New(filepath.Join(dir, "storage"))
	if err != nil {
		t.Fatal(err)
	}
	return New(path, lay, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func provisionTenant(t *testing.T, dir, clientID string) {
	t.Helper()
	for _, sub := range []string{"Raw", "Clean", "Downloads"} {
		if err := os.MkdirAll(filepath.Join(dir, "storage", clientID, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRegistry_Verify(t *testing.T) {
	users := `{
		"acme": {"password_hash": "` + HashPassword("s3cret") + `", "industry": "corporate", "company_name": "PT Acme"},
		"ghost": {"password_hash": "` + HashPassword("boo") + `", "industry": "education", "company_name": "Ghost U"}
	}`

	t.Run("Valid Credentials And Provisioned Root", func(t *testing.T) {
		r, dir := newTestRegistry(t, users)
		provisionTenant(t, dir, "acme")

		ok, err := r.Verify(context.Background(), "acme", "s3cret")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok {
			t.Error("expected verification to succeed")
		}
	})

	t.Run("Password Is Trimmed Before Hashing", func(t *testing.T) {
		r, dir := newTestRegistry(t, users)
		provisionTenant(t, dir, "acme")

		ok, err := r.Verify(context.Background(), "acme", "  s3cret \n")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok {
			t.Error("expected surrounding whitespace to be ignored")
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		r, dir := newTestRegistry(t, users)
		provisionTenant(t, dir, "acme")

		ok, err := r.Verify(context.Background(), "acme", "wrong")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ok {
			t.Error("expected verification to fail")
		}
	})

	t.Run("Unknown Client", func(t *testing.T) {
		r, _ := newTestRegistry(t, users)

		ok, err := r.Verify(context.Background(), "nobody", "s3cret")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ok {
			t.Error("expected verification to fail")
		}
	})

	t.Run("Credentials Match Without Storage Root", func(t *testing.T) {
		// Verify answers only the credential question; the storage tree
		// is Lookup's concern.
		r, _ := newTestRegistry(t, users) // ghost's tree never provisioned

		ok, err := r.Verify(context.Background(), "ghost", "boo")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !ok {
			t.Error("expected a password match regardless of provisioning")
		}
	})

	t.Run("Missing Registry File", func(t *testing.T) {
		r, _ := newTestRegistry(t, "")

		_, err := r.Verify(context.Background(), "acme", "s3cret")
		if !errors.Is(err, domain.ErrCredentialsUnavailable) {
			t.Fatalf("expected ErrCredentialsUnavailable, got %v", err)
		}
	})
}

func TestRegistry_Lookup(t *testing.T) {
	users := `{"acme": {"password_hash": "x", "industry": "corporate", "company_name": "PT Acme"}}`

	t.Run("Known Client", func(t *testing.T) {
		r, dir := newTestRegistry(t, users)
		provisionTenant(t, dir, "acme")

		tenant, err := r.Lookup(context.Background(), "acme")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tenant.Industry != "corporate" || tenant.CompanyName != "PT Acme" {
			t.Errorf("unexpected tenant record: %+v", tenant)
		}
	})

	t.Run("Unprovisioned Tenant", func(t *testing.T) {
		r, _ := newTestRegistry(t, users) // registry record exists, tree does not

		_, err := r.Lookup(context.Background(), "acme")
		if !errors.Is(err, domain.ErrTenantInfrastructureMissing) {
			t.Fatalf("expected ErrTenantInfrastructureMissing, got %v", err)
		}
	})

	t.Run("Unknown Client", func(t *testing.T) {
		r, _ := newTestRegistry(t, users)

		_, err := r.Lookup(context.Background(), "nobody")
		if !errors.Is(err, domain.ErrAuthenticationFailed) {
			t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
		}
	})
}
