// Package registry implements the credential store over the tenant
// registry file maintained by the external admin tool.
package registry

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mekarlab/payrollgate/internal/adapter/layout"
	"github.com/mekarlab/payrollgate/internal/domain"
)

// Registry reads the users file on every call. The file is small, owned
// by the admin tool, and may change between requests, so nothing is
// cached here.
type Registry struct {
	path   string
	layout *layout.Layout
	logger *slog.Logger
}

// New creates a Registry backed by the users file at path. The layout is
// used by Lookup to confirm a tenant's storage root was provisioned.
func New(path string, l *layout.Layout, logger *slog.Logger) *Registry {
	return &Registry{path: path, layout: l, logger: logger}
}

type record struct {
	PasswordHash string `json:"password_hash"`
	Industry     string `json:"industry"`
	CompanyName  string `json:"company_name"`
}

func (r *Registry) load() (map[string]record, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrCredentialsUnavailable, r.path, err)
	}
	users := make(map[string]record)
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrCredentialsUnavailable, r.path, err)
	}
	return users, nil
}

// Verify implements domain.CredentialStore. A password matches when its
// sha256 hex digest equals the stored digest byte for byte; the digest
// is unsalted because the admin tool stores it verbatim and it must be
// stable across restarts.
func (r *Registry) Verify(ctx context.Context, clientID, password string) (bool, error) {
	users, err := r.load()
	if err != nil {
		return false, err
	}

	rec, ok := users[clientID]
	if !ok {
		return false, nil
	}

	sum := sha256.Sum256([]byte(strings.TrimSpace(password)))
	digest := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(digest), []byte(rec.PasswordHash)) == 1, nil
}

// Lookup implements domain.CredentialStore. A registered tenant whose
// storage root was never provisioned by the admin tool is a distinct
// failure from bad credentials: the record is fine, the tree is not.
func (r *Registry) Lookup(ctx context.Context, clientID string) (*domain.Tenant, error) {
	users, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := users[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown client %q", domain.ErrAuthenticationFailed, clientID)
	}
	if _, err := os.Stat(r.layout.Root(clientID)); err != nil {
		r.logger.Warn("tenant registered but storage root missing",
			"client_id", clientID, "root", r.layout.Root(clientID))
		return nil, fmt.Errorf("%w: no storage root for %q", domain.ErrTenantInfrastructureMissing, clientID)
	}
	return &domain.Tenant{
		ClientID:     clientID,
		PasswordHash: rec.PasswordHash,
		Industry:     rec.Industry,
		CompanyName:  rec.CompanyName,
	}, nil
}

// HashPassword returns the digest form stored in the registry. Exposed
// for the admin tooling and tests.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(password)))
	return hex.EncodeToString(sum[:])
}
