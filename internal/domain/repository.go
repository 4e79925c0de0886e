package domain

import "context"

// CredentialStore verifies tenant credentials against the externally
// managed registry.
type CredentialStore interface {
	// Verify reports whether the supplied password matches the stored
	// digest for client_id AND the tenant's storage root exists on disk.
	// It returns false (not an error) for an unknown client_id or a
	// mismatched password.
	Verify(ctx context.Context, clientID, password string) (bool, error)

	// Lookup returns the tenant record for client_id.
	Lookup(ctx context.Context, clientID string) (*Tenant, error)
}

// TransformEngine runs the external batch-transformation engine to
// completion. Implementations must respect ctx cancellation so a hung
// engine cannot hold the transform lock forever.
type TransformEngine interface {
	Run(ctx context.Context, job EngineJob) error
}

// AnalyticalStore is the per-tenant store produced by the engine.
type AnalyticalStore interface {
	// Query opens the store at storePath (write-capable first, falling
	// back to read-only) and executes the fixed template for action,
	// scoped to industry.
	Query(ctx context.Context, storePath, industry string, action Action) (*Table, error)

	// Checkpoint merges the store's pending write-ahead log into the
	// primary file and compacts it.
	Checkpoint(ctx context.Context, storePath string) error

	// List returns the store filenames directly under dir, sorted
	// lexicographically. A missing dir yields an empty listing, not an
	// error.
	List(dir string) ([]string, error)
}
