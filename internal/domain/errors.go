package domain

import "errors"

// Error taxonomy for the orchestration layer. Callers wrap these with
// fmt.Errorf("...: %w", ...) and the router maps them onto transport
// status codes; nothing below is ever swallowed silently.
var (
	// ErrAuthenticationFailed covers a wrong password, an unknown
	// client_id, or both. The caller is told no more than that.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrCredentialsUnavailable means the tenant registry itself could
	// not be read, which is an operator problem, not a caller problem.
	ErrCredentialsUnavailable = errors.New("credentials unavailable")

	// ErrTenantInfrastructureMissing means the tenant exists in the
	// registry but its storage tree was never provisioned.
	ErrTenantInfrastructureMissing = errors.New("tenant storage not provisioned")

	// ErrPolicyViolation is the filename/industry mismatch gate.
	ErrPolicyViolation = errors.New("filename does not match tenant industry")

	// ErrRawPersistFailure means the raw snapshot could not be written.
	ErrRawPersistFailure = errors.New("raw snapshot persist failed")

	// ErrEngineFailure wraps any failure of the external transformation
	// engine, including a timed-out invocation.
	ErrEngineFailure = errors.New("transformation engine failed")

	// ErrCheckpointFailure means the post-transform durability pass
	// (checkpoint + compact) failed; the half-built store is rolled back.
	ErrCheckpointFailure = errors.New("store checkpoint failed")

	// ErrStoreUnavailable means the analytical store could not be opened
	// in either write or read-only mode, or does not exist at all.
	ErrStoreUnavailable = errors.New("analytical store unavailable")

	// ErrUnknownAction is returned for a request verb outside the closed
	// Action set.
	ErrUnknownAction = errors.New("unknown action")
)
