package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/mekarlab/payrollgate/internal/domain"
)

// MockCredentialStore is a mock implementation of domain.CredentialStore
// for testing.
type MockCredentialStore struct {
	Tenants   map[string]*domain.Tenant
	Valid     map[string]string // client_id -> accepted password
	VerifyErr error
	LookupErr error
}

func (m *MockCredentialStore) Verify(ctx context.Context, clientID, password string) (bool, error) {
	if m.VerifyErr != nil {
		return false, m.VerifyErr
	}
	want, ok := m.Valid[clientID]
	return ok && want == password, nil
}

func (m *MockCredentialStore) Lookup(ctx context.Context, clientID string) (*domain.Tenant, error) {
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	t, ok := m.Tenants[clientID]
	if !ok {
		return nil, domain.ErrAuthenticationFailed
	}
	return t, nil
}

// MockEngine is a mock implementation of domain.TransformEngine. It
// records the wall-clock window of every invocation so tests can assert
// that runs never overlap.
type MockEngine struct {
	mu      sync.Mutex
	Jobs    []domain.EngineJob
	Windows [][2]time.Time
	RunErr  error
	Sleep   time.Duration
	// OnRun, when set, runs inside the invocation (e.g. to create the
	// target store file the way the real engine would).
	OnRun func(job domain.EngineJob) error
}

func (m *MockEngine) Run(ctx context.Context, job domain.EngineJob) error {
	start := time.Now()
	if m.Sleep > 0 {
		select {
		case <-time.After(m.Sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	var err error
	if m.OnRun != nil {
		err = m.OnRun(job)
	}
	m.mu.Lock()
	m.Jobs = append(m.Jobs, job)
	m.Windows = append(m.Windows, [2]time.Time{start, time.Now()})
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.RunErr
}

// MockStore is a mock implementation of domain.AnalyticalStore.
type MockStore struct {
	mu            sync.Mutex
	QueryResult   *domain.Table
	QueryErr      error
	CheckpointErr error
	Checkpointed  []string
	ListResult    []string
	ListErr       error
}

func (m *MockStore) Query(ctx context.Context, storePath, industry string, action domain.Action) (*domain.Table, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.QueryResult, nil
}

func (m *MockStore) Checkpoint(ctx context.Context, storePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CheckpointErr != nil {
		return m.CheckpointErr
	}
	m.Checkpointed = append(m.Checkpointed, storePath)
	return nil
}

func (m *MockStore) List(dir string) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.ListResult, nil
}
