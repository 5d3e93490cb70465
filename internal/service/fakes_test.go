package service

import (
	"context"
	"sync"
	"testing"

	"github.com/prperemyshlev/guild-rejoin/internal/domain"
	"github.com/prperemyshlev/guild-rejoin/internal/repository"
	"github.com/prperemyshlev/guild-rejoin/pkg/observability"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type fakeUserRepository struct {
	mu       sync.Mutex
	ids      []string
	listErr  error
	getErr   error
	lookups  int
	upserted []*domain.User
}

func (r *fakeUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, user)
	return nil
}

func (r *fakeUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.getErr != nil {
		return nil, r.getErr
	}
	for _, u := range r.upserted {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepository) ListIDs(ctx context.Context) ([]string, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.ids, nil
}

type fakeCredentialRepository struct {
	mu          sync.Mutex
	credentials map[string]*domain.Credential
	getErr      error
	upserts     int
}

func newFakeCredentialRepository() *fakeCredentialRepository {
	return &fakeCredentialRepository{credentials: make(map[string]*domain.Credential)}
}

func (r *fakeCredentialRepository) Upsert(ctx context.Context, credential *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *credential
	r.credentials[credential.UserID] = &stored
	r.upserts++
	return nil
}

func (r *fakeCredentialRepository) GetByUserID(ctx context.Context, userID string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	credential, ok := r.credentials[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stored := *credential
	return &stored, nil
}

type fakeJoinAttemptRepository struct {
	mu       sync.Mutex
	attempts []*domain.JoinAttempt
}

func (r *fakeJoinAttemptRepository) Create(ctx context.Context, attempt *domain.JoinAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt.ID = int64(len(r.attempts) + 1)
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *fakeJoinAttemptRepository) ListByRunID(ctx context.Context, runID string) ([]*domain.JoinAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.JoinAttempt
	for _, a := range r.attempts {
		if a.RunID == runID {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockGranter struct {
	mock.Mock
}

func (m *mockGranter) Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	args := m.Called(ctx, refreshToken)
	if tokens := args.Get(0); tokens != nil {
		return tokens.(*domain.TokenSet), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMembershipClient struct {
	mock.Mock
}

func (m *mockMembershipClient) AddGuildMember(ctx context.Context, guildID, userID, accessToken string) (domain.MembershipStatus, error) {
	args := m.Called(ctx, guildID, userID, accessToken)
	return args.Get(0).(domain.MembershipStatus), args.Error(1)
}

func (m *mockMembershipClient) SendDirectMessage(ctx context.Context, userID, content string) error {
	args := m.Called(ctx, userID, content)
	return args.Error(0)
}

type fakeLease struct {
	lost     chan struct{}
	released bool
}

func (l *fakeLease) Lost() <-chan struct{} {
	return l.lost
}

func (l *fakeLease) Release(ctx context.Context) error {
	l.released = true
	return nil
}

type fakeRunLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	lease *fakeLease
}

func newFakeRunLocker() *fakeRunLocker {
	return &fakeRunLocker{held: make(map[string]bool)}
}

func (l *fakeRunLocker) Acquire(ctx context.Context, guildID string) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[guildID] {
		return nil, ErrRunInProgress
	}
	if l.lease == nil {
		l.lease = &fakeLease{lost: make(chan struct{})}
	}
	return l.lease, nil
}

type countingLimiter struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return ctx.Err()
}

func (l *countingLimiter) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func testMetrics(t *testing.T) *observability.ReconcileMetrics {
	t.Helper()
	metrics, err := observability.NewReconcileMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return metrics
}
