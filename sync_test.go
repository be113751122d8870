package dealersync

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/motorlot/dealersync/internal/wire"
)

// mockRemote implements remote.Client for testing.
type mockRemote struct {
	mu        sync.Mutex
	fetchFn   func(ctx context.Context, dealerID uuid.UUID, since time.Time) (*wire.Snapshot, error)
	upsertFn  func(ctx context.Context, procedure string, row json.RawMessage) error
	deleteFn  func(ctx context.Context, procedure string, id, dealerID uuid.UUID) error
	fetches   []time.Time
	upserts   []string
	deletes   []string
	deleteIDs []uuid.UUID
}

func (m *mockRemote) FetchChanges(ctx context.Context, dealerID uuid.UUID, since time.Time) (*wire.Snapshot, error) {
	m.mu.Lock()
	m.fetches = append(m.fetches, since)
	m.mu.Unlock()
	if m.fetchFn != nil {
		return m.fetchFn(ctx, dealerID, since)
	}
	return &wire.Snapshot{}, nil
}

func (m *mockRemote) Upsert(ctx context.Context, procedure string, row json.RawMessage) error {
	m.mu.Lock()
	m.upserts = append(m.upserts, procedure)
	m.mu.Unlock()
	if m.upsertFn != nil {
		return m.upsertFn(ctx, procedure, row)
	}
	return nil
}

func (m *mockRemote) Delete(ctx context.Context, procedure string, id, dealerID uuid.UUID) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, procedure)
	m.deleteIDs = append(m.deleteIDs, id)
	m.mu.Unlock()
	if m.deleteFn != nil {
		return m.deleteFn(ctx, procedure, id, dealerID)
	}
	return nil
}

func (m *mockRemote) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fetches)
}

func newTestOrchestrator(t *testing.T, client *mockRemote) (*Store, *Orchestrator, uuid.UUID) {
	t.Helper()
	store := newTestStore(t)
	dealerID := uuid.New()
	orch := NewOrchestrator(store, client, dealerID, zap.NewNop())
	return store, orch, dealerID
}

func TestSyncEmptySnapshotAdvancesCheckpoint(t *testing.T) {
	client := &mockRemote{}
	store, orch, _ := newTestOrchestrator(t, client)

	require.NoError(t, orch.Sync(context.Background()))

	checkpoint, err := store.Checkpoint()
	require.NoError(t, err)
	assert.False(t, checkpoint.IsZero())

	// First run fetches from the epoch.
	require.Len(t, client.fetches, 1)
	assert.True(t, wire.Epoch.Equal(client.fetches[0]))
}

func TestSyncDrainsQueue(t *testing.T) {
	client := &mockRemote{}
	store, orch, dealerID := newTestOrchestrator(t, client)

	require.NoError(t, store.SaveUser(User{ID: uuid.New(), DealerID: dealerID, Name: "a"}))
	require.NoError(t, store.SaveUser(User{ID: uuid.New(), DealerID: dealerID, Name: "b"}))

	require.NoError(t, orch.Sync(context.Background()))

	assert.Equal(t, []string{"sync_users", "sync_users"}, client.upserts)

	count, err := store.QueueCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSyncDeliversDeletes(t *testing.T) {
	client := &mockRemote{}
	store, orch, dealerID := newTestOrchestrator(t, client)

	c := Client{ID: uuid.New(), DealerID: dealerID, Name: "Anna", Status: "lead"}
	require.NoError(t, store.SaveClient(c))
	require.NoError(t, store.DeleteClient(c.ID, dealerID))

	require.NoError(t, orch.Sync(context.Background()))

	require.Len(t, client.deletes, 1)
	assert.Equal(t, "delete_crm_dealer_clients", client.deletes[0])
	assert.Equal(t, c.ID, client.deleteIDs[0])
}

func TestSyncPartialQueueFailure(t *testing.T) {
	client := &mockRemote{}
	store, orch, dealerID := newTestOrchestrator(t, client)

	good1 := User{ID: uuid.New(), DealerID: dealerID, Name: "good1"}
	bad := User{ID: uuid.New(), DealerID: dealerID, Name: "poison"}
	good2 := User{ID: uuid.New(), DealerID: dealerID, Name: "good2"}
	require.NoError(t, store.SaveUser(good1))
	require.NoError(t, store.SaveUser(bad))
	require.NoError(t, store.SaveUser(good2))

	client.upsertFn = func(_ context.Context, _ string, row json.RawMessage) error {
		if strings.Contains(string(row), bad.ID.String()) {
			return errors.New("backend rejected row")
		}
		return nil
	}

	// One poisoned item does not fail the pass or dam the queue.
	require.NoError(t, orch.Sync(context.Background()))

	items, err := store.Pending()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, string(items[0].Payload), bad.ID.String())
}

func TestSyncTenantGuardRetainsForeignItems(t *testing.T) {
	client := &mockRemote{}
	store := newTestStore(t)
	core, logs := observer.New(zap.WarnLevel)
	orch := NewOrchestrator(store, client, uuid.New(), zap.New(core))

	require.NoError(t, store.Enqueue(QueueItem{
		EntityType: EntityUser,
		Operation:  OpUpsert,
		Payload:    []byte(`{}`),
		DealerID:   uuid.New(), // not the orchestrator's dealer
	}))

	require.NoError(t, orch.Sync(context.Background()))

	assert.Empty(t, client.upserts)
	count, err := store.QueueCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Left untouched means not routed through the failure path either; the
	// item must not spam a delivery warning on every pass.
	assert.Zero(t, logs.Len(), "foreign-dealer items should skip quietly")
}

func TestSyncFetchFailureKeepsCheckpoint(t *testing.T) {
	client := &mockRemote{}
	store, orch, _ := newTestOrchestrator(t, client)

	before := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetCheckpoint(before))

	client.fetchFn = func(context.Context, uuid.UUID, time.Time) (*wire.Snapshot, error) {
		return nil, errors.New("network down")
	}

	err := orch.Sync(context.Background())
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)

	checkpoint, cerr := store.Checkpoint()
	require.NoError(t, cerr)
	assert.True(t, before.Equal(checkpoint))
}

func TestSyncMergeFailureKeepsCheckpoint(t *testing.T) {
	client := &mockRemote{}
	store, orch, dealerID := newTestOrchestrator(t, client)

	before := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetCheckpoint(before))

	_, err := store.db.Exec(
		`CREATE TRIGGER users_reject BEFORE INSERT ON users
		 BEGIN SELECT RAISE(ABORT, 'users table unavailable'); END`)
	require.NoError(t, err)

	user := User{ID: uuid.New(), DealerID: dealerID, Name: "unmergeable", CreatedAt: t0, UpdatedAt: t0}
	client.fetchFn = func(context.Context, uuid.UUID, time.Time) (*wire.Snapshot, error) {
		return &wire.Snapshot{Users: []wire.User{wireUser(user)}}, nil
	}

	err = orch.Sync(context.Background())
	var merr *MergeError
	require.ErrorAs(t, err, &merr)

	checkpoint, cerr := store.Checkpoint()
	require.NoError(t, cerr)
	assert.True(t, before.Equal(checkpoint))
}

func TestSyncAppliesClockDriftWindow(t *testing.T) {
	client := &mockRemote{}
	store, orch, _ := newTestOrchestrator(t, client)

	checkpoint := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetCheckpoint(checkpoint))

	require.NoError(t, orch.Sync(context.Background()))

	require.Len(t, client.fetches, 1)
	assert.True(t, checkpoint.Add(-5*time.Minute).Equal(client.fetches[0]))
}

func TestResyncFetchesFromEpoch(t *testing.T) {
	client := &mockRemote{}
	store, orch, _ := newTestOrchestrator(t, client)

	require.NoError(t, store.SetCheckpoint(time.Now()))
	require.NoError(t, orch.Resync(context.Background()))

	require.Len(t, client.fetches, 1)
	assert.True(t, wire.Epoch.Equal(client.fetches[0]))
}

func TestSyncMergesSnapshot(t *testing.T) {
	client := &mockRemote{}
	store, orch, dealerID := newTestOrchestrator(t, client)

	user := User{ID: uuid.New(), DealerID: dealerID, Name: "from remote", CreatedAt: t0, UpdatedAt: t0}
	client.fetchFn = func(context.Context, uuid.UUID, time.Time) (*wire.Snapshot, error) {
		return &wire.Snapshot{Users: []wire.User{wireUser(user)}}, nil
	}

	require.NoError(t, orch.Sync(context.Background()))

	got, err := store.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "from remote", got.Name)

	checkpoint, err := store.Checkpoint()
	require.NoError(t, err)
	assert.False(t, checkpoint.IsZero())
}

func TestSyncOffline(t *testing.T) {
	store := newTestStore(t)
	orch := NewOrchestrator(store, nil, uuid.New(), zap.NewNop())

	assert.ErrorIs(t, orch.Sync(context.Background()), ErrOffline)
}

func TestSyncConcurrentTriggerDropped(t *testing.T) {
	client := &mockRemote{}
	_, orch, _ := newTestOrchestrator(t, client)

	started := make(chan struct{})
	release := make(chan struct{})
	client.fetchFn = func(context.Context, uuid.UUID, time.Time) (*wire.Snapshot, error) {
		close(started)
		<-release
		return &wire.Snapshot{}, nil
	}

	done := make(chan error, 1)
	go func() { done <- orch.Sync(context.Background()) }()

	<-started
	assert.Equal(t, PhaseSyncing, orch.State().Phase)

	// A trigger while a pass runs is a cheap no-op.
	require.NoError(t, orch.Sync(context.Background()))
	assert.Equal(t, 1, client.fetchCount())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseIdle, orch.State().Phase)
}

func TestSyncStateTransitions(t *testing.T) {
	client := &mockRemote{}
	_, orch, _ := newTestOrchestrator(t, client)

	states := orch.Subscribe()
	require.NoError(t, orch.Sync(context.Background()))

	var phases []SyncPhase
	for len(phases) < 3 {
		select {
		case s := <-states:
			phases = append(phases, s.Phase)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for state transitions, got %v", phases)
		}
	}
	assert.Equal(t, []SyncPhase{PhaseSyncing, PhaseSuccess, PhaseIdle}, phases)
}

func TestSyncStateKeepsLastOutcome(t *testing.T) {
	client := &mockRemote{}
	_, orch, _ := newTestOrchestrator(t, client)

	client.fetchFn = func(context.Context, uuid.UUID, time.Time) (*wire.Snapshot, error) {
		return nil, errors.New("network down")
	}
	require.Error(t, orch.Sync(context.Background()))

	// The phase settles to Idle but a poller still sees the failure.
	state := orch.State()
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Equal(t, PhaseFailure, state.Outcome)
	assert.Contains(t, state.Message, "network down")

	client.fetchFn = nil
	require.NoError(t, orch.Sync(context.Background()))

	state = orch.State()
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Equal(t, PhaseSuccess, state.Outcome)
	assert.Empty(t, state.Message)
}

func TestDiagnostics(t *testing.T) {
	client := &mockRemote{}
	store, orch, dealerID := newTestOrchestrator(t, client)

	require.NoError(t, store.SaveUser(User{ID: uuid.New(), DealerID: dealerID, Name: "local only"}))

	remoteUser := User{ID: uuid.New(), DealerID: dealerID, Name: "remote only", CreatedAt: t0, UpdatedAt: t0}
	client.fetchFn = func(context.Context, uuid.UUID, time.Time) (*wire.Snapshot, error) {
		return &wire.Snapshot{Users: []wire.User{wireUser(remoteUser)}}, nil
	}

	report, err := orch.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.RemoteFetchError)
	assert.Equal(t, 1, report.QueueSummary.Total)
	assert.False(t, report.Syncing)

	var userCount *EntityCount
	for i := range report.EntityCounts {
		if report.EntityCounts[i].Entity == EntityUser {
			userCount = &report.EntityCounts[i]
		}
	}
	require.NotNil(t, userCount)
	assert.Equal(t, 1, userCount.LocalCount)
	require.NotNil(t, userCount.RemoteCount)
	assert.Equal(t, 1, *userCount.RemoteCount)
}

func TestDiagnosticsOffline(t *testing.T) {
	store := newTestStore(t)
	orch := NewOrchestrator(store, nil, uuid.New(), zap.NewNop())

	report, err := orch.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ErrOffline.Error(), report.RemoteFetchError)
	require.NotEmpty(t, report.EntityCounts)
	assert.Nil(t, report.EntityCounts[0].RemoteCount)
}

func TestDiagnosticsFetchFailure(t *testing.T) {
	client := &mockRemote{}
	_, orch, _ := newTestOrchestrator(t, client)

	client.fetchFn = func(context.Context, uuid.UUID, time.Time) (*wire.Snapshot, error) {
		return nil, errors.New("boom")
	}

	report, err := orch.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.RemoteFetchError, "boom")
}
