package dealersync

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueOrderIsCreationOrder(t *testing.T) {
	store := newTestStore(t)
	dealerID := uuid.New()

	var saved []uuid.UUID
	for i := 0; i < 5; i++ {
		u := User{ID: uuid.New(), DealerID: dealerID, Name: "user"}
		require.NoError(t, store.SaveUser(u))
		saved = append(saved, u.ID)
	}

	items, err := store.Pending()
	require.NoError(t, err)
	require.Len(t, items, 5)

	for i, item := range items {
		assert.Equal(t, EntityUser, item.EntityType)
		assert.Equal(t, OpUpsert, item.Operation)
		assert.Contains(t, string(item.Payload), saved[i].String(),
			"item %d should carry the %d-th saved user", i, i)
	}
}

func TestEnqueueFillsDefaults(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Enqueue(QueueItem{
		EntityType: EntityDebt,
		Operation:  OpUpsert,
		Payload:    []byte(`{}`),
		DealerID:   uuid.New(),
	}))

	items, err := store.Pending()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotEmpty(t, items[0].ID)
	assert.False(t, items[0].CreatedAt.IsZero())
}

func TestEnqueueRejectsUnknownEntity(t *testing.T) {
	store := newTestStore(t)

	err := store.Enqueue(QueueItem{EntityType: "appointment", Operation: OpUpsert})
	assert.ErrorIs(t, err, ErrUnknownEntityType)
}

func TestRemoveQueued(t *testing.T) {
	store := newTestStore(t)
	dealerID := uuid.New()

	require.NoError(t, store.SaveUser(User{ID: uuid.New(), DealerID: dealerID, Name: "a"}))
	require.NoError(t, store.SaveUser(User{ID: uuid.New(), DealerID: dealerID, Name: "b"}))

	items, err := store.Pending()
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, store.RemoveQueued(items[0].ID))

	remaining, err := store.Pending()
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, items[1].ID, remaining[0].ID)
}

func TestQueueSummary(t *testing.T) {
	store := newTestStore(t)
	dealerID := uuid.New()

	u := User{ID: uuid.New(), DealerID: dealerID, Name: "a"}
	require.NoError(t, store.SaveUser(u))
	require.NoError(t, store.SaveUser(User{ID: uuid.New(), DealerID: dealerID, Name: "b"}))
	require.NoError(t, store.DeleteUser(u.ID, dealerID))

	summary, err := store.QueueSummary()
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.ByType[EntityUser])
	assert.Equal(t, 2, summary.ByOp[OpUpsert])
	assert.Equal(t, 1, summary.ByOp[OpDelete])
}

func TestPendingDeleteIDs(t *testing.T) {
	store := newTestStore(t)
	dealerID := uuid.New()
	otherDealer := uuid.New()

	v := testVehicle(dealerID)
	require.NoError(t, store.SaveVehicle(v))
	require.NoError(t, store.DeleteVehicle(v.ID, dealerID))

	other := testVehicle(otherDealer)
	require.NoError(t, store.SaveVehicle(other))
	require.NoError(t, store.DeleteVehicle(other.ID, otherDealer))

	pending, err := store.PendingDeleteIDs(dealerID)
	require.NoError(t, err)
	require.Contains(t, pending, EntityVehicle)
	assert.Contains(t, pending[EntityVehicle], v.ID)
	assert.NotContains(t, pending[EntityVehicle], other.ID)
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	dealerID := uuid.New()

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveUser(User{ID: uuid.New(), DealerID: dealerID, Name: "a"}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	items, err := reopened.Pending()
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
