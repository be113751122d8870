package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchChangesRequestShape(t *testing.T) {
	dealerID := uuid.New()
	since := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var gotPath string
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`{"users":[{"id":"` + uuid.NewString() + `","dealer_id":"` + dealerID.String() + `","name":"x","created_at":"2025-06-01T00:00:00Z","updated_at":"2025-06-01T00:00:00Z"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret")
	snap, err := client.FetchChanges(context.Background(), dealerID, since)
	require.NoError(t, err)

	assert.Equal(t, "/rpc/get_changes", gotPath)
	assert.Equal(t, dealerID.String(), gotBody["dealer_id"])
	assert.Equal(t, "2025-06-01T12:00:00.000Z", gotBody["since"])
	assert.Len(t, snap.Users, 1)
}

func TestUpsertWrapsRowInPayloadArray(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rpc/sync_vehicles", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret")
	row := json.RawMessage(`{"id":"abc","vin":"123"}`)
	require.NoError(t, client.Upsert(context.Background(), "sync_vehicles", row))

	var body struct {
		Payload []json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &body))
	require.Len(t, body.Payload, 1)
	assert.JSONEq(t, string(row), string(body.Payload[0]))
}

func TestDeleteParameters(t *testing.T) {
	id := uuid.New()
	dealerID := uuid.New()

	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rpc/delete_crm_vehicles", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret")
	require.NoError(t, client.Delete(context.Background(), "delete_crm_vehicles", id, dealerID))

	assert.Equal(t, id.String(), gotBody["p_id"])
	assert.Equal(t, dealerID.String(), gotBody["p_dealer_id"])
}

func TestRPCErrorOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret")
	err := client.Upsert(context.Background(), "sync_users", json.RawMessage(`{}`))

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "sync_users", rpcErr.Procedure)
	assert.Equal(t, http.StatusForbidden, rpcErr.StatusCode)
	assert.Contains(t, rpcErr.Error(), "permission denied")
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise Close hangs forever.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Delete(ctx, "delete_crm_debts", uuid.New(), uuid.New())
	require.Error(t, err)
}
