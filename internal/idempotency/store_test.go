package idempotency

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "idempotency.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("no-such-key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutThenGet(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Put(Record{
		Key:    "checkout-42",
		Status: 201,
		Body:   json.RawMessage(`{"order_id":"abc"}`),
	})
	require.NoError(t, err)
	assert.True(t, created)

	record, err := store.Get("checkout-42")
	require.NoError(t, err)
	assert.Equal(t, "checkout-42", record.Key)
	assert.Equal(t, 201, record.Status)
	assert.JSONEq(t, `{"order_id":"abc"}`, string(record.Body))
	assert.False(t, record.CreatedAt.IsZero())
}

func TestFirstWriteWins(t *testing.T) {
	store := newTestStore(t)

	created, err := store.Put(Record{Key: "k", Status: 201, Body: json.RawMessage(`{"n":1}`)})
	require.NoError(t, err)
	require.True(t, created)

	created, err = store.Put(Record{Key: "k", Status: 500, Body: json.RawMessage(`{"n":2}`)})
	require.NoError(t, err)
	assert.False(t, created, "a second write under the same key must be ignored")

	record, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, 201, record.Status)
	assert.JSONEq(t, `{"n":1}`, string(record.Body))
}

func TestKeysAreIndependent(t *testing.T) {
	store := newTestStore(t)

	for _, key := range []string{"a", "b"} {
		created, err := store.Put(Record{Key: key, Status: 201, Body: json.RawMessage(`{}`)})
		require.NoError(t, err)
		assert.True(t, created)
	}

	a, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", a.Key)
	b, err := store.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "b", b.Key)
}
