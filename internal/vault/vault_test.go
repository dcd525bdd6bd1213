package vault

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trustdocs/internal/config"
	repoMocks "trustdocs/internal/repository/mocks"
	"trustdocs/internal/storage"
	storageMocks "trustdocs/internal/storage/mocks"
)

// memStore and memKeys are in-memory fakes for roundtrip tests where the
// bytes written must be readable back.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ storage.PutObjectOptions) (storage.ObjectInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (s *memStore) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), storage.ObjectInfo{Key: key, Size: int64(len(b))}, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) Copy(_ context.Context, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[srcKey]
	if !ok {
		return errors.New("object not found")
	}
	s.objects[dstKey] = append([]byte(nil), b...)
	return nil
}

type memKeys struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func newMemKeys() *memKeys {
	return &memKeys{keys: map[string][]byte{}}
}

func (k *memKeys) Insert(_ context.Context, id string, wrapped []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[id] = wrapped
	return nil
}

func (k *memKeys) Find(_ context.Context, id string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	b, ok := k.keys[id]
	if !ok {
		return nil, errors.New("key not found")
	}
	return b, nil
}

func (k *memKeys) Delete(_ context.Context, id string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, id)
	return nil
}

func testMasterKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRejectsBadMasterKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not base64", "%%%"},
		{"wrong length", base64.StdEncoding.EncodeToString([]byte("short"))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(config.VaultConfig{MasterKey: tc.key}, newMemStore(), newMemKeys(), testLogger())
			assert.ErrorIs(t, err, ErrMasterKey)
		})
	}
}

func TestStoreOpenRoundtrip(t *testing.T) {
	store := newMemStore()
	keys := newMemKeys()
	v, err := New(config.VaultConfig{MasterKey: testMasterKey()}, store, keys, testLogger())
	require.NoError(t, err)

	plaintext := []byte("scanned identity document bytes")
	obj, err := v.Store(context.Background(), "documents/owner-1/doc-1", plaintext)
	require.NoError(t, err)
	assert.Equal(t, "documents/owner-1/doc-1", obj.Location)
	assert.NotEmpty(t, obj.KeyID)

	// Ciphertext at rest must not contain the plaintext.
	stored := store.objects[obj.Location]
	assert.NotContains(t, string(stored), string(plaintext))
	assert.Equal(t, int64(len(stored)), obj.SizeBytes)

	got, err := v.Open(context.Background(), obj.Location, obj.KeyID)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestStoreUsesFreshKeyPerDocument(t *testing.T) {
	store := newMemStore()
	keys := newMemKeys()
	v, err := New(config.VaultConfig{MasterKey: testMasterKey()}, store, keys, testLogger())
	require.NoError(t, err)

	a, err := v.Store(context.Background(), "documents/o/a", []byte("same bytes"))
	require.NoError(t, err)
	b, err := v.Store(context.Background(), "documents/o/b", []byte("same bytes"))
	require.NoError(t, err)

	assert.NotEqual(t, a.KeyID, b.KeyID)
	assert.NotEqual(t, store.objects["documents/o/a"], store.objects["documents/o/b"])
}

func TestOpenFailsAfterDestroy(t *testing.T) {
	store := newMemStore()
	keys := newMemKeys()
	v, err := New(config.VaultConfig{MasterKey: testMasterKey()}, store, keys, testLogger())
	require.NoError(t, err)

	obj, err := v.Store(context.Background(), "documents/o/doc", []byte("secret"))
	require.NoError(t, err)

	require.NoError(t, v.Destroy(context.Background(), obj.Location, obj.KeyID))

	_, err = v.Open(context.Background(), obj.Location, obj.KeyID)
	assert.Error(t, err)
	assert.Empty(t, store.objects)
	assert.Empty(t, keys.keys)
}

func TestStoreCompensatesKeyInsertFailure(t *testing.T) {
	store := new(storageMocks.MockStorage)
	keys := new(repoMocks.MockKeyRepository)
	v, err := New(config.VaultConfig{MasterKey: testMasterKey()}, store, keys, testLogger())
	require.NoError(t, err)

	store.On("Put", mock.Anything, "documents/o/doc", mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Key: "documents/o/doc"}, nil).Once()
	keys.On("Insert", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("db down")).Once()
	// The blob is unreadable without its key row, so it must be removed.
	store.On("Delete", mock.Anything, "documents/o/doc").Return(nil).Once()

	_, err = v.Store(context.Background(), "documents/o/doc", []byte("secret"))
	assert.Error(t, err)
	store.AssertExpectations(t)
	keys.AssertExpectations(t)
}

func TestStoreWritesBackupCopy(t *testing.T) {
	store := newMemStore()
	keys := newMemKeys()
	v, err := New(config.VaultConfig{MasterKey: testMasterKey(), BackupCopies: true}, store, keys, testLogger())
	require.NoError(t, err)

	obj, err := v.Store(context.Background(), "documents/o/doc", []byte("secret"))
	require.NoError(t, err)

	assert.Equal(t, store.objects[obj.Location], store.objects["backup/documents/o/doc"])

	require.NoError(t, v.Destroy(context.Background(), obj.Location, obj.KeyID))
	assert.Empty(t, store.objects)
}
