package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/phish-detect/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func exerciseStore(t *testing.T, s ports.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Get(ctx, "blockedEmails")
	require.NoError(t, err)
	assert.Empty(t, got, "absent key reads as empty")
	assert.NotNil(t, got)

	require.NoError(t, s.Set(ctx, "blockedEmails", []string{"eve@evil.com", "bob@spam.io", "eve@evil.com"}))
	got, err = s.Get(ctx, "blockedEmails")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"eve@evil.com", "bob@spam.io"}, got)

	require.NoError(t, s.Set(ctx, "blockedEmails", []string{"mallory@bad.org"}))
	got, err = s.Get(ctx, "blockedEmails")
	require.NoError(t, err)
	assert.Equal(t, []string{"mallory@bad.org"}, got)

	got, err = s.Get(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Set(ctx, "blockedEmails", nil))
	got, err = s.Get(ctx, "blockedEmails")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(zaptest.NewLogger(t))
	exerciseStore(t, s)
	assert.NoError(t, s.Close())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore(zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []string{"a"}))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = "mutated"

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, again)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "storage.json"), zaptest.NewLogger(t))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStore_ReadsExtensionStorageLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"blockedEmails":["eve@evil.com"],"history":["x"]}`), 0o600))

	s, err := NewFileStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	got, err := s.Get(context.Background(), "blockedEmails")
	require.NoError(t, err)
	assert.Equal(t, []string{"eve@evil.com"}, got)

	require.NoError(t, s.Set(context.Background(), "blockedEmails", []string{"bob@spam.io"}))
	history, err := s.Get(context.Background(), "history")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, history, "other keys survive a write")
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))

	s, err := NewFileStore(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "blockedEmails")
	assert.ErrorContains(t, err, "failed to parse store file")
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("PHISH_DETECT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PHISH_DETECT_TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisOptions{Address: addr, KeyPrefix: "phish-detect-test:"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set(context.Background(), "blockedEmails", nil))
	require.NoError(t, s.Set(context.Background(), "other", nil))

	exerciseStore(t, s)
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("PHISH_DETECT_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("PHISH_DETECT_TEST_MYSQL_DSN not set")
	}
	s, err := NewMySQLStore(dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set(context.Background(), "blockedEmails", nil))
	require.NoError(t, s.Set(context.Background(), "other", nil))

	exerciseStore(t, s)
}
