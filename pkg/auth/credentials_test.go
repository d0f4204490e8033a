package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"leadscout/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testAccount(name string) *Account {
	return &Account{
		Username:     name,
		Password:     "hunter2-" + name,
		ClientID:     "client-" + name,
		ClientSecret: "secret-value-" + name,
		UserAgent:    "leadscout-test/1.0",
	}
}

func TestManagerLifecycle(t *testing.T) {
	mock := NewMockStore()
	manager := NewManagerWithStores(mock)

	require.NoError(t, manager.Store(testAccount("scout")))
	assert.Equal(t, 1, mock.Count())

	retrieved, err := manager.Retrieve("scout")
	require.NoError(t, err)
	assert.Equal(t, "client-scout", retrieved.ClientID)
	assert.False(t, retrieved.LastModified.IsZero(), "Store stamps LastModified")

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("scout"))
	_, err = manager.Retrieve("scout")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, manager.Delete("scout"), ErrCredentialsNotFound)
}

func TestManagerValidation(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	tests := []struct {
		name   string
		mutate func(*Account)
		want   string
	}{
		{"username", func(a *Account) { a.Username = "" }, "username is required"},
		{"password", func(a *Account) { a.Password = "" }, "password is required"},
		{"client id", func(a *Account) { a.ClientID = "" }, "client ID is required"},
		{"client secret", func(a *Account) { a.ClientSecret = "" }, "client secret is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := testAccount("x")
			tt.mutate(account)
			assert.EqualError(t, manager.Store(account), tt.want)
		})
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	require.NoError(t, manager.Store(testAccount("scout")))
	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, working.Count())
}

func TestManagerListNewestFirst(t *testing.T) {
	first, second := NewMockStore(), NewMockStore()
	now := time.Now()

	old := testAccount("old")
	old.LastModified = now.Add(-time.Hour)
	require.NoError(t, first.Store(old))

	stale := testAccount("fresh")
	stale.LastModified = now.Add(-2 * time.Hour)
	stale.ClientID = "stale"
	require.NoError(t, first.Store(stale))

	fresh := testAccount("fresh")
	fresh.LastModified = now
	require.NoError(t, second.Store(fresh))

	accounts, err := NewManagerWithStores(first, second).List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "fresh", accounts[0].Username)
	assert.Equal(t, "client-fresh", accounts[0].ClientID, "newest duplicate wins")
	assert.Equal(t, "old", accounts[1].Username)
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	mock := NewMockStore()
	require.NoError(t, mock.Store(testAccount("stored")))
	manager := NewManagerWithStores(mock, NewEnvironmentStore())

	account, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "stored", account.Username)

	t.Setenv(EnvUsername, "envuser")
	t.Setenv(EnvPassword, "pw")
	t.Setenv(EnvClientID, "cid")
	t.Setenv(EnvClientSecret, "csecret")

	account, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "envuser", account.Username)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts, "missing file is empty")

	require.NoError(t, store.Store(testAccount("vaulted")))
	require.NoError(t, store.Store(testAccount("second")))

	retrieved, err := store.Retrieve("vaulted")
	require.NoError(t, err)
	assert.Equal(t, "secret-value-vaulted", retrieved.ClientSecret)
	assert.True(t, store.Exists("second"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "secret-value-vaulted")
	assert.NotContains(t, string(content), "hunter2")

	t.Run("wrong passphrase", func(t *testing.T) {
		t.Setenv(EnvPassphrase, "other")
		other, err := NewEncryptedFileStore(path)
		require.NoError(t, err)
		_, err = other.Retrieve("vaulted")
		assert.ErrorContains(t, err, "failed to decrypt")
	})

	require.NoError(t, store.Delete("vaulted"))
	require.NoError(t, store.Delete("second"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file removed with the last account")
	assert.ErrorIs(t, store.Delete("second"), ErrCredentialsNotFound)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	t.Setenv(EnvUsername, "envuser")
	t.Setenv(EnvPassword, "pw")
	t.Setenv(EnvClientID, "cid")
	t.Setenv(EnvClientSecret, "csecret")

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "cid", account.ClientID)
	assert.True(t, store.Exists("envuser"))
	assert.False(t, store.Exists("someone-else"))

	assert.ErrorIs(t, store.Store(account), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("envuser"), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(testAccount("chain")))
	assert.True(t, store.Exists("chain"))

	retrieved, err := store.Retrieve("chain")
	require.NoError(t, err)
	assert.Equal(t, "hunter2-chain", retrieved.Password)

	require.NoError(t, store.Delete("chain"))
	_, err = store.Retrieve("chain")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Delete("chain"), ErrCredentialsNotFound)
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("scout")
	clean := SanitizeAccount(account)

	assert.Equal(t, "scout", clean.Username)
	assert.Equal(t, "client-scout", clean.ClientID)
	assert.Equal(t, "hunt...cout", clean.Password)
	assert.Equal(t, "********", Mask("short"))
	assert.Equal(t, "secr...cout", clean.ClientSecret)
	assert.Equal(t, "hunter2-scout", account.Password, "original untouched")
	assert.Nil(t, SanitizeAccount(nil))
}

func TestApply(t *testing.T) {
	cfg := config.DefaultConfig().Reddit
	cfg.ClientID = "from-config"

	testAccount("scout").Apply(&cfg)

	assert.Equal(t, "from-config", cfg.ClientID)
	assert.Equal(t, "scout", cfg.Username)
	assert.Equal(t, "secret-value-scout", cfg.ClientSecret)
	assert.Equal(t, "leadscout-test/1.0", cfg.UserAgent)
}
