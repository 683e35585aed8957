package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	xerrors "SeiChat-Agent/internal/errors"
	"SeiChat-Agent/internal/users"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestProfileFromHash(t *testing.T) {
	p, ok, err := profileFromHash("42", map[string]string{fieldWallet: "0xabc", fieldUpdatedAt: "17"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, users.Profile{UserID: "42", Wallet: "0xabc", UpdatedAt: 17}, p)

	_, ok, err = profileFromHash("42", map[string]string{})
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = profileFromHash("42", map[string]string{fieldWallet: "0xabc", fieldUpdatedAt: "soon"})
	require.Error(t, err)
}

func TestUserStoreKeyPrefix(t *testing.T) {
	s := NewUserStoreFromClient(nil, "")
	require.Equal(t, "seichat:user:42", s.key(" 42 "))

	s = NewUserStoreFromClient(nil, "bot:")
	require.Equal(t, "bot:42", s.key("42"))
}

func TestUserStoreValidatesBeforeNetwork(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	s := NewUserStoreFromClient(client, "")

	_, _, err := s.Get(context.Background(), "  ")
	require.True(t, errors.Is(err, users.ErrEmptyUserID))
	require.Error(t, s.SetWallet(context.Background(), "42", ""))
}

func TestNewUserStoreRequiresAddress(t *testing.T) {
	_, err := NewUserStore(context.Background(), Config{})
	require.Error(t, err)
}

func TestUserStoreWrapsBackendFailures(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	s := NewUserStoreFromClient(client, "")

	_, _, err := s.Get(context.Background(), "42")
	require.Error(t, err)
	require.Equal(t, xerrors.CodeStorageFailure, xerrors.CodeOf(err))

	err = s.SetWallet(context.Background(), "42", "0xabc")
	require.Equal(t, xerrors.CodeStorageFailure, xerrors.CodeOf(err))
}
