package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/storage"
)

func newTestService() (*Service, storage.Store) {
	store := storage.NewMemoryStore()
	return NewService(store), store
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	registered, err := svc.Register(ctx, "Ada", "Ada@Example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", registered.Email)
	assert.False(t, registered.IsGoogleUser)
	assert.NotEmpty(t, registered.PasswordHash)
	assert.NotEqual(t, "hunter22", registered.PasswordHash)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, registered.ID, current.ID)

	loggedIn, err := svc.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, loggedIn.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.Error(t, err)

	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.Error(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Imposter", "ada@example.com", "password9")
	assert.Error(t, err)
}

func TestEnsureGoogleUserUpsert(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	first, err := svc.EnsureGoogleUser(ctx, Identity{
		Subject: "sub-123",
		Name:    "Grace",
		Email:   "grace@example.com",
		Picture: "https://example.com/pic.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-123", first.ID)
	assert.True(t, first.IsGoogleUser)

	// Second sign-in with updated profile keeps the same record.
	second, err := svc.EnsureGoogleUser(ctx, Identity{
		Subject: "sub-123",
		Name:    "Grace H.",
		Email:   "grace@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "Grace H.", second.Name)
}

func TestGoogleUserDoesNotMergeWithLocalAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	local, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)

	google, err := svc.EnsureGoogleUser(ctx, Identity{Subject: "sub-9", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, local.ID, google.ID)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx))

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestCorruptedUsersEntryDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()

	require.NoError(t, store.Set(ctx, storage.UsersKey(), "{broken"))

	// Registration proceeds as if no users existed.
	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22")
	assert.NoError(t, err)
}

func TestPublicStripsCredential(t *testing.T) {
	u := User{ID: "1", PasswordHash: "secret"}
	assert.Empty(t, u.Public().PasswordHash)
	assert.Equal(t, "secret", u.PasswordHash)
}
