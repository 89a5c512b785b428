package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUserStoreLifecycle(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := NewUserStore(pool)
	require.NoError(t, err)

	hash := "$2a$10$hash"
	created, err := store.CreateUser(ctx, UserParams{
		Email:        " Ana@X.com ",
		Username:     "ana.silva1234",
		TaxNumber:    "12345678901",
		FirstName:    "Ana",
		LastName:     "Silva",
		BirthDate:    "1990-01-01",
		Country:      "Brasil",
		PasswordHash: &hash,
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, "ana@x.com", created[0].Email)
	require.NotEqual(t, uuid.Nil, created[0].ID)

	_, err = store.CreateUser(ctx, UserParams{Email: "ana@x.com"})
	require.ErrorIs(t, err, ErrUserConflict)

	upserted, err := store.UpsertUser(ctx, UserParams{
		Email:      "ana@x.com",
		FirstName:  "Ana Maria",
		LastName:   "Silva",
		TaxNumber:  "12345678901",
		PostalCode: "12345678",
		IsOwner:    true,
	})
	require.NoError(t, err)
	require.Len(t, upserted, 1)
	require.Equal(t, created[0].ID, upserted[0].ID)
	require.Equal(t, "Ana Maria", upserted[0].FirstName)
	require.True(t, upserted[0].IsOwner)
	require.NotNil(t, upserted[0].PasswordHash)
	require.Equal(t, hash, *upserted[0].PasswordHash)

	found, err := store.FindUsersByEmail(ctx, "ANA@x.com")
	require.NoError(t, err)
	require.Len(t, found, 1)

	none, err := store.FindUsersByEmail(ctx, "missing@x.com")
	require.NoError(t, err)
	require.Empty(t, none)

	got, err := store.GetUser(ctx, created[0].ID)
	require.NoError(t, err)
	require.Equal(t, "12345678", got.PostalCode)

	_, err = store.GetUser(ctx, uuid.New())
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpsertUserInsertsWhenMissing(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	ctx := context.Background()

	store, err := NewUserStore(pool)
	require.NoError(t, err)

	users, err := store.UpsertUser(ctx, UserParams{Email: "novo@x.com", FirstName: "Novo"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Nil(t, users[0].PasswordHash)

	_, err = store.UpsertUser(ctx, UserParams{Email: "  "})
	require.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := SplitStatements("CREATE TABLE a (id int);\n\n  ;CREATE INDEX b ON a (id);\n")
	require.Equal(t, []string{"CREATE TABLE a (id int)", "CREATE INDEX b ON a (id)"}, got)
	require.Empty(t, SplitStatements(" ; \n"))
}
