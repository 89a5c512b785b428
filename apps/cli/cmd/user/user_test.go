package usercmd

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/monynha/botecopro/platform/go/persistence"
)

type fakeStore struct {
	findFn func(ctx context.Context, email string) ([]persistence.User, error)
	listFn func(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error)
}

func (f fakeStore) FindUserByEmail(ctx context.Context, email string) ([]persistence.User, error) {
	return f.findFn(ctx, email)
}

func (f fakeStore) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error) {
	return f.listFn(ctx, userID)
}

func TestLookup(t *testing.T) {
	owner := persistence.User{ID: uuid.New(), Email: "dono@x.com"}
	botecoID := uuid.New()

	tests := []struct {
		name        string
		store       fakeStore
		wantErr     string
		wantBoteco  bool
		memberships int
	}{
		{
			name: "owner with boteco",
			store: fakeStore{
				findFn: func(context.Context, string) ([]persistence.User, error) { return []persistence.User{owner}, nil },
				listFn: func(_ context.Context, id uuid.UUID) ([]persistence.Membership, error) {
					return []persistence.Membership{{UserID: id, BotecoID: botecoID, AssignedRole: "owner"}}, nil
				},
			},
			wantBoteco:  true,
			memberships: 1,
		},
		{
			name: "user without boteco",
			store: fakeStore{
				findFn: func(context.Context, string) ([]persistence.User, error) { return []persistence.User{owner}, nil },
				listFn: func(context.Context, uuid.UUID) ([]persistence.Membership, error) { return nil, nil },
			},
		},
		{
			name: "unknown email",
			store: fakeStore{
				findFn: func(context.Context, string) ([]persistence.User, error) { return nil, nil },
			},
			wantErr: "no user registered with dono@x.com",
		},
		{
			name: "membership query fails",
			store: fakeStore{
				findFn: func(context.Context, string) ([]persistence.User, error) { return []persistence.User{owner}, nil },
				listFn: func(context.Context, uuid.UUID) ([]persistence.Membership, error) {
					return nil, errors.New("connection reset")
				},
			},
			wantErr: "list memberships: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := lookup(context.Background(), tt.store, tt.store, owner.Email)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, results, 1)
			require.Equal(t, owner.ID, results[0].ID)
			require.Equal(t, tt.wantBoteco, results[0].HasBoteco)
			require.Len(t, results[0].Memberships, tt.memberships)
			require.NotNil(t, results[0].Memberships)
		})
	}
}
