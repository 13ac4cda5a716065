package postgres_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dom/authroutes/internal/domain"
	"github.com/dom/authroutes/internal/repository"
	"github.com/dom/authroutes/internal/repository/postgres"
	"github.com/dom/authroutes/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		testDB.Truncate(t)

		tests := []struct {
			name    string
			user    *domain.User
			wantErr error
		}{
			{
				name: "successful creation",
				user: &domain.User{Name: "Alice", Email: "Alice@X.com", PasswordHash: "hash"},
			},
			{
				name:    "duplicate email",
				user:    &domain.User{Name: "Alice 2", Email: "alice@x.com ", PasswordHash: "hash"},
				wantErr: repository.ErrDuplicateEmail,
			},
			{
				name: "unknown role stored as user",
				user: &domain.User{Name: "Odd", Email: "odd@x.com", PasswordHash: "hash", Role: "owner"},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := repo.Create(ctx, tt.user)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
					return
				}
				require.NoError(t, err)
				assert.NotEqual(t, uuid.Nil, tt.user.ID)
				assert.Equal(t, domain.RoleUser, tt.user.Role)
			})
		}
	})

	t.Run("concurrent same email", func(t *testing.T) {
		testDB.Truncate(t)

		const writers = 8
		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
			conflicts atomic.Int32
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.Create(ctx, &domain.User{Name: "Racer", Email: "race@x.com", PasswordHash: "hash"})
				if err == nil {
					succeeded.Add(1)
				} else if assert.ErrorIs(t, err, repository.ErrDuplicateEmail) {
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, int32(writers-1), conflicts.Load())
	})

	t.Run("get by id", func(t *testing.T) {
		testDB.Truncate(t)
		user := &domain.User{Name: "Bob", Email: "bob@x.com", PasswordHash: "hash", Role: domain.RoleModerator}
		require.NoError(t, repo.Create(ctx, user))

		got, err := repo.GetByID(ctx, user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "bob@x.com", got.Email)
		assert.Equal(t, domain.RoleModerator, got.Role)
		assert.Nil(t, got.RefreshToken)

		for _, id := range []string{uuid.NewString(), "not-a-uuid", ""} {
			_, err := repo.GetByID(ctx, id)
			assert.ErrorIs(t, err, repository.ErrNotFound, id)
		}
	})

	t.Run("get by email", func(t *testing.T) {
		testDB.Truncate(t)
		require.NoError(t, repo.Create(ctx, &domain.User{Name: "Carol", Email: "carol@x.com", PasswordHash: "hash"}))

		got, err := repo.GetByEmail(ctx, " CAROL@x.com")
		require.NoError(t, err)
		assert.Equal(t, "Carol", got.Name)

		_, err = repo.GetByEmail(ctx, "nobody@x.com")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("update refresh token", func(t *testing.T) {
		testDB.Truncate(t)
		user := &domain.User{Name: "Dan", Email: "dan@x.com", PasswordHash: "hash"}
		require.NoError(t, repo.Create(ctx, user))

		token := "refresh-token"
		updated, err := repo.UpdateRefreshToken(ctx, user.ID.String(), &token)
		require.NoError(t, err)
		assert.True(t, updated.HasRefreshToken(token))

		cleared, err := repo.UpdateRefreshToken(ctx, user.ID.String(), nil)
		require.NoError(t, err)
		assert.Nil(t, cleared.RefreshToken)

		_, err = repo.UpdateRefreshToken(ctx, uuid.NewString(), &token)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		_, err = repo.UpdateRefreshToken(ctx, "garbage", &token)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
