//go:build integration

package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"silver-social-backend/internal/apperrors"
	"silver-social-backend/internal/models"
)

func newTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("silver_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(strings.Replace(dsn, "postgres://", "pgx5://", 1)))
	// a second run is a no-op
	require.NoError(t, Migrate(strings.Replace(dsn, "postgres://", "pgx5://", 1)))

	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func createUser(t *testing.T, users *UserRepository, name string, at time.Time) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "hash",
		DisplayName:  name,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestPostgresStores(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	users := NewUserRepository(db)
	likes := NewLikeRepository(db)
	matches := NewMatchRepository(db)
	messages := NewMessageRepository(db)
	reads := NewReadMarkerRepository(db)
	activities := NewActivityRepository(db)

	a := createUser(t, users, "Alice", base)
	b := createUser(t, users, "Bob", base.Add(time.Minute))
	c := createUser(t, users, "Carol", base.Add(2*time.Minute))

	t.Run("users", func(t *testing.T) {
		dup := &models.User{ID: uuid.New().String(), Email: a.Email, PasswordHash: "x", CreatedAt: base, UpdatedAt: base}
		assert.ErrorIs(t, users.Create(ctx, dup), apperrors.ErrConflict)

		_, err := users.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		_, err = users.GetByID(ctx, uuid.New().String())
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		got, err := users.GetByEmail(ctx, a.Email)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, []string{}, got.GalleryURLs)

		many, err := users.GetMany(ctx, []string{a.ID, c.ID, "junk"})
		require.NoError(t, err)
		assert.Len(t, many, 2)

		got.City = "台北"
		got.GalleryURLs = []string{"https://cdn.example.com/1.jpg"}
		require.NoError(t, users.UpdateProfile(ctx, got))
		token := "device"
		require.NoError(t, users.UpdatePushToken(ctx, a.ID, &token))

		got, err = users.GetByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "台北", got.City)
		assert.Equal(t, []string{"https://cdn.example.com/1.jpg"}, got.GalleryURLs)
		require.NotNil(t, got.PushToken)
		assert.Equal(t, "device", *got.PushToken)
	})

	t.Run("likes and matches", func(t *testing.T) {
		created, err := likes.Create(ctx, &models.Like{LikerID: a.ID, LikedID: b.ID, CreatedAt: base})
		require.NoError(t, err)
		assert.True(t, created)
		created, err = likes.Create(ctx, &models.Like{LikerID: a.ID, LikedID: b.ID, CreatedAt: base})
		require.NoError(t, err)
		assert.False(t, created)

		exists, err := likes.Exists(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		discover, err := users.ListDiscoverable(ctx, a.ID, 10)
		require.NoError(t, err)
		require.Len(t, discover, 1)
		assert.Equal(t, c.ID, discover[0].ID)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, pair := range [][2]string{{a.ID, b.ID}, {b.ID, a.ID}} {
			wg.Add(1)
			go func(i int, x, y string) {
				defer wg.Done()
				errs[i] = matches.Create(ctx, &models.Match{ID: uuid.New().String(), UserAID: x, UserBID: y, CreatedAt: base})
			}(i, pair[0], pair[1])
		}
		wg.Wait()

		conflicts := 0
		for _, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, apperrors.ErrConflict)
				conflicts++
			}
		}
		assert.Equal(t, 1, conflicts)

		m, err := matches.GetByPair(ctx, b.ID, a.ID)
		require.NoError(t, err)
		x, y := models.NewMatchPair(a.ID, b.ID)
		assert.Equal(t, x, m.UserAID)
		assert.Equal(t, y, m.UserBID)

		list, err := matches.ListByUser(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("messages and read markers", func(t *testing.T) {
		card := models.SourceActivityCard
		at := base.Add(time.Hour)
		first := &models.Message{ID: uuid.New().String(), SenderID: c.ID, ReceiverID: a.ID, Content: "1", Source: card.Ptr(), CreatedAt: at}
		second := &models.Message{ID: uuid.New().String(), SenderID: a.ID, ReceiverID: c.ID, Content: "2", CreatedAt: at}
		require.NoError(t, messages.Create(ctx, first))
		require.NoError(t, messages.Create(ctx, second))
		assert.Greater(t, second.Seq, first.Seq)

		latest, err := messages.Latest(ctx, a.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
		assert.Nil(t, latest.Source)

		_, err = messages.Latest(ctx, b.ID, c.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		cps, err := messages.Counterparts(ctx, a.ID, models.SourceActivityCard)
		require.NoError(t, err)
		require.Len(t, cps, 1)
		assert.Equal(t, c.ID, cps[0].UserID)

		conv, err := messages.ListConversation(ctx, c.ID, a.ID, 10)
		require.NoError(t, err)
		require.Len(t, conv, 2)
		assert.Equal(t, first.ID, conv[0].ID)
		require.NotNil(t, conv[0].Source)
		assert.Equal(t, card, *conv[0].Source)

		never, err := reads.LastRead(ctx, a.ID, c.ID)
		require.NoError(t, err)
		assert.True(t, never.IsZero())

		unread, err := messages.CountUnread(ctx, a.ID, c.ID, never)
		require.NoError(t, err)
		assert.Equal(t, 1, unread)

		require.NoError(t, reads.MarkRead(ctx, a.ID, c.ID, at))
		require.NoError(t, reads.MarkRead(ctx, a.ID, c.ID, at.Add(-time.Hour)))
		cutoff, err := reads.LastRead(ctx, a.ID, c.ID)
		require.NoError(t, err)
		assert.True(t, cutoff.Equal(at))

		unread, err = messages.CountUnread(ctx, a.ID, c.ID, cutoff)
		require.NoError(t, err)
		assert.Equal(t, 0, unread)
	})

	t.Run("activities", func(t *testing.T) {
		capacity := 1
		act := &models.Activity{
			ID:           uuid.New().String(),
			Title:        "橋牌",
			Date:         base.Add(48 * time.Hour),
			Location:     "活動中心",
			Capacity:     &capacity,
			Category:     models.CategoryCard,
			CreatorID:    a.ID,
			ContactPhone: "0912",
			CreatedAt:    base,
		}
		require.NoError(t, activities.Create(ctx, act))

		require.NoError(t, activities.Join(ctx, act.ID, b.ID, base))
		require.NoError(t, activities.Join(ctx, act.ID, b.ID, base))
		assert.ErrorIs(t, activities.Join(ctx, act.ID, c.ID, base), apperrors.ErrConflict)
		assert.ErrorIs(t, activities.Join(ctx, uuid.New().String(), c.ID, base), apperrors.ErrNotFound)

		got, err := activities.GetByID(ctx, act.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, got.Joined)
		assert.Equal(t, 1, got.JoinedCount)
		assert.Equal(t, "Alice", got.CreatorName)
		assert.Equal(t, models.CategoryCard, got.Category)

		anon, err := activities.GetByID(ctx, act.ID, "")
		require.NoError(t, err)
		assert.False(t, anon.Joined)

		require.NoError(t, activities.Leave(ctx, act.ID, b.ID))
		n, err := activities.CountParticipants(ctx, act.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		list, err := activities.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}
