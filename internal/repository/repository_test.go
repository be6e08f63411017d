// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"conscience-engine/internal/engine"
	"conscience-engine/internal/model"
	"conscience-engine/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB starts PostgreSQL, applies the schema and returns a pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))
	// running twice must be harmless
	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

// sampleState builds a state touching every persisted table.
func sampleState(userID string) *engine.State {
	st := engine.NewState(model.NewUserProfile(userID, t0))
	p := st.Profile
	p.Level = 2
	p.ExperiencePoints = 130
	p.Conscience.Honesty = 12
	p.Conscience.Wisdom = 3
	p.Currency.Crystals = 175
	p.Avatar.UnlockedTitles = []string{"Honest Soul"}
	p.Statistics.TotalChoicesMade = 4
	p.Streak.CurrentStreak = 3
	p.Streak.StreakMultiplier = 1.2

	st.EarnedBadges = []string{"badge_honest_1", "badge_scenario_1"}
	st.Quests = []model.DailyQuest{
		{
			ID:          "q-1",
			UserID:      userID,
			Title:       "Complete a scenario",
			Type:        model.QuestDaily,
			Requirement: model.QuestRequirement{Action: model.ActionCompleteScenario, Count: 1},
			Reward:      model.QuestReward{Crystals: 10, ExperiencePoints: 20},
			ExpiresAt:   t0.Add(24 * time.Hour),
		},
		{
			ID:          "q-2",
			UserID:      userID,
			Title:       "Make honest choices",
			Type:        model.QuestDaily,
			Requirement: model.QuestRequirement{Action: model.ActionMakeHonestChoice, Count: 3},
			Reward:      model.QuestReward{Crystals: 15, GiftBox: true},
			ExpiresAt:   t0.Add(24 * time.Hour),
			Progress:    1,
		},
	}
	st.Playthrough = &model.Playthrough{
		UserID:           userID,
		ScenarioID:       "lost-wallet",
		CurrentChapterID: "ch2",
		Choices:          []string{"return"},
		TotalImpact:      model.ConscienceImpact{Honesty: 10, Courage: -1},
		StartedAt:        t0,
	}
	st.ScenarioCompletions["found-money"] = 2
	return st
}

func TestPostgresStore_SaveAndLoad(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPostgresStore(pool, DefaultTxRetries)
	ctx := context.Background()

	err := store.InTx(ctx, "user-1", func(tx Tx) error {
		_, err := tx.Load(ctx)
		assert.ErrorIs(t, err, ErrUserNotFound)
		return tx.Save(ctx, sampleState("user-1"), t0)
	})
	require.NoError(t, err)

	var got *engine.State
	err = store.InTx(ctx, "user-1", func(tx Tx) error {
		var err error
		got, err = tx.Load(ctx)
		return err
	})
	require.NoError(t, err)

	want := sampleState("user-1")
	assert.Equal(t, want.Profile.Level, got.Profile.Level)
	assert.Equal(t, want.Profile.Conscience, got.Profile.Conscience)
	assert.Equal(t, want.Profile.Currency, got.Profile.Currency)
	assert.Equal(t, want.Profile.Avatar, got.Profile.Avatar)
	assert.Equal(t, want.Profile.Statistics, got.Profile.Statistics)
	assert.Equal(t, want.Profile.Streak.StreakMultiplier, got.Profile.Streak.StreakMultiplier)
	assert.True(t, want.Profile.CreatedAt.Equal(got.Profile.CreatedAt))

	assert.ElementsMatch(t, want.EarnedBadges, got.EarnedBadges)
	require.Len(t, got.Quests, 2)
	assert.Equal(t, "q-1", got.Quests[0].ID)
	assert.Equal(t, model.ActionMakeHonestChoice, got.Quests[1].Requirement.Action)
	assert.True(t, got.Quests[1].Reward.GiftBox)
	assert.Equal(t, 1, got.Quests[1].Progress)

	require.NotNil(t, got.Playthrough)
	assert.Equal(t, "ch2", got.Playthrough.CurrentChapterID)
	assert.Equal(t, []string{"return"}, got.Playthrough.Choices)
	assert.Equal(t, model.ConscienceImpact{Honesty: 10, Courage: -1}, got.Playthrough.TotalImpact)
	assert.Equal(t, map[string]int{"found-money": 2}, got.ScenarioCompletions)
	assert.Equal(t, 0, got.JournalEntries)
}

func TestPostgresStore_BadgesAreInsertOnly(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPostgresStore(pool, DefaultTxRetries)
	ctx := context.Background()

	st := sampleState("user-2")
	require.NoError(t, store.InTx(ctx, "user-2", func(tx Tx) error {
		return tx.Save(ctx, st, t0)
	}))

	// saving again later must keep the original award time
	later := t0.Add(48 * time.Hour)
	st.EarnedBadges = append(st.EarnedBadges, "badge_journal_1")
	require.NoError(t, store.InTx(ctx, "user-2", func(tx Tx) error {
		return tx.Save(ctx, st, later)
	}))

	badges, err := store.Badges(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, badges, 3)
	for _, b := range badges {
		assert.Equal(t, 100, b.Progress)
		if b.BadgeID == "badge_journal_1" {
			assert.True(t, later.Equal(b.EarnedAt))
		} else {
			assert.True(t, t0.Equal(b.EarnedAt))
		}
	}
}

func TestPostgresStore_PlaythroughClearedAndQuestsReplaced(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPostgresStore(pool, DefaultTxRetries)
	ctx := context.Background()

	st := sampleState("user-3")
	require.NoError(t, store.InTx(ctx, "user-3", func(tx Tx) error {
		return tx.Save(ctx, st, t0)
	}))

	st.Playthrough = nil
	st.Quests = st.Quests[1:]
	require.NoError(t, store.InTx(ctx, "user-3", func(tx Tx) error {
		return tx.Save(ctx, st, t0)
	}))

	require.NoError(t, store.InTx(ctx, "user-3", func(tx Tx) error {
		got, err := tx.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got.Playthrough)
		require.Len(t, got.Quests, 1)
		assert.Equal(t, "q-2", got.Quests[0].ID)
		return nil
	}))
}

func TestPostgresStore_RollbackOnError(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPostgresStore(pool, DefaultTxRetries)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTx(ctx, "user-4", func(tx Tx) error {
		require.NoError(t, tx.Save(ctx, sampleState("user-4"), t0))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = store.InTx(ctx, "user-4", func(tx Tx) error {
		_, err := tx.Load(ctx)
		return err
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgresStore_JournalEntries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPostgresStore(pool, DefaultTxRetries)
	ctx := context.Background()

	require.NoError(t, store.InTx(ctx, "user-5", func(tx Tx) error {
		st := sampleState("user-5")
		st.JournalEntries = 2
		if err := tx.Save(ctx, st, t0); err != nil {
			return err
		}
		for i, text := range []string{"first", "second"} {
			err := tx.AddJournalEntry(ctx, model.JournalEntry{
				ID:          []string{"j-1", "j-2"}[i],
				ScenarioID:  "lost-wallet",
				ChoicesMade: []string{"return"},
				Reflection:  text,
				Emotion:     model.EmotionProud,
				RegretLevel: i,
				CreatedAt:   t0.Add(time.Duration(i) * time.Hour),
				IsPrivate:   true,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	entries, err := store.JournalEntries(ctx, "user-5", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Reflection)
	assert.Equal(t, model.EmotionProud, entries[0].Emotion)
	assert.Equal(t, []string{"return"}, entries[1].ChoicesMade)

	entries, err = store.JournalEntries(ctx, "user-5", 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, store.InTx(ctx, "user-5", func(tx Tx) error {
		st, err := tx.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, st.JournalEntries)
		return nil
	}))
}

// TestPostgresStore_ConcurrentUpdatesSerialize checks that FOR UPDATE makes
// read-modify-write cycles on one profile lose no increments.
func TestPostgresStore_ConcurrentUpdatesSerialize(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPostgresStore(pool, DefaultTxRetries)
	ctx := context.Background()

	require.NoError(t, store.InTx(ctx, "user-6", func(tx Tx) error {
		return tx.Save(ctx, engine.NewState(model.NewUserProfile("user-6", t0)), t0)
	}))

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := store.InTx(ctx, "user-6", func(tx Tx) error {
				st, err := tx.Load(ctx)
				if err != nil {
					return err
				}
				st.Profile.Statistics.TotalChoicesMade++
				return tx.Save(ctx, st, t0)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.NoError(t, store.InTx(ctx, "user-6", func(tx Tx) error {
		st, err := tx.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, workers, st.Profile.Statistics.TotalChoicesMade)
		return nil
	}))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"wrapped", errors.Join(errors.New("ctx"), &pgconn.PgError{Code: "40001"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}
