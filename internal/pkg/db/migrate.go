package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is satisfied by *pgxpool.Pool, *Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "profiles table",
		sql: `
		CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			level INT NOT NULL DEFAULT 1,
			experience_points INT NOT NULL DEFAULT 0 CHECK (experience_points >= 0),
			total_scenarios INT NOT NULL DEFAULT 0,
			honesty INT NOT NULL DEFAULT 0 CHECK (honesty >= 0),
			justice INT NOT NULL DEFAULT 0 CHECK (justice >= 0),
			empathy INT NOT NULL DEFAULT 0 CHECK (empathy >= 0),
			responsibility INT NOT NULL DEFAULT 0 CHECK (responsibility >= 0),
			patience INT NOT NULL DEFAULT 0 CHECK (patience >= 0),
			courage INT NOT NULL DEFAULT 0 CHECK (courage >= 0),
			wisdom INT NOT NULL DEFAULT 0 CHECK (wisdom >= 0),
			crystals INT NOT NULL DEFAULT 100,
			wisdom_points INT NOT NULL DEFAULT 0,
			virtue_medals INT NOT NULL DEFAULT 0,
			gift_boxes INT NOT NULL DEFAULT 1,
			avatar_skin_tone TEXT NOT NULL DEFAULT 'default',
			avatar_hair_style TEXT NOT NULL DEFAULT 'default',
			avatar_outfit TEXT NOT NULL DEFAULT 'default',
			avatar_accessory TEXT NOT NULL DEFAULT 'none',
			spirit_animal TEXT NOT NULL DEFAULT 'none',
			title TEXT NOT NULL,
			unlocked_titles TEXT[] NOT NULL DEFAULT '{}',
			total_choices_made INT NOT NULL DEFAULT 0,
			perfect_scenarios INT NOT NULL DEFAULT 0,
			regretted_choices INT NOT NULL DEFAULT 0,
			helped_friends INT NOT NULL DEFAULT 0,
			longest_streak INT NOT NULL DEFAULT 0,
			play_time_minutes INT NOT NULL DEFAULT 0,
			community_votes INT NOT NULL DEFAULT 0,
			current_streak INT NOT NULL DEFAULT 0,
			streak_last_login_at TIMESTAMPTZ NOT NULL,
			streak_multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			total_days_played INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			last_login_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		name: "user_badges table",
		sql: `
		CREATE TABLE IF NOT EXISTS user_badges (
			user_id TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			badge_id TEXT NOT NULL,
			earned_at TIMESTAMPTZ NOT NULL,
			progress INT NOT NULL DEFAULT 100,
			PRIMARY KEY (user_id, badge_id)
		);`,
	},
	{
		name: "daily_quests table",
		sql: `
		CREATE TABLE IF NOT EXISTS daily_quests (
			quest_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			type TEXT NOT NULL,
			action TEXT NOT NULL,
			required_count INT NOT NULL,
			specific_target TEXT NOT NULL DEFAULT '',
			reward_crystals INT NOT NULL DEFAULT 0,
			reward_wisdom_points INT NOT NULL DEFAULT 0,
			reward_xp INT NOT NULL DEFAULT 0,
			reward_gift_box BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMPTZ NOT NULL,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			progress INT NOT NULL DEFAULT 0,
			position INT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_daily_quests_user ON daily_quests(user_id, expires_at, position);`,
	},
	{
		name: "journal_entries table",
		sql: `
		CREATE TABLE IF NOT EXISTS journal_entries (
			entry_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			scenario_id TEXT NOT NULL DEFAULT '',
			scenario_title TEXT NOT NULL DEFAULT '',
			choices_made TEXT[] NOT NULL DEFAULT '{}',
			reflection TEXT NOT NULL,
			emotion TEXT NOT NULL DEFAULT '',
			regret_level INT NOT NULL CHECK (regret_level BETWEEN 0 AND 5),
			created_at TIMESTAMPTZ NOT NULL,
			is_private BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE INDEX IF NOT EXISTS idx_journal_entries_user_time ON journal_entries(user_id, created_at DESC);`,
	},
	{
		name: "playthroughs table",
		sql: `
		CREATE TABLE IF NOT EXISTS playthroughs (
			user_id TEXT PRIMARY KEY REFERENCES profiles(user_id) ON DELETE CASCADE,
			scenario_id TEXT NOT NULL,
			current_chapter_id TEXT NOT NULL,
			choices TEXT[] NOT NULL DEFAULT '{}',
			total_impact JSONB NOT NULL,
			perfect BOOLEAN NOT NULL DEFAULT TRUE,
			started_at TIMESTAMPTZ NOT NULL
		);`,
	},
	{
		name: "scenario_completions table",
		sql: `
		CREATE TABLE IF NOT EXISTS scenario_completions (
			user_id TEXT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			scenario_id TEXT NOT NULL,
			count INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, scenario_id)
		);`,
	},
}

// Migrate creates the engine schema. Every statement is idempotent.
func Migrate(ctx context.Context, conn Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := conn.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Msgf("Migration %d: %s created", i+1, m.name)
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
