package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"conscience-engine/internal/engine"
	"conscience-engine/internal/model"
)

// DefaultTxRetries bounds how often a serialization failure is retried.
const DefaultTxRetries = 3

// PostgresStore keeps engine state in PostgreSQL. Each InTx locks the user's
// profile row for the duration of the transaction.
type PostgresStore struct {
	pool    *pgxpool.Pool
	retries int
}

// NewPostgresStore creates a new PostgresStore. A negative retries value
// falls back to DefaultTxRetries.
func NewPostgresStore(pool *pgxpool.Pool, retries int) *PostgresStore {
	if retries < 0 {
		retries = DefaultTxRetries
	}
	return &PostgresStore{pool: pool, retries: retries}
}

// InTx runs fn inside one transaction scoped to userID, retrying on
// serialization failures and deadlocks.
func (s *PostgresStore) InTx(ctx context.Context, userID string, fn func(tx Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.runTx(ctx, userID, fn)
		if err == nil || !isRetryable(err) || attempt >= s.retries {
			return err
		}
		log.Warn().
			Err(err).
			Str("user_id", userID).
			Int("attempt", attempt+1).
			Msg("Retrying transaction after serialization failure")
	}
}

func (s *PostgresStore) runTx(ctx context.Context, userID string, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx, userID: userID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Badges returns the user's awarded badges, oldest first.
func (s *PostgresStore) Badges(ctx context.Context, userID string) ([]model.UserBadge, error) {
	const query = `
		SELECT user_id, badge_id, earned_at, progress
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at, badge_id
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}
	defer rows.Close()

	var badges []model.UserBadge
	for rows.Next() {
		var b model.UserBadge
		if err := rows.Scan(&b.UserID, &b.BadgeID, &b.EarnedAt, &b.Progress); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating badges: %w", err)
	}
	return badges, nil
}

// JournalEntries returns up to limit entries, newest first. A non-positive
// limit returns all of them.
func (s *PostgresStore) JournalEntries(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error) {
	const query = `
		SELECT entry_id, user_id, scenario_id, scenario_title, choices_made,
			reflection, emotion, regret_level, created_at, is_private
		FROM journal_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, entry_id
		LIMIT $2
	`

	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := s.pool.Query(ctx, query, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		var e model.JournalEntry
		err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.ScenarioID,
			&e.ScenarioTitle,
			&e.ChoicesMade,
			&e.Reflection,
			&e.Emotion,
			&e.RegretLevel,
			&e.CreatedAt,
			&e.IsPrivate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		if len(e.ChoicesMade) == 0 {
			e.ChoicesMade = nil
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}
	return entries, nil
}

// pgTx implements Tx over a pgx transaction.
type pgTx struct {
	tx     pgx.Tx
	userID string
}

const selectProfileForUpdate = `
	SELECT user_id, username, level, experience_points, total_scenarios,
		honesty, justice, empathy, responsibility, patience, courage, wisdom,
		crystals, wisdom_points, virtue_medals, gift_boxes,
		avatar_skin_tone, avatar_hair_style, avatar_outfit, avatar_accessory,
		spirit_animal, title, unlocked_titles,
		total_choices_made, perfect_scenarios, regretted_choices, helped_friends,
		longest_streak, play_time_minutes, community_votes,
		current_streak, streak_last_login_at, streak_multiplier, total_days_played,
		created_at, last_login_at
	FROM profiles
	WHERE user_id = $1
	FOR UPDATE
`

const upsertProfile = `
	INSERT INTO profiles (
		user_id, username, level, experience_points, total_scenarios,
		honesty, justice, empathy, responsibility, patience, courage, wisdom,
		crystals, wisdom_points, virtue_medals, gift_boxes,
		avatar_skin_tone, avatar_hair_style, avatar_outfit, avatar_accessory,
		spirit_animal, title, unlocked_titles,
		total_choices_made, perfect_scenarios, regretted_choices, helped_friends,
		longest_streak, play_time_minutes, community_votes,
		current_streak, streak_last_login_at, streak_multiplier, total_days_played,
		created_at, last_login_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16,
		$17, $18, $19, $20,
		$21, $22, $23,
		$24, $25, $26, $27,
		$28, $29, $30,
		$31, $32, $33, $34,
		$35, $36, $37
	)
	ON CONFLICT (user_id) DO UPDATE SET
		username = EXCLUDED.username,
		level = EXCLUDED.level,
		experience_points = EXCLUDED.experience_points,
		total_scenarios = EXCLUDED.total_scenarios,
		honesty = EXCLUDED.honesty,
		justice = EXCLUDED.justice,
		empathy = EXCLUDED.empathy,
		responsibility = EXCLUDED.responsibility,
		patience = EXCLUDED.patience,
		courage = EXCLUDED.courage,
		wisdom = EXCLUDED.wisdom,
		crystals = EXCLUDED.crystals,
		wisdom_points = EXCLUDED.wisdom_points,
		virtue_medals = EXCLUDED.virtue_medals,
		gift_boxes = EXCLUDED.gift_boxes,
		avatar_skin_tone = EXCLUDED.avatar_skin_tone,
		avatar_hair_style = EXCLUDED.avatar_hair_style,
		avatar_outfit = EXCLUDED.avatar_outfit,
		avatar_accessory = EXCLUDED.avatar_accessory,
		spirit_animal = EXCLUDED.spirit_animal,
		title = EXCLUDED.title,
		unlocked_titles = EXCLUDED.unlocked_titles,
		total_choices_made = EXCLUDED.total_choices_made,
		perfect_scenarios = EXCLUDED.perfect_scenarios,
		regretted_choices = EXCLUDED.regretted_choices,
		helped_friends = EXCLUDED.helped_friends,
		longest_streak = EXCLUDED.longest_streak,
		play_time_minutes = EXCLUDED.play_time_minutes,
		community_votes = EXCLUDED.community_votes,
		current_streak = EXCLUDED.current_streak,
		streak_last_login_at = EXCLUDED.streak_last_login_at,
		streak_multiplier = EXCLUDED.streak_multiplier,
		total_days_played = EXCLUDED.total_days_played,
		last_login_at = EXCLUDED.last_login_at,
		updated_at = EXCLUDED.updated_at
`

// Load locks the profile row and reads the rest of the user's state.
func (t *pgTx) Load(ctx context.Context) (*engine.State, error) {
	p := &model.UserProfile{}
	err := t.tx.QueryRow(ctx, selectProfileForUpdate, t.userID).Scan(
		&p.UserID,
		&p.Username,
		&p.Level,
		&p.ExperiencePoints,
		&p.TotalScenarios,
		&p.Conscience.Honesty,
		&p.Conscience.Justice,
		&p.Conscience.Empathy,
		&p.Conscience.Responsibility,
		&p.Conscience.Patience,
		&p.Conscience.Courage,
		&p.Conscience.Wisdom,
		&p.Currency.Crystals,
		&p.Currency.WisdomPoints,
		&p.Currency.VirtueMedals,
		&p.Currency.GiftBoxes,
		&p.Avatar.SkinTone,
		&p.Avatar.HairStyle,
		&p.Avatar.Outfit,
		&p.Avatar.Accessory,
		&p.Avatar.SpiritAnimal,
		&p.Avatar.Title,
		&p.Avatar.UnlockedTitles,
		&p.Statistics.TotalChoicesMade,
		&p.Statistics.PerfectScenarios,
		&p.Statistics.RegrettedChoices,
		&p.Statistics.HelpedFriends,
		&p.Statistics.LongestStreak,
		&p.Statistics.PlayTimeMinutes,
		&p.Statistics.CommunityVotes,
		&p.Streak.CurrentStreak,
		&p.Streak.LastLoginAt,
		&p.Streak.StreakMultiplier,
		&p.Streak.TotalDaysPlayed,
		&p.CreatedAt,
		&p.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if len(p.Avatar.UnlockedTitles) == 0 {
		p.Avatar.UnlockedTitles = nil
	}

	st := engine.NewState(p)

	if st.EarnedBadges, err = t.loadBadgeIDs(ctx); err != nil {
		return nil, err
	}
	if st.Quests, err = t.loadQuests(ctx); err != nil {
		return nil, err
	}
	if st.Playthrough, err = t.loadPlaythrough(ctx); err != nil {
		return nil, err
	}
	if err := t.loadCompletions(ctx, st.ScenarioCompletions); err != nil {
		return nil, err
	}

	const countJournal = `SELECT COUNT(*) FROM journal_entries WHERE user_id = $1`
	if err := t.tx.QueryRow(ctx, countJournal, t.userID).Scan(&st.JournalEntries); err != nil {
		return nil, fmt.Errorf("failed to count journal entries: %w", err)
	}

	return st, nil
}

func (t *pgTx) loadBadgeIDs(ctx context.Context) ([]string, error) {
	const query = `
		SELECT badge_id FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at, badge_id
	`
	rows, err := t.tx.Query(ctx, query, t.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect badge ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func (t *pgTx) loadQuests(ctx context.Context) ([]model.DailyQuest, error) {
	const query = `
		SELECT quest_id, user_id, title, description, type,
			action, required_count, specific_target,
			reward_crystals, reward_wisdom_points, reward_xp, reward_gift_box,
			expires_at, is_completed, progress
		FROM daily_quests
		WHERE user_id = $1
		ORDER BY position
	`
	rows, err := t.tx.Query(ctx, query, t.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quests: %w", err)
	}
	defer rows.Close()

	var quests []model.DailyQuest
	for rows.Next() {
		var q model.DailyQuest
		err := rows.Scan(
			&q.ID,
			&q.UserID,
			&q.Title,
			&q.Description,
			&q.Type,
			&q.Requirement.Action,
			&q.Requirement.Count,
			&q.Requirement.SpecificTarget,
			&q.Reward.Crystals,
			&q.Reward.WisdomPoints,
			&q.Reward.ExperiencePoints,
			&q.Reward.GiftBox,
			&q.ExpiresAt,
			&q.IsCompleted,
			&q.Progress,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quests: %w", err)
	}
	return quests, nil
}

func (t *pgTx) loadPlaythrough(ctx context.Context) (*model.Playthrough, error) {
	const query = `
		SELECT user_id, scenario_id, current_chapter_id, choices,
			total_impact, perfect, started_at
		FROM playthroughs
		WHERE user_id = $1
	`
	var pt model.Playthrough
	err := t.tx.QueryRow(ctx, query, t.userID).Scan(
		&pt.UserID,
		&pt.ScenarioID,
		&pt.CurrentChapterID,
		&pt.Choices,
		&pt.TotalImpact,
		&pt.Perfect,
		&pt.StartedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playthrough: %w", err)
	}
	if len(pt.Choices) == 0 {
		pt.Choices = nil
	}
	return &pt, nil
}

func (t *pgTx) loadCompletions(ctx context.Context, into map[string]int) error {
	const query = `SELECT scenario_id, count FROM scenario_completions WHERE user_id = $1`
	rows, err := t.tx.Query(ctx, query, t.userID)
	if err != nil {
		return fmt.Errorf("failed to get scenario completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return fmt.Errorf("failed to scan scenario completion: %w", err)
		}
		into[id] = n
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating scenario completions: %w", err)
	}
	return nil
}

// Save upserts the profile and rewrites the dependent rows in one batch.
// Badges are insert-only so a replayed event never awards twice.
func (t *pgTx) Save(ctx context.Context, st *engine.State, now time.Time) error {
	p := st.Profile
	if p.UserID != t.userID {
		return fmt.Errorf("failed to save state: profile %q in transaction for %q", p.UserID, t.userID)
	}

	_, err := t.tx.Exec(ctx, upsertProfile,
		p.UserID,
		p.Username,
		p.Level,
		p.ExperiencePoints,
		p.TotalScenarios,
		p.Conscience.Honesty,
		p.Conscience.Justice,
		p.Conscience.Empathy,
		p.Conscience.Responsibility,
		p.Conscience.Patience,
		p.Conscience.Courage,
		p.Conscience.Wisdom,
		p.Currency.Crystals,
		p.Currency.WisdomPoints,
		p.Currency.VirtueMedals,
		p.Currency.GiftBoxes,
		p.Avatar.SkinTone,
		p.Avatar.HairStyle,
		p.Avatar.Outfit,
		p.Avatar.Accessory,
		p.Avatar.SpiritAnimal,
		p.Avatar.Title,
		nonNil(p.Avatar.UnlockedTitles),
		p.Statistics.TotalChoicesMade,
		p.Statistics.PerfectScenarios,
		p.Statistics.RegrettedChoices,
		p.Statistics.HelpedFriends,
		p.Statistics.LongestStreak,
		p.Statistics.PlayTimeMinutes,
		p.Statistics.CommunityVotes,
		p.Streak.CurrentStreak,
		p.Streak.LastLoginAt,
		p.Streak.StreakMultiplier,
		p.Streak.TotalDaysPlayed,
		p.CreatedAt,
		p.LastLoginAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	b := &pgx.Batch{}

	for _, id := range st.EarnedBadges {
		b.Queue(`
			INSERT INTO user_badges (user_id, badge_id, earned_at, progress)
			VALUES ($1, $2, $3, 100)
			ON CONFLICT (user_id, badge_id) DO NOTHING`,
			t.userID, id, now)
	}

	b.Queue(`DELETE FROM daily_quests WHERE user_id = $1`, t.userID)
	for i, q := range st.Quests {
		b.Queue(`
			INSERT INTO daily_quests (
				quest_id, user_id, title, description, type,
				action, required_count, specific_target,
				reward_crystals, reward_wisdom_points, reward_xp, reward_gift_box,
				expires_at, is_completed, progress, position
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			q.ID, t.userID, q.Title, q.Description, q.Type,
			q.Requirement.Action, q.Requirement.Count, q.Requirement.SpecificTarget,
			q.Reward.Crystals, q.Reward.WisdomPoints, q.Reward.ExperiencePoints, q.Reward.GiftBox,
			q.ExpiresAt, q.IsCompleted, q.Progress, i)
	}

	if pt := st.Playthrough; pt != nil {
		b.Queue(`
			INSERT INTO playthroughs (user_id, scenario_id, current_chapter_id, choices, total_impact, perfect, started_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO UPDATE SET
				scenario_id = EXCLUDED.scenario_id,
				current_chapter_id = EXCLUDED.current_chapter_id,
				choices = EXCLUDED.choices,
				total_impact = EXCLUDED.total_impact,
				perfect = EXCLUDED.perfect,
				started_at = EXCLUDED.started_at`,
			t.userID, pt.ScenarioID, pt.CurrentChapterID, nonNil(pt.Choices), pt.TotalImpact, pt.Perfect, pt.StartedAt)
	} else {
		b.Queue(`DELETE FROM playthroughs WHERE user_id = $1`, t.userID)
	}

	for id, n := range st.ScenarioCompletions {
		b.Queue(`
			INSERT INTO scenario_completions (user_id, scenario_id, count)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, scenario_id) DO UPDATE SET count = EXCLUDED.count`,
			t.userID, id, n)
	}

	if err := t.tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// AddJournalEntry inserts one journal entry.
func (t *pgTx) AddJournalEntry(ctx context.Context, e model.JournalEntry) error {
	const query = `
		INSERT INTO journal_entries (
			entry_id, user_id, scenario_id, scenario_title, choices_made,
			reflection, emotion, regret_level, created_at, is_private
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.tx.Exec(ctx, query,
		e.ID, t.userID, e.ScenarioID, e.ScenarioTitle, nonNil(e.ChoicesMade),
		e.Reflection, e.Emotion, e.RegretLevel, e.CreatedAt, e.IsPrivate,
	)
	if err != nil {
		return fmt.Errorf("failed to add journal entry: %w", err)
	}
	return nil
}

// nonNil keeps NOT NULL array columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
