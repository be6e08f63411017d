// Package service runs engine events against persisted user state.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"conscience-engine/internal/badge"
	"conscience-engine/internal/conscience"
	"conscience-engine/internal/engine"
	"conscience-engine/internal/model"
	"conscience-engine/internal/pkg/lock"
	"conscience-engine/internal/quest"
	"conscience-engine/internal/repository"
	"conscience-engine/internal/scenario"
)

// Service errors. Engine and scenario errors pass through unchanged.
var (
	ErrNoPlaythrough = engine.ErrNoPlaythrough
	ErrEmptyUserID   = errors.New("user id is required")
)

// DefaultLockTimeout bounds how long an event waits for the user's lock.
const DefaultLockTimeout = 5 * time.Second

// Store persists engine state. repository.PostgresStore and
// repository.MemoryStore implement it.
type Store interface {
	InTx(ctx context.Context, userID string, fn func(tx repository.Tx) error) error
	Badges(ctx context.Context, userID string) ([]model.UserBadge, error)
	JournalEntries(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error)
}

// Options tunes an EngineService.
type Options struct {
	LockTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// EngineService serializes each user's events and persists every event's
// result as one unit.
type EngineService struct {
	store       Store
	scenarios   *scenario.Catalog
	rules       engine.Rules
	userLock    *lock.UserLock
	lockTimeout time.Duration
	now         func() time.Time
}

// NewEngineService creates a new EngineService instance.
func NewEngineService(
	store Store,
	scenarios *scenario.Catalog,
	rules engine.Rules,
	userLock *lock.UserLock,
	opts Options,
) *EngineService {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &EngineService{
		store:       store,
		scenarios:   scenarios,
		rules:       rules,
		userLock:    userLock,
		lockTimeout: opts.LockTimeout,
		now:         opts.Now,
	}
}

// ProfileView is a profile with derived values.
type ProfileView struct {
	Profile          *model.UserProfile `json:"profile"`
	DominantTrait    string             `json:"dominant_trait"`
	TotalScore       int                `json:"total_score"`
	LevelProgress    float64            `json:"level_progress"`
	Playthrough      *model.Playthrough `json:"playthrough,omitempty"`
	EarnedBadgeCount int                `json:"earned_badge_count"`
}

// BadgeStatus pairs a catalog badge with the user's award, if any.
type BadgeStatus struct {
	badge.Badge
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

// update runs fn on the user's state under the user lock and inside one
// store transaction. Unknown users get a fresh profile. When fn fails
// nothing is written. after, if set, runs once the state is saved.
func (s *EngineService) update(
	ctx context.Context,
	userID string,
	now time.Time,
	fn func(st *engine.State) error,
	after func(tx repository.Tx) error,
) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	return s.userLock.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		return s.store.InTx(ctx, userID, func(tx repository.Tx) error {
			st, err := tx.Load(ctx)
			if errors.Is(err, repository.ErrUserNotFound) {
				st = engine.NewState(model.NewUserProfile(userID, now))
				log.Info().Str("user_id", userID).Msg("Created new profile")
			} else if err != nil {
				return err
			}

			work := st.Clone()
			if err := fn(work); err != nil {
				return err
			}
			if err := tx.Save(ctx, work, now); err != nil {
				return err
			}
			if after != nil {
				return after(tx)
			}
			return nil
		})
	})
}

// StartSession records a visit: the streak is checked and daily quests are
// refreshed.
func (s *EngineService) StartSession(ctx context.Context, userID string) (*engine.DayOutcome, error) {
	now := s.now()
	var out *engine.DayOutcome
	err := s.update(ctx, userID, now, func(st *engine.State) error {
		out = engine.AdvanceDay(s.rules, st, now)
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	if out.Streak.Warning != nil {
		log.Warn().Err(out.Streak.Warning).Str("user_id", userID).Msg("Streak left unchanged")
	}
	log.Info().
		Str("user_id", userID).
		Str("streak_status", out.Streak.Status.String()).
		Int("streak", out.Streak.Streak).
		Int("new_quests", len(out.NewQuests)).
		Int("badges", len(out.Badges)).
		Msg("Session started")
	return out, nil
}

// GetProfile returns the user's profile. An unknown user is created and
// saved; a known one is only read.
func (s *EngineService) GetProfile(ctx context.Context, userID string) (*ProfileView, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	now := s.now()
	var view *ProfileView
	err := s.userLock.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		return s.store.InTx(ctx, userID, func(tx repository.Tx) error {
			st, err := tx.Load(ctx)
			if errors.Is(err, repository.ErrUserNotFound) {
				st = engine.NewState(model.NewUserProfile(userID, now))
				if err := tx.Save(ctx, st, now); err != nil {
					return err
				}
				log.Info().Str("user_id", userID).Msg("Created new profile")
			} else if err != nil {
				return err
			}
			view = s.profileView(st)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *EngineService) profileView(st *engine.State) *ProfileView {
	p := st.Profile.Clone()
	return &ProfileView{
		Profile:          p,
		DominantTrait:    conscience.DominantTrait(p.Conscience),
		TotalScore:       conscience.TotalScore(p.Conscience),
		LevelProgress:    s.rules.Levels.ProgressToNextLevel(p),
		Playthrough:      st.Playthrough.Clone(),
		EarnedBadgeCount: len(st.EarnedBadges),
	}
}

// Scenarios lists the loaded scenario summaries.
func (s *EngineService) Scenarios() []scenario.Summary {
	return s.scenarios.List()
}

// Scenario returns one scenario definition.
func (s *EngineService) Scenario(ctx context.Context, scenarioID string) (*scenario.Definition, error) {
	return s.scenarios.Get(ctx, scenarioID)
}

// StartScenario opens a playthrough of scenarioID at its first chapter.
func (s *EngineService) StartScenario(ctx context.Context, userID, scenarioID string) (*model.Playthrough, error) {
	def, err := s.scenarios.Get(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var pt *model.Playthrough
	err = s.update(ctx, userID, now, func(st *engine.State) error {
		started, err := engine.StartScenario(s.rules, st, def, now)
		if err != nil {
			return err
		}
		pt = started.Clone()
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("scenario_id", scenarioID).
		Str("chapter_id", pt.CurrentChapterID).
		Msg("Scenario started")
	return pt, nil
}

// MakeChoice applies one choice of the user's current playthrough.
func (s *EngineService) MakeChoice(ctx context.Context, userID, scenarioID, chapterID, choiceID string) (*engine.ChoiceOutcome, error) {
	def, err := s.scenarios.Get(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var out *engine.ChoiceOutcome
	err = s.update(ctx, userID, now, func(st *engine.State) error {
		var err error
		out, err = engine.ApplyChoice(s.rules, st, def, chapterID, choiceID, now)
		return err
	}, nil)
	if err != nil {
		log.Debug().
			Err(err).
			Str("user_id", userID).
			Str("scenario_id", scenarioID).
			Str("choice_id", choiceID).
			Msg("Choice rejected")
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("scenario_id", scenarioID).
		Str("choice_id", choiceID).
		Str("next_chapter_id", out.NextChapterID).
		Int("xp", out.ExperienceGain).
		Bool("completed", out.Completed != nil).
		Int("badges", len(out.Badges)).
		Msg("Choice applied")
	if out.LevelUp.Leveled() {
		log.Info().
			Str("user_id", userID).
			Int("old_level", out.LevelUp.OldLevel).
			Int("new_level", out.LevelUp.NewLevel).
			Msg("Level up")
	}
	return out, nil
}

// WriteJournal records a reflection. A known scenario id fills in the
// scenario title.
func (s *EngineService) WriteJournal(ctx context.Context, userID string, entry model.JournalEntry) (*engine.JournalOutcome, error) {
	if entry.ScenarioID != "" && entry.ScenarioTitle == "" {
		if def, err := s.scenarios.Get(ctx, entry.ScenarioID); err == nil {
			entry.ScenarioTitle = def.Title
		}
	}

	now := s.now()
	var out *engine.JournalOutcome
	err := s.update(ctx, userID, now, func(st *engine.State) error {
		var err error
		out, err = engine.RecordJournal(s.rules, st, entry, now)
		return err
	}, func(tx repository.Tx) error {
		return tx.AddJournalEntry(ctx, out.Entry)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID).
		Str("entry_id", out.Entry.ID).
		Int("regret_level", out.Entry.RegretLevel).
		Msg("Journal entry written")
	return out, nil
}

// JournalEntries returns the user's most recent entries.
func (s *EngineService) JournalEntries(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	entries, err := s.store.JournalEntries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return entries, nil
}

// ListBadges returns the whole badge catalog with the user's awards marked.
func (s *EngineService) ListBadges(ctx context.Context, userID string) ([]BadgeStatus, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	earned, err := s.store.Badges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}

	at := make(map[string]time.Time, len(earned))
	for _, b := range earned {
		at[b.BadgeID] = b.EarnedAt
	}

	all := s.rules.Badges.All()
	out := make([]BadgeStatus, 0, len(all))
	for _, b := range all {
		st := BadgeStatus{Badge: b}
		if t, ok := at[b.ID]; ok {
			st.Earned = true
			st.EarnedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}

// ListQuests returns the user's quests for the current day.
func (s *EngineService) ListQuests(ctx context.Context, userID string) ([]model.DailyQuest, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	now := s.now()
	loc := s.rules.Streaks.Location()
	var quests []model.DailyQuest
	err := s.store.InTx(ctx, userID, func(tx repository.Tx) error {
		st, err := tx.Load(ctx)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, q := range st.Quests {
			if quest.Current(q, now, loc) {
				quests = append(quests, q)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	return quests, nil
}
