package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conscience-engine/internal/badge"
	"conscience-engine/internal/conscience"
	"conscience-engine/internal/model"
	"conscience-engine/internal/progression"
	"conscience-engine/internal/quest"
	"conscience-engine/internal/scenario"
	"conscience-engine/internal/streak"
)

// Pipeline errors.
var (
	ErrNoPlaythrough    = errors.New("no scenario in progress")
	ErrChapterMismatch  = errors.New("chapter is not the current chapter")
	ErrScenarioLocked   = errors.New("scenario requires a higher level")
	ErrInvalidJournal   = errors.New("invalid journal entry")
	ErrScenarioMismatch = errors.New("scenario does not match the one in progress")
)

// Summary describes a finished scenario.
type Summary struct {
	ScenarioID    string                 `json:"scenario_id"`
	TotalImpact   model.ConscienceImpact `json:"total_impact"`
	DominantTrait string                 `json:"dominant_trait"`
	Perfect       bool                   `json:"perfect"`
	Choices       []string               `json:"choices"`
}

// ChoiceOutcome is the result of ApplyChoice.
type ChoiceOutcome struct {
	ChoiceID        string              `json:"choice_id"`
	Consequence     string              `json:"consequence"`
	LongTermEffect  string              `json:"long_term_effect,omitempty"`
	NextChapterID   string              `json:"next_chapter_id"`
	ChangedTraits   []model.Trait       `json:"changed_traits"`
	ExperienceGain  int                 `json:"experience_gain"`
	LevelUp         progression.LevelUp `json:"level_up"`
	Completed       *Summary            `json:"completed,omitempty"`
	Badges          []badge.Award       `json:"badges,omitempty"`
	QuestsCompleted []quest.Completion  `json:"quests_completed,omitempty"`
}

// DayOutcome is the result of AdvanceDay.
type DayOutcome struct {
	Streak          streak.Result      `json:"streak"`
	ExpiredQuests   int                `json:"expired_quests"`
	NewQuests       []model.DailyQuest `json:"new_quests,omitempty"`
	Badges          []badge.Award      `json:"badges,omitempty"`
	QuestsCompleted []quest.Completion `json:"quests_completed,omitempty"`
}

// JournalOutcome is the result of RecordJournal.
type JournalOutcome struct {
	Entry           model.JournalEntry `json:"entry"`
	Badges          []badge.Award      `json:"badges,omitempty"`
	QuestsCompleted []quest.Completion `json:"quests_completed,omitempty"`
}

// StartScenario opens a playthrough at the scenario's first chapter. Any
// playthrough already in progress is abandoned.
func StartScenario(rules Rules, st *State, def *scenario.Definition, now time.Time) (*model.Playthrough, error) {
	if err := scenario.Validate(def); err != nil {
		return nil, err
	}
	if !def.Unlocked(st.Profile.Level) {
		return nil, fmt.Errorf("%w: %s needs level %d", ErrScenarioLocked, def.ID, def.RequiredLevel)
	}

	st.Playthrough = &model.Playthrough{
		UserID:           st.Profile.UserID,
		ScenarioID:       def.ID,
		CurrentChapterID: def.First().ID,
		Perfect:          true,
		StartedAt:        now,
	}
	return st.Playthrough, nil
}

// ApplyChoice plays choiceID in chapterID of the user's current playthrough.
// Validation errors return before st is touched.
func ApplyChoice(rules Rules, st *State, def *scenario.Definition, chapterID, choiceID string, now time.Time) (*ChoiceOutcome, error) {
	pt := st.Playthrough
	if pt == nil {
		return nil, ErrNoPlaythrough
	}
	if pt.ScenarioID != def.ID {
		return nil, fmt.Errorf("%w: playing %q, got %q", ErrScenarioMismatch, pt.ScenarioID, def.ID)
	}
	if pt.CurrentChapterID != chapterID {
		return nil, fmt.Errorf("%w: at %q, got %q", ErrChapterMismatch, pt.CurrentChapterID, chapterID)
	}

	res, err := scenario.ResolveNext(def, chapterID, choiceID)
	if err != nil {
		return nil, err
	}

	p := st.Profile
	impact := res.Choice.Impact
	out := &ChoiceOutcome{
		ChoiceID:       choiceID,
		Consequence:    res.Consequence,
		LongTermEffect: res.LongTerm,
		NextChapterID:  res.Next.ID,
	}

	// AddExperience rejects before mutating, so it goes first
	out.ExperienceGain = progression.ChoiceXP(impact, rules.ChoiceBaseXP, p.Streak.StreakMultiplier)
	levelUp, err := rules.Levels.AddExperience(p, out.ExperienceGain)
	if err != nil {
		return nil, fmt.Errorf("failed to add choice experience: %w", err)
	}
	out.LevelUp = levelUp

	out.ChangedTraits = conscience.Apply(&p.Conscience, impact)
	p.Statistics.TotalChoicesMade++

	pt.Choices = append(pt.Choices, choiceID)
	pt.TotalImpact = conscience.Accumulate(pt.TotalImpact, impact)
	if impact.HasNegative() {
		pt.Perfect = false
	}
	pt.CurrentChapterID = res.Next.ID

	if impact.Honesty > 0 {
		out.QuestsCompleted = append(out.QuestsCompleted,
			quest.Record(st.Quests, model.ActionMakeHonestChoice, 1, now, p, rules.Levels)...)
	}

	if res.Ends() {
		out.Completed = complete(rules, st, def, now)
		out.QuestsCompleted = append(out.QuestsCompleted,
			quest.Record(st.Quests, model.ActionCompleteScenario, 1, now, p, rules.Levels)...)
	}

	awards, done := evaluateBadges(rules, st, now)
	out.Badges = awards
	out.QuestsCompleted = append(out.QuestsCompleted, done...)
	return out, nil
}

func complete(rules Rules, st *State, def *scenario.Definition, now time.Time) *Summary {
	p := st.Profile
	pt := st.Playthrough

	p.TotalScenarios++
	p.Statistics.PlayTimeMinutes += def.EstimatedTime
	if pt.Perfect {
		p.Statistics.PerfectScenarios++
	}
	if st.ScenarioCompletions == nil {
		st.ScenarioCompletions = make(map[string]int)
	}
	st.ScenarioCompletions[def.ID]++

	st.Playthrough = nil
	return &Summary{
		ScenarioID:    def.ID,
		TotalImpact:   pt.TotalImpact,
		DominantTrait: conscience.DominantTrait(p.Conscience),
		Perfect:       pt.Perfect,
		Choices:       pt.Choices,
	}
}

// AdvanceDay records a session at now: it updates the streak, refreshes
// daily quests and re-checks badges.
func AdvanceDay(rules Rules, st *State, now time.Time) *DayOutcome {
	p := st.Profile
	out := &DayOutcome{Streak: rules.Streaks.Check(p, now)}

	before := len(st.Quests)
	kept, created := quest.GenerateDaily(p.UserID, st.Quests, now, rules.Streaks.Location(), rules.Quests)
	out.ExpiredQuests = before - len(kept)
	out.NewQuests = created
	st.Quests = append(kept, created...)

	if out.Streak.Status == streak.Continued || out.Streak.Status == streak.Broken {
		out.QuestsCompleted = quest.Record(st.Quests, model.ActionLoginConsecutiveDays, 1, now, p, rules.Levels)
	}

	awards, done := evaluateBadges(rules, st, now)
	out.Badges = awards
	out.QuestsCompleted = append(out.QuestsCompleted, done...)
	return out
}

// RecordJournal stores a reflection against the user's counters.
func RecordJournal(rules Rules, st *State, entry model.JournalEntry, now time.Time) (*JournalOutcome, error) {
	if entry.RegretLevel < 0 || entry.RegretLevel > model.MaxRegretLevel {
		return nil, fmt.Errorf("%w: regret level %d out of range", ErrInvalidJournal, entry.RegretLevel)
	}
	if entry.Reflection == "" {
		return nil, fmt.Errorf("%w: empty reflection", ErrInvalidJournal)
	}

	p := st.Profile
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.UserID = p.UserID
	entry.CreatedAt = now

	st.JournalEntries++
	if entry.RegretLevel >= rules.RegretThreshold {
		p.Statistics.RegrettedChoices++
	}

	out := &JournalOutcome{Entry: entry}
	out.QuestsCompleted = quest.Record(st.Quests, model.ActionWriteJournalEntry, 1, now, p, rules.Levels)

	awards, done := evaluateBadges(rules, st, now)
	out.Badges = awards
	out.QuestsCompleted = append(out.QuestsCompleted, done...)
	return out, nil
}

// evaluateBadges awards newly met badges and counts them toward badge quests.
func evaluateBadges(rules Rules, st *State, now time.Time) ([]badge.Award, []quest.Completion) {
	facts := badge.Facts{
		ScenarioCompletions: st.ScenarioCompletions,
		JournalEntries:      st.JournalEntries,
		NightPlay:           rules.IsNight(now),
	}
	awards := rules.Badges.Evaluate(st.Profile, facts, st.EarnedBadges, now)
	if len(awards) == 0 {
		return nil, nil
	}
	for _, a := range awards {
		st.EarnedBadges = append(st.EarnedBadges, a.Badge.ID)
	}
	done := quest.Record(st.Quests, model.ActionEarnBadge, len(awards), now, st.Profile, rules.Levels)
	return awards, done
}
