package engine

import (
	"conscience-engine/internal/model"
)

// State is one user's snapshot as the pipeline sees it.
type State struct {
	Profile      *model.UserProfile
	EarnedBadges []string
	Quests       []model.DailyQuest
	// Playthrough is nil when no scenario is in progress.
	Playthrough         *model.Playthrough
	ScenarioCompletions map[string]int
	JournalEntries      int
}

// NewState returns the state of a user seen for the first time.
func NewState(profile *model.UserProfile) *State {
	return &State{
		Profile:             profile,
		ScenarioCompletions: make(map[string]int),
	}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := &State{
		Profile:             s.Profile.Clone(),
		EarnedBadges:        append([]string(nil), s.EarnedBadges...),
		Quests:              append([]model.DailyQuest(nil), s.Quests...),
		Playthrough:         s.Playthrough.Clone(),
		ScenarioCompletions: make(map[string]int, len(s.ScenarioCompletions)),
		JournalEntries:      s.JournalEntries,
	}
	for k, v := range s.ScenarioCompletions {
		c.ScenarioCompletions[k] = v
	}
	return c
}

// HasBadge reports whether the user already earned a badge.
func (s *State) HasBadge(id string) bool {
	for _, b := range s.EarnedBadges {
		if b == id {
			return true
		}
	}
	return false
}
