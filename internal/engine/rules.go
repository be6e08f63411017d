// Package engine runs one user event (a choice, a new day, a journal entry)
// through the conscience, progression, streak, badge and quest rules.
//
// Every function here is synchronous and does no I/O. Callers load a State,
// hand it in, and persist it afterwards.
package engine

import (
	"time"

	"conscience-engine/internal/badge"
	"conscience-engine/internal/progression"
	"conscience-engine/internal/quest"
	"conscience-engine/internal/streak"
)

// Night play window, in local hours [NightStartHour, NightEndHour).
const (
	NightStartHour = 0
	NightEndHour   = 5
)

// DefaultChoiceBaseXP is the XP for a choice with a zero impact.
const DefaultChoiceBaseXP = 10

// DefaultRegretThreshold is the journal regret level counted as a regretted
// choice.
const DefaultRegretThreshold = 3

// Rules is the immutable rule set shared by every event. Build it once at
// startup.
type Rules struct {
	Badges          *badge.Catalog
	Levels          progression.Engine
	Quests          []quest.Template
	Streaks         *streak.Engine
	ChoiceBaseXP    int
	RegretThreshold int
}

// DefaultRules returns the standard rule set with UTC day boundaries.
func DefaultRules() Rules {
	return NewRules(time.UTC, DefaultChoiceBaseXP)
}

// NewRules returns the standard catalogs with a custom zone and base XP.
func NewRules(loc *time.Location, choiceBaseXP int) Rules {
	return Rules{
		Badges:          badge.DefaultCatalog(),
		Levels:          progression.DefaultEngine(),
		Quests:          quest.DefaultTemplates(),
		Streaks:         streak.New(loc),
		ChoiceBaseXP:    choiceBaseXP,
		RegretThreshold: DefaultRegretThreshold,
	}
}

// IsNight reports whether now falls in the night play window of the rules'
// zone.
func (r Rules) IsNight(now time.Time) bool {
	h := now.In(r.Streaks.Location()).Hour()
	return h >= NightStartHour && h < NightEndHour
}
