// Package progression converts experience points into levels and level-up
// rewards.
package progression

import (
	"errors"
	"math"

	"conscience-engine/internal/model"
)

// ErrNegativeExperience is returned when a caller tries to remove experience.
var ErrNegativeExperience = errors.New("experience amount cannot be negative")

// LevelTable maps cumulative XP to levels. Floors[i] is the XP needed for
// level i+1. When OpenStep > 0, levels past the last floor continue every
// OpenStep XP starting at OpenBase.
type LevelTable struct {
	Floors   []int
	OpenBase int
	OpenStep int
}

// DefaultLevelTable returns the standard XP curve: ten fixed floors, then a
// new level every 2000 XP from 13000.
func DefaultLevelTable() LevelTable {
	return LevelTable{
		Floors:   []int{0, 100, 250, 500, 1000, 1500, 2500, 4000, 6000, 9000},
		OpenBase: 13000,
		OpenStep: 2000,
	}
}

// LevelFromXP returns the level reached with xp cumulative experience.
func (t LevelTable) LevelFromXP(xp int) int {
	level := 1
	for i, floor := range t.Floors {
		if xp >= floor {
			level = i + 1
		}
	}
	if t.OpenStep > 0 && xp >= t.OpenBase {
		// OpenBase itself belongs to the last fixed level.
		level = len(t.Floors) + (xp-t.OpenBase)/t.OpenStep
	}
	return level
}

// floor returns the XP at which level starts, and false when level is beyond
// a finite table.
func (t LevelTable) floor(level int) (int, bool) {
	if level < 1 {
		return 0, true
	}
	if level <= len(t.Floors) {
		return t.Floors[level-1], true
	}
	if t.OpenStep <= 0 {
		return 0, false
	}
	return t.OpenBase + (level-len(t.Floors))*t.OpenStep, true
}

// Progress returns how far xp sits between the current level's floor and the
// next one, in [0, 1]. A finite table reports 1 at its top level.
func (t LevelTable) Progress(xp int) float64 {
	level := t.LevelFromXP(xp)
	next, ok := t.floor(level + 1)
	if !ok {
		return 1.0
	}

	cur, _ := t.floor(level)
	span := next - cur
	if span <= 0 {
		return 1.0
	}
	p := float64(xp-cur) / float64(span)
	return math.Max(0, math.Min(1, p))
}

// RewardTable maps a level to the crystals credited when it is reached.
type RewardTable map[int]int

// DefaultRewards returns the milestone rewards.
func DefaultRewards() RewardTable {
	return RewardTable{
		1:  50,
		2:  75,
		5:  150,
		10: 300,
		20: 1000,
	}
}

// LevelUp describes the result of AddExperience.
type LevelUp struct {
	OldLevel        int `json:"old_level"`
	NewLevel        int `json:"new_level"`
	CrystalsAwarded int `json:"crystals_awarded"`
}

// Leveled reports whether the level changed.
func (l LevelUp) Leveled() bool {
	return l.NewLevel > l.OldLevel
}

// Engine bundles a level table with its milestone rewards.
type Engine struct {
	Table   LevelTable
	Rewards RewardTable
}

// DefaultEngine returns the standard table and rewards.
func DefaultEngine() Engine {
	return Engine{Table: DefaultLevelTable(), Rewards: DefaultRewards()}
}

// LevelFromXP returns the level reached with xp on the default table.
func LevelFromXP(xp int) int {
	return DefaultLevelTable().LevelFromXP(xp)
}

// AddExperience adds xp to the profile and recomputes its level. On a
// level-up the milestone entry for the new level, if any, is credited.
// Level and XP never decrease.
func (e Engine) AddExperience(profile *model.UserProfile, xp int) (LevelUp, error) {
	if xp < 0 {
		return LevelUp{OldLevel: profile.Level, NewLevel: profile.Level}, ErrNegativeExperience
	}

	out := LevelUp{OldLevel: profile.Level}
	profile.ExperiencePoints += xp

	level := e.Table.LevelFromXP(profile.ExperiencePoints)
	if level < profile.Level {
		level = profile.Level
	}
	profile.Level = level
	out.NewLevel = level

	if out.Leveled() {
		if crystals, ok := e.Rewards[level]; ok {
			profile.Currency.Crystals += crystals
			out.CrystalsAwarded = crystals
		}
	}
	return out, nil
}

// ProgressToNextLevel returns the profile's progress toward its next level.
func (e Engine) ProgressToNextLevel(profile *model.UserProfile) float64 {
	return e.Table.Progress(profile.ExperiencePoints)
}

// ChoiceXP returns the experience for one choice:
// floor(max(0, base + 2*sum(impact)) * multiplier).
func ChoiceXP(impact model.ConscienceImpact, base int, multiplier float64) int {
	raw := base + 2*impact.Sum()
	if raw < 0 {
		raw = 0
	}
	if multiplier < 1 {
		multiplier = 1
	}
	return int(math.Floor(float64(raw) * multiplier))
}
