// Package quest generates daily quests and tracks their progress.
package quest

import (
	"time"

	"github.com/google/uuid"

	"conscience-engine/internal/model"
	"conscience-engine/internal/progression"
)

// Lifetime is how long a generated daily quest stays live.
const Lifetime = 24 * time.Hour

// Template describes a quest GenerateDaily can create.
type Template struct {
	Title       string
	Description string
	Type        model.QuestType
	Requirement model.QuestRequirement
	Reward      model.QuestReward
}

// DefaultTemplates returns the daily quest set.
func DefaultTemplates() []Template {
	return []Template{
		{
			Title:       "Daily Hero",
			Description: "Complete one scenario",
			Type:        model.QuestDaily,
			Requirement: model.QuestRequirement{Action: model.ActionCompleteScenario, Count: 1},
			Reward:      model.QuestReward{Crystals: 50, WisdomPoints: 10, ExperiencePoints: 20},
		},
		{
			Title:       "Honest Heart",
			Description: "Make three honest choices",
			Type:        model.QuestDaily,
			Requirement: model.QuestRequirement{Action: model.ActionMakeHonestChoice, Count: 3},
			Reward:      model.QuestReward{Crystals: 30, WisdomPoints: 5, ExperiencePoints: 15},
		},
		{
			Title:       "Reflective Mind",
			Description: "Write one journal entry",
			Type:        model.QuestDaily,
			Requirement: model.QuestRequirement{Action: model.ActionWriteJournalEntry, Count: 1},
			Reward:      model.QuestReward{Crystals: 40, WisdomPoints: 8, ExperiencePoints: 10},
		},
		{
			Title:       "Show Up",
			Description: "Log in on a new day",
			Type:        model.QuestDaily,
			Requirement: model.QuestRequirement{Action: model.ActionLoginConsecutiveDays, Count: 1},
			Reward:      model.QuestReward{Crystals: 20, WisdomPoints: 5, ExperiencePoints: 10},
		},
	}
}

// NewID returns a fresh quest id.
var NewID = func() string { return uuid.NewString() }

// Current reports whether q belongs to now's calendar day in loc: it has
// not expired and was issued on that same day.
func Current(q model.DailyQuest, now time.Time, loc *time.Location) bool {
	if q.Expired(now) {
		return false
	}
	iy, im, id := q.ExpiresAt.Add(-Lifetime).In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return iy == ny && im == nm && id == nd
}

// GenerateDaily drops quests that are no longer current in loc (expired, or
// issued on an earlier day) and creates one quest per template whose action
// has no current quest left. It returns the surviving quests and the newly
// created ones separately.
func GenerateDaily(userID string, existing []model.DailyQuest, now time.Time, loc *time.Location, templates []Template) (kept, created []model.DailyQuest) {
	live := make(map[model.QuestAction]struct{}, len(existing))
	for _, q := range existing {
		if !Current(q, now, loc) {
			continue
		}
		kept = append(kept, q)
		live[q.Requirement.Action] = struct{}{}
	}

	for _, t := range templates {
		if _, ok := live[t.Requirement.Action]; ok {
			continue
		}
		live[t.Requirement.Action] = struct{}{}
		created = append(created, model.DailyQuest{
			ID:          NewID(),
			UserID:      userID,
			Title:       t.Title,
			Description: t.Description,
			Type:        t.Type,
			Requirement: t.Requirement,
			Reward:      t.Reward,
			ExpiresAt:   now.Add(Lifetime),
		})
	}
	return kept, created
}

// RecordProgress adds amount to q when it counts action and is still open.
// Progress is capped at the required count. It reports whether this call
// completed the quest.
func RecordProgress(q *model.DailyQuest, action model.QuestAction, amount int, now time.Time) bool {
	if q.IsCompleted || q.Expired(now) || q.Requirement.Action != action || amount <= 0 {
		return false
	}
	q.Progress += amount
	if q.Progress >= q.Requirement.Count {
		q.Progress = q.Requirement.Count
		q.IsCompleted = true
		return true
	}
	return false
}

// Completion is a quest finished by Record.
type Completion struct {
	Quest   model.DailyQuest    `json:"quest"`
	LevelUp progression.LevelUp `json:"level_up"`
}

// Record applies action to every quest in quests and grants the reward of
// each one it completes.
func Record(quests []model.DailyQuest, action model.QuestAction, amount int, now time.Time, profile *model.UserProfile, levels progression.Engine) []Completion {
	var done []Completion
	for i := range quests {
		if !RecordProgress(&quests[i], action, amount, now) {
			continue
		}
		up := ApplyReward(profile, quests[i].Reward, levels)
		done = append(done, Completion{Quest: quests[i], LevelUp: up})
	}
	return done
}

// ApplyReward credits a quest reward to profile. Experience goes through the
// level table so milestone rewards still apply.
func ApplyReward(profile *model.UserProfile, r model.QuestReward, levels progression.Engine) progression.LevelUp {
	profile.Currency.Crystals += r.Crystals
	profile.Currency.WisdomPoints += r.WisdomPoints
	if r.GiftBox {
		profile.Currency.GiftBoxes++
	}
	// reward XP is never negative
	up, _ := levels.AddExperience(profile, max(r.ExperiencePoints, 0))
	return up
}
