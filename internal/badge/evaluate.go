package badge

import (
	"time"

	"conscience-engine/internal/conscience"
	"conscience-engine/internal/model"
)

// Facts are signals the engine cannot derive from the profile alone.
type Facts struct {
	// ScenarioCompletions counts completions per scenario id.
	ScenarioCompletions map[string]int
	JournalEntries      int
	NightPlay           bool
}

// Award is a badge granted by Evaluate.
type Award struct {
	Badge    Badge     `json:"badge"`
	EarnedAt time.Time `json:"earned_at"`
}

// UserBadge converts the award into its stored form.
func (a Award) UserBadge(userID string) model.UserBadge {
	return model.UserBadge{
		UserID:   userID,
		BadgeID:  a.Badge.ID,
		EarnedAt: a.EarnedAt,
		Progress: 100,
	}
}

// Evaluate walks the catalog in order and awards every badge whose
// requirement is met and whose id is not in earned. Rewards are credited to
// profile. A badge is considered at most once per call.
func (c *Catalog) Evaluate(profile *model.UserProfile, facts Facts, earned []string, now time.Time) []Award {
	have := make(map[string]struct{}, len(earned))
	for _, id := range earned {
		have[id] = struct{}{}
	}

	var awards []Award
	for _, b := range c.badges {
		if _, ok := have[b.ID]; ok {
			continue
		}
		if !met(b.Requirement, profile, facts, len(have)) {
			continue
		}

		have[b.ID] = struct{}{}
		grant(profile, b.Reward)
		awards = append(awards, Award{Badge: b, EarnedAt: now})
	}
	return awards
}

func met(r Requirement, p *model.UserProfile, f Facts, badgeCount int) bool {
	switch r.Kind {
	case KindConsciencePoints:
		return conscience.TotalScore(p.Conscience) >= r.Threshold
	case KindScenariosCompleted:
		return p.TotalScenarios >= r.Threshold
	case KindPerfectChoices:
		return p.Statistics.PerfectScenarios >= r.Threshold
	case KindJournalEntries:
		return f.JournalEntries >= r.Threshold
	case KindCommunityVotes:
		return p.Statistics.CommunityVotes >= r.Threshold
	case KindDailyStreak:
		if p.Streak.CurrentStreak < r.Threshold {
			return false
		}
		return r.ConsecutiveDays == 0 || p.Streak.CurrentStreak == r.ConsecutiveDays
	case KindSpecificScenario:
		return f.ScenarioCompletions[r.ScenarioID] >= r.Threshold
	case KindNightPlay:
		return f.NightPlay
	case KindBadgesEarned:
		return badgeCount >= r.Threshold
	}
	return false
}

func grant(p *model.UserProfile, r Reward) {
	p.Currency.Crystals += r.Crystals
	p.Currency.WisdomPoints += r.WisdomPoints
	if r.SpecialTitle != "" && !p.Avatar.HasTitle(r.SpecialTitle) {
		p.Avatar.UnlockedTitles = append(p.Avatar.UnlockedTitles, r.SpecialTitle)
	}
}
