package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"conscience-engine/internal/model"
)

var evalTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func ids(awards []Award) []string {
	out := make([]string, 0, len(awards))
	for _, a := range awards {
		out = append(out, a.Badge.ID)
	}
	return out
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, 41, c.Len())

	b, ok := c.Get("badge_ultimate_2")
	require.True(t, ok)
	assert.Equal(t, KindBadgesEarned, b.Requirement.Kind)

	for _, b := range c.ByKind(KindSpecificScenario) {
		assert.NotEmpty(t, b.Requirement.ScenarioID, b.ID)
	}
	assert.Len(t, c.ByKind(KindNightPlay), 1)
	assert.Len(t, c.ByCategory(CategoryCommunity), 2)
}

func TestNewCatalog_DuplicateID(t *testing.T) {
	_, err := NewCatalog([]Badge{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)
}

func TestEvaluate_ConsciencePoints(t *testing.T) {
	c, err := NewCatalog([]Badge{
		{ID: "ten", Requirement: points(10), Reward: Reward{Crystals: 50, WisdomPoints: 10, SpecialTitle: "Honest"}},
		{ID: "fifty", Requirement: points(50), Reward: Reward{Crystals: 100}},
	})
	require.NoError(t, err)

	p := model.NewUserProfile("u1", evalTime)
	p.Conscience.Honesty = 10

	awards := c.Evaluate(p, Facts{}, nil, evalTime)
	assert.Equal(t, []string{"ten"}, ids(awards))
	assert.Equal(t, model.DefaultCrystals+50, p.Currency.Crystals)
	assert.Equal(t, 10, p.Currency.WisdomPoints)
	assert.Equal(t, []string{"Honest"}, p.Avatar.UnlockedTitles)
	// titles are unlocked, not applied
	assert.Equal(t, model.DefaultTitle, p.Avatar.Title)

	ub := awards[0].UserBadge("u1")
	assert.Equal(t, "ten", ub.BadgeID)
	assert.Equal(t, evalTime, ub.EarnedAt)
}

func TestEvaluate_Idempotent(t *testing.T) {
	c := DefaultCatalog()
	p := model.NewUserProfile("u1", evalTime)
	p.Conscience.Honesty = 12

	first := c.Evaluate(p, Facts{}, nil, evalTime)
	require.NotEmpty(t, first)
	crystals := p.Currency.Crystals
	wisdom := p.Currency.WisdomPoints

	second := c.Evaluate(p, Facts{}, ids(first), evalTime)
	assert.Empty(t, second)
	assert.Equal(t, crystals, p.Currency.Crystals)
	assert.Equal(t, wisdom, p.Currency.WisdomPoints)
}

func TestEvaluate_Kinds(t *testing.T) {
	tests := []struct {
		name  string
		req   Requirement
		setup func(p *model.UserProfile, f *Facts)
		want  bool
	}{
		{"scenarios met", Requirement{Kind: KindScenariosCompleted, Threshold: 2},
			func(p *model.UserProfile, f *Facts) { p.TotalScenarios = 2 }, true},
		{"scenarios short", Requirement{Kind: KindScenariosCompleted, Threshold: 2},
			func(p *model.UserProfile, f *Facts) { p.TotalScenarios = 1 }, false},
		{"perfect", Requirement{Kind: KindPerfectChoices, Threshold: 1},
			func(p *model.UserProfile, f *Facts) { p.Statistics.PerfectScenarios = 1 }, true},
		{"journal", Requirement{Kind: KindJournalEntries, Threshold: 3},
			func(p *model.UserProfile, f *Facts) { f.JournalEntries = 3 }, true},
		{"votes", Requirement{Kind: KindCommunityVotes, Threshold: 1},
			func(p *model.UserProfile, f *Facts) {}, false},
		{"streak", Requirement{Kind: KindDailyStreak, Threshold: 3},
			func(p *model.UserProfile, f *Facts) { p.Streak.CurrentStreak = 4 }, true},
		{"streak exact run", Requirement{Kind: KindDailyStreak, Threshold: 7, ConsecutiveDays: 7},
			func(p *model.UserProfile, f *Facts) { p.Streak.CurrentStreak = 7 }, true},
		{"streak past exact run", Requirement{Kind: KindDailyStreak, Threshold: 7, ConsecutiveDays: 7},
			func(p *model.UserProfile, f *Facts) { p.Streak.CurrentStreak = 8 }, false},
		{"specific scenario", Requirement{Kind: KindSpecificScenario, Threshold: 2, ScenarioID: "s1"},
			func(p *model.UserProfile, f *Facts) { f.ScenarioCompletions = map[string]int{"s1": 2} }, true},
		{"other scenario", Requirement{Kind: KindSpecificScenario, Threshold: 1, ScenarioID: "s1"},
			func(p *model.UserProfile, f *Facts) { f.ScenarioCompletions = map[string]int{"s2": 5} }, false},
		{"night", Requirement{Kind: KindNightPlay, Threshold: 1},
			func(p *model.UserProfile, f *Facts) { f.NightPlay = true }, true},
		{"day", Requirement{Kind: KindNightPlay, Threshold: 1},
			func(p *model.UserProfile, f *Facts) {}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCatalog([]Badge{{ID: "b", Requirement: tt.req}})
			require.NoError(t, err)

			p := model.NewUserProfile("u1", evalTime)
			var f Facts
			tt.setup(p, &f)

			got := c.Evaluate(p, f, nil, evalTime)
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestEvaluate_BadgesEarnedCountsSameCall(t *testing.T) {
	c, err := NewCatalog([]Badge{
		{ID: "a", Requirement: points(0)},
		{ID: "b", Requirement: points(0)},
		{ID: "meta", Requirement: Requirement{Kind: KindBadgesEarned, Threshold: 3}},
	})
	require.NoError(t, err)

	p := model.NewUserProfile("u1", evalTime)
	awards := c.Evaluate(p, Facts{}, []string{"legacy"}, evalTime)
	assert.Equal(t, []string{"a", "b", "meta"}, ids(awards))

	p2 := model.NewUserProfile("u2", evalTime)
	awards = c.Evaluate(p2, Facts{}, nil, evalTime)
	assert.Equal(t, []string{"a", "b"}, ids(awards))
}

func TestEvaluate_TitleNotDuplicated(t *testing.T) {
	c, err := NewCatalog([]Badge{
		{ID: "a", Requirement: points(0), Reward: Reward{SpecialTitle: "Sage"}},
		{ID: "b", Requirement: points(0), Reward: Reward{SpecialTitle: "Sage"}},
	})
	require.NoError(t, err)

	p := model.NewUserProfile("u1", evalTime)
	c.Evaluate(p, Facts{}, nil, evalTime)
	assert.Equal(t, []string{"Sage"}, p.Avatar.UnlockedTitles)
}

// TestEvaluateNeverReawardsProperty runs evaluation repeatedly while feeding
// back earned ids and checks no badge id is ever awarded twice.
func TestEvaluateNeverReawardsProperty(t *testing.T) {
	c := DefaultCatalog()
	rapid.Check(t, func(rt *rapid.T) {
		p := model.NewUserProfile("u", evalTime)
		var earned []string
		seen := map[string]bool{}

		rounds := rapid.IntRange(1, 6).Draw(rt, "rounds")
		for i := 0; i < rounds; i++ {
			p.Conscience.Honesty += rapid.IntRange(0, 150).Draw(rt, "honesty")
			p.TotalScenarios += rapid.IntRange(0, 20).Draw(rt, "scenarios")
			p.Streak.CurrentStreak += rapid.IntRange(0, 10).Draw(rt, "streak")
			facts := Facts{
				JournalEntries: rapid.IntRange(0, 40).Draw(rt, "journal"),
				NightPlay:      rapid.Bool().Draw(rt, "night"),
			}
			for _, a := range c.Evaluate(p, facts, earned, evalTime) {
				if seen[a.Badge.ID] {
					rt.Fatalf("badge %s awarded twice", a.Badge.ID)
				}
				seen[a.Badge.ID] = true
				earned = append(earned, a.Badge.ID)
			}
		}
	})
}
