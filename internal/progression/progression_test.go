package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"conscience-engine/internal/model"
)

func TestLevelFromXP_Anchors(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{249, 2},
		{250, 3},
		{1000, 5},
		{9000, 10},
		{12999, 10},
		{13000, 10},
		{14999, 10},
		{15000, 11},
		{17000, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFromXP(tt.xp), "xp=%d", tt.xp)
	}
}

// TestLevelFromXPMonotonicProperty checks that more XP never means a lower level.
func TestLevelFromXPMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.IntRange(0, 200000).Draw(rt, "a")
		b := rapid.IntRange(0, 200000).Draw(rt, "b")
		if a > b {
			a, b = b, a
		}
		if LevelFromXP(a) > LevelFromXP(b) {
			rt.Fatalf("level(%d)=%d > level(%d)=%d", a, LevelFromXP(a), b, LevelFromXP(b))
		}
	})
}

func TestAddExperience_MilestoneReward(t *testing.T) {
	e := DefaultEngine()
	p := model.NewUserProfile("user-1", time.Now())

	up, err := e.AddExperience(p, 120)
	require.NoError(t, err)
	assert.Equal(t, 1, up.OldLevel)
	assert.Equal(t, 2, up.NewLevel)
	assert.Equal(t, 75, up.CrystalsAwarded)
	assert.Equal(t, model.DefaultCrystals+75, p.Currency.Crystals)

	// level 2 -> 3 is not a milestone
	up, err = e.AddExperience(p, 200)
	require.NoError(t, err)
	assert.Equal(t, 3, up.NewLevel)
	assert.Zero(t, up.CrystalsAwarded)
	assert.Equal(t, model.DefaultCrystals+75, p.Currency.Crystals)
}

func TestAddExperience_SkippedMilestoneNotCredited(t *testing.T) {
	e := DefaultEngine()
	p := model.NewUserProfile("user-1", time.Now())

	// jumps 1 -> 6; neither 2 nor 5 is the landing level
	up, err := e.AddExperience(p, 1500)
	require.NoError(t, err)
	assert.Equal(t, 6, up.NewLevel)
	assert.Zero(t, up.CrystalsAwarded)
}

func TestAddExperience_Negative(t *testing.T) {
	e := DefaultEngine()
	p := model.NewUserProfile("user-1", time.Now())
	p.ExperiencePoints = 300
	p.Level = 3

	_, err := e.AddExperience(p, -10)
	assert.ErrorIs(t, err, ErrNegativeExperience)
	assert.Equal(t, 300, p.ExperiencePoints)
	assert.Equal(t, 3, p.Level)
}

func TestAddExperience_NeverDecreasesProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		e := DefaultEngine()
		p := model.NewUserProfile("user", time.Time{})
		steps := rapid.SliceOfN(rapid.IntRange(0, 3000), 1, 30).Draw(rt, "steps")
		for _, xp := range steps {
			level, total := p.Level, p.ExperiencePoints
			if _, err := e.AddExperience(p, xp); err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			if p.Level < level || p.ExperiencePoints < total {
				rt.Fatalf("progress went backwards")
			}
		}
	})
}

func TestProgress(t *testing.T) {
	table := DefaultLevelTable()
	assert.InDelta(t, 0.0, table.Progress(0), 1e-9)
	assert.InDelta(t, 0.5, table.Progress(50), 1e-9)
	assert.InDelta(t, 0.5, table.Progress(12000), 1e-9) // level 10 spans 9000..15000
	assert.InDelta(t, 0.0, table.Progress(15000), 1e-9)

	finite := LevelTable{Floors: []int{0, 100}}
	assert.Equal(t, 2, finite.LevelFromXP(5000))
	assert.InDelta(t, 1.0, finite.Progress(5000), 1e-9)
}

func TestChoiceXP(t *testing.T) {
	assert.Equal(t, 30, ChoiceXP(model.ConscienceImpact{Honesty: 10}, 10, 1.0))
	assert.Equal(t, 45, ChoiceXP(model.ConscienceImpact{Honesty: 10}, 10, 1.5))
	assert.Equal(t, 0, ChoiceXP(model.ConscienceImpact{Honesty: -20}, 10, 3.0))
	assert.Equal(t, 10, ChoiceXP(model.ConscienceImpact{}, 10, 1.0))
	// 13 * 2.5 = 32.5 floors to 32
	assert.Equal(t, 32, ChoiceXP(model.ConscienceImpact{Wisdom: 1, Justice: 1, Courage: -1, Patience: 0, Empathy: 1, Honesty: -1, Responsibility: 0}, 11, 2.5))
}

// TestChoiceXPNeverNegativeProperty keeps AddExperience from ever rejecting a
// choice's XP, whatever the impact, base or multiplier.
func TestChoiceXPNeverNegativeProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		delta := rapid.IntRange(-50, 50)
		impact := model.ConscienceImpact{
			Honesty:        delta.Draw(rt, "honesty"),
			Justice:        delta.Draw(rt, "justice"),
			Empathy:        delta.Draw(rt, "empathy"),
			Responsibility: delta.Draw(rt, "responsibility"),
			Patience:       delta.Draw(rt, "patience"),
			Courage:        delta.Draw(rt, "courage"),
			Wisdom:         delta.Draw(rt, "wisdom"),
		}
		base := rapid.IntRange(-100, 100).Draw(rt, "base")
		mult := rapid.Float64Range(0, 3).Draw(rt, "multiplier")

		xp := ChoiceXP(impact, base, mult)
		if xp < 0 {
			rt.Fatalf("ChoiceXP = %d", xp)
		}
		p := model.NewUserProfile("user", time.Time{})
		if _, err := DefaultEngine().AddExperience(p, xp); err != nil {
			rt.Fatalf("AddExperience(%d): %v", xp, err)
		}
	})
}
