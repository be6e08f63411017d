package quest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conscience-engine/internal/model"
	"conscience-engine/internal/progression"
)

var questNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func TestGenerateDaily_Fresh(t *testing.T) {
	kept, created := GenerateDaily("u1", nil, questNow, time.UTC, DefaultTemplates())
	assert.Empty(t, kept)
	require.Len(t, created, 4)

	seen := map[string]bool{}
	for _, q := range created {
		assert.Equal(t, "u1", q.UserID)
		assert.Equal(t, questNow.Add(24*time.Hour), q.ExpiresAt)
		assert.False(t, q.IsCompleted)
		assert.Zero(t, q.Progress)
		assert.NotEmpty(t, q.ID)
		assert.False(t, seen[q.ID], "duplicate id")
		seen[q.ID] = true
	}
	assert.Equal(t, model.ActionCompleteScenario, created[0].Requirement.Action)
	assert.Equal(t, 50, created[0].Reward.Crystals)
	assert.Equal(t, 3, created[1].Requirement.Count)
}

func TestGenerateDaily_PurgesExpiredAndKeepsLive(t *testing.T) {
	_, first := GenerateDaily("u1", nil, questNow, time.UTC, DefaultTemplates())

	// half a day later nothing is regenerated
	kept, created := GenerateDaily("u1", first, questNow.Add(12*time.Hour), time.UTC, DefaultTemplates())
	assert.Len(t, kept, 4)
	assert.Empty(t, created)

	// exactly at expiry everything is replaced
	kept, created = GenerateDaily("u1", first, questNow.Add(24*time.Hour), time.UTC, DefaultTemplates())
	assert.Empty(t, kept)
	assert.Len(t, created, 4)
}

func TestGenerateDaily_CompletedLiveQuestBlocksRegeneration(t *testing.T) {
	_, first := GenerateDaily("u1", nil, questNow, time.UTC, DefaultTemplates())
	first[0].IsCompleted = true
	first[0].Progress = 1

	kept, created := GenerateDaily("u1", first, questNow.Add(time.Hour), time.UTC, DefaultTemplates())
	assert.Len(t, kept, 4)
	assert.Empty(t, created)
	assert.True(t, kept[0].IsCompleted)
}

func TestGenerateDaily_NewCalendarDayReplacesQuests(t *testing.T) {
	loc := time.FixedZone("UTC-10", -10*60*60)
	// Monday 20:00 and Tuesday 08:00 local, both on Tuesday in UTC
	mon := time.Date(2026, 6, 1, 20, 0, 0, 0, loc)
	tue := time.Date(2026, 6, 2, 8, 0, 0, 0, loc)

	_, first := GenerateDaily("u1", nil, mon, loc, DefaultTemplates())
	first[0].IsCompleted = true

	kept, created := GenerateDaily("u1", first, tue, loc, DefaultTemplates())
	assert.Empty(t, kept)
	require.Len(t, created, 4)
	assert.False(t, created[0].IsCompleted)
	assert.Equal(t, tue.Add(Lifetime), created[0].ExpiresAt)

	// the same two instants share a UTC day, so UTC keeps the quests
	_, utcFirst := GenerateDaily("u1", nil, mon.In(time.UTC), time.UTC, DefaultTemplates())
	kept, created = GenerateDaily("u1", utcFirst, tue.In(time.UTC), time.UTC, DefaultTemplates())
	assert.Len(t, kept, 4)
	assert.Empty(t, created)
}

func TestCurrent(t *testing.T) {
	q := model.DailyQuest{ExpiresAt: questNow.Add(Lifetime)}

	assert.True(t, Current(q, questNow, time.UTC))
	assert.True(t, Current(q, time.Date(2026, 6, 1, 23, 59, 0, 0, time.UTC), time.UTC))
	assert.False(t, Current(q, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), time.UTC))
	assert.False(t, Current(q, questNow.Add(Lifetime), time.UTC))
}

func TestRecordProgress(t *testing.T) {
	q := model.DailyQuest{
		Requirement: model.QuestRequirement{Action: model.ActionMakeHonestChoice, Count: 3},
		ExpiresAt:   questNow.Add(time.Hour),
	}

	assert.False(t, RecordProgress(&q, model.ActionCompleteScenario, 1, questNow))
	assert.Zero(t, q.Progress)

	assert.False(t, RecordProgress(&q, model.ActionMakeHonestChoice, 2, questNow))
	assert.Equal(t, 2, q.Progress)

	assert.True(t, RecordProgress(&q, model.ActionMakeHonestChoice, 5, questNow))
	assert.Equal(t, 3, q.Progress)
	assert.True(t, q.IsCompleted)

	// completion flips once
	assert.False(t, RecordProgress(&q, model.ActionMakeHonestChoice, 1, questNow))
	assert.Equal(t, 3, q.Progress)
}

func TestRecordProgress_ExpiredQuestNeverReopens(t *testing.T) {
	q := model.DailyQuest{
		Requirement: model.QuestRequirement{Action: model.ActionWriteJournalEntry, Count: 1},
		ExpiresAt:   questNow,
	}
	assert.False(t, RecordProgress(&q, model.ActionWriteJournalEntry, 1, questNow))
	assert.False(t, q.IsCompleted)
	assert.Zero(t, q.Progress)
}

func TestRecord_AppliesRewardOnce(t *testing.T) {
	_, quests := GenerateDaily("u1", nil, questNow, time.UTC, DefaultTemplates())
	p := model.NewUserProfile("u1", questNow)
	levels := progression.DefaultEngine()

	done := Record(quests, model.ActionWriteJournalEntry, 1, questNow, p, levels)
	require.Len(t, done, 1)
	assert.Equal(t, model.ActionWriteJournalEntry, done[0].Quest.Requirement.Action)
	assert.Equal(t, model.DefaultCrystals+40, p.Currency.Crystals)
	assert.Equal(t, 8, p.Currency.WisdomPoints)
	assert.Equal(t, 10, p.ExperiencePoints)
	assert.True(t, quests[2].IsCompleted)

	done = Record(quests, model.ActionWriteJournalEntry, 1, questNow, p, levels)
	assert.Empty(t, done)
	assert.Equal(t, model.DefaultCrystals+40, p.Currency.Crystals)
}

func TestApplyReward_GiftBoxAndLevel(t *testing.T) {
	p := model.NewUserProfile("u1", questNow)
	p.ExperiencePoints = 95

	up := ApplyReward(p, model.QuestReward{Crystals: 5, ExperiencePoints: 10, GiftBox: true}, progression.DefaultEngine())
	assert.Equal(t, 2, up.NewLevel)
	assert.Equal(t, model.DefaultGiftBoxes+1, p.Currency.GiftBoxes)
	// 5 from the quest plus 75 for reaching level 2
	assert.Equal(t, model.DefaultCrystals+80, p.Currency.Crystals)
}
