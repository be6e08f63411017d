// Package badge defines the badge catalog and awards badges from profile
// state.
package badge

import "fmt"

// Category groups badges for display.
type Category string

const (
	CategoryHonesty        Category = "honesty"
	CategoryJustice        Category = "justice"
	CategoryEmpathy        Category = "empathy"
	CategoryResponsibility Category = "responsibility"
	CategoryPatience       Category = "patience"
	CategoryCourage        Category = "courage"
	CategoryWisdom         Category = "wisdom"
	CategorySpecial        Category = "special"
	CategorySeasonal       Category = "seasonal"
	CategoryCommunity      Category = "community"
)

// Rarity ranks badges.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
)

// Kind selects how a requirement is evaluated.
type Kind string

const (
	KindConsciencePoints   Kind = "conscience_points"
	KindScenariosCompleted Kind = "scenarios_completed"
	KindPerfectChoices     Kind = "perfect_choices"
	KindDailyStreak        Kind = "daily_streak"
	KindSpecificScenario   Kind = "specific_scenario"
	KindCommunityVotes     Kind = "community_votes"
	KindJournalEntries     Kind = "journal_entries"
	KindNightPlay          Kind = "night_play"
	KindBadgesEarned       Kind = "badges_earned"
)

// Requirement is the condition a badge checks.
type Requirement struct {
	Kind       Kind   `json:"kind"`
	Threshold  int    `json:"threshold"`
	ScenarioID string `json:"scenario_id,omitempty"`
	// ConsecutiveDays, when set, requires the current streak to be exactly
	// this long in addition to the threshold.
	ConsecutiveDays int `json:"consecutive_days,omitempty"`
}

// Reward is credited once when a badge is awarded.
type Reward struct {
	Crystals        int      `json:"crystals"`
	WisdomPoints    int      `json:"wisdom_points"`
	UnlockedContent []string `json:"unlocked_content,omitempty"`
	SpecialTitle    string   `json:"special_title,omitempty"`
}

// Badge is one catalog entry.
type Badge struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    Category    `json:"category"`
	Rarity      Rarity      `json:"rarity"`
	Icon        string      `json:"icon"`
	Requirement Requirement `json:"requirement"`
	Reward      Reward      `json:"reward"`
}

// Catalog is an immutable, ordered set of badges.
type Catalog struct {
	badges []Badge
	byID   map[string]int
	byKind map[Kind][]int
}

// NewCatalog builds a catalog. Badge ids must be unique.
func NewCatalog(badges []Badge) (*Catalog, error) {
	c := &Catalog{
		badges: append([]Badge(nil), badges...),
		byID:   make(map[string]int, len(badges)),
		byKind: make(map[Kind][]int),
	}
	for i, b := range c.badges {
		if b.ID == "" {
			return nil, fmt.Errorf("badge %d has no id", i)
		}
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("duplicate badge id %q", b.ID)
		}
		c.byID[b.ID] = i
		c.byKind[b.Requirement.Kind] = append(c.byKind[b.Requirement.Kind], i)
	}
	return c, nil
}

// Get returns a badge by id.
func (c *Catalog) Get(id string) (Badge, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Badge{}, false
	}
	return c.badges[i], true
}

// All returns every badge in catalog order.
func (c *Catalog) All() []Badge {
	return append([]Badge(nil), c.badges...)
}

// ByKind returns the badges with the given requirement kind, in catalog order.
func (c *Catalog) ByKind(kind Kind) []Badge {
	idx := c.byKind[kind]
	out := make([]Badge, 0, len(idx))
	for _, i := range idx {
		out = append(out, c.badges[i])
	}
	return out
}

// ByCategory returns the badges in a display category.
func (c *Catalog) ByCategory(cat Category) []Badge {
	var out []Badge
	for _, b := range c.badges {
		if b.Category == cat {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of badges.
func (c *Catalog) Len() int {
	return len(c.badges)
}

// DefaultCatalog returns the built-in badge set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultBadges)
	if err != nil {
		panic(err)
	}
	return c
}

func points(n int) Requirement { return Requirement{Kind: KindConsciencePoints, Threshold: n} }

var defaultBadges = []Badge{
	// honesty
	{ID: "badge_honest_1", Name: "First Step", Description: "Made your first honest choice", Category: CategoryHonesty, Rarity: RarityCommon, Icon: "🤝",
		Requirement: points(10), Reward: Reward{Crystals: 50, WisdomPoints: 10}},
	{ID: "badge_honest_2", Name: "Truth Teller", Description: "Reached 50 conscience points", Category: CategoryHonesty, Rarity: RarityRare, Icon: "💎",
		Requirement: points(50), Reward: Reward{Crystals: 100, WisdomPoints: 25}},
	{ID: "badge_honest_3", Name: "Voice of Truth", Description: "Reached 100 conscience points", Category: CategoryHonesty, Rarity: RarityEpic, Icon: "🔮",
		Requirement: points(100), Reward: Reward{Crystals: 250, WisdomPoints: 50, SpecialTitle: "Voice of Truth"}},
	{ID: "badge_honest_4", Name: "No Lies", Description: "Finished 10 scenarios without a single bad choice", Category: CategoryHonesty, Rarity: RarityLegendary, Icon: "👑",
		Requirement: Requirement{Kind: KindPerfectChoices, Threshold: 10}, Reward: Reward{Crystals: 500, WisdomPoints: 100, SpecialTitle: "Heart Without Lies"}},

	// justice
	{ID: "badge_justice_1", Name: "Sword of Justice", Description: "Made your first fair decision", Category: CategoryJustice, Rarity: RarityCommon, Icon: "⚖️",
		Requirement: points(10), Reward: Reward{Crystals: 50, WisdomPoints: 10}},
	{ID: "badge_justice_2", Name: "Defender of Fairness", Description: "Reached 50 conscience points", Category: CategoryJustice, Rarity: RarityRare, Icon: "🛡️",
		Requirement: points(50), Reward: Reward{Crystals: 100, WisdomPoints: 25}},
	{ID: "badge_justice_3", Name: "Guardian of Justice", Description: "Reached 100 conscience points", Category: CategoryJustice, Rarity: RarityEpic, Icon: "⚔️",
		Requirement: points(100), Reward: Reward{Crystals: 250, WisdomPoints: 50, SpecialTitle: "Guardian of Justice"}},

	// empathy
	{ID: "badge_empathy_1", Name: "Eye of the Heart", Description: "Made your first empathetic decision", Category: CategoryEmpathy, Rarity: RarityCommon, Icon: "❤️",
		Requirement: points(10), Reward: Reward{Crystals: 50, WisdomPoints: 10}},
	{ID: "badge_empathy_2", Name: "Hand of Mercy", Description: "Reached 50 conscience points", Category: CategoryEmpathy, Rarity: RarityRare, Icon: "🤲",
		Requirement: points(50), Reward: Reward{Crystals: 100, WisdomPoints: 25}},
	{ID: "badge_empathy_3", Name: "Heart of Gold", Description: "Reached 100 conscience points", Category: CategoryEmpathy, Rarity: RarityEpic, Icon: "💛",
		Requirement: points(100), Reward: Reward{Crystals: 250, WisdomPoints: 50, SpecialTitle: "Heart of Gold"}},
	{ID: "badge_empathy_4", Name: "Light of Humanity", Description: "Reached 200 conscience points", Category: CategoryEmpathy, Rarity: RarityLegendary, Icon: "✨",
		Requirement: points(200), Reward: Reward{Crystals: 500, WisdomPoints: 100, SpecialTitle: "Light of Humanity"}},

	// courage
	{ID: "badge_courage_1", Name: "Brave Heart", Description: "Made your first brave decision", Category: CategoryCourage, Rarity: RarityCommon, Icon: "🦁",
		Requirement: points(10), Reward: Reward{Crystals: 50, WisdomPoints: 10}},
	{ID: "badge_courage_2", Name: "No Fear", Description: "Reached 50 conscience points", Category: CategoryCourage, Rarity: RarityRare, Icon: "🔥",
		Requirement: points(50), Reward: Reward{Crystals: 100, WisdomPoints: 25}},
	{ID: "badge_courage_3", Name: "Lion's Claw", Description: "Made the bravest call in a hard scenario", Category: CategoryCourage, Rarity: RarityEpic, Icon: "🦅",
		Requirement: Requirement{Kind: KindSpecificScenario, Threshold: 1, ScenarioID: "hard_courage_scenario"}, Reward: Reward{Crystals: 300, WisdomPoints: 75}},

	// streaks
	{ID: "badge_streak_1", Name: "Getting Started", Description: "Logged in 3 days in a row", Category: CategorySpecial, Rarity: RarityCommon, Icon: "🔥",
		Requirement: Requirement{Kind: KindDailyStreak, Threshold: 3}, Reward: Reward{Crystals: 75, WisdomPoints: 15}},
	{ID: "badge_streak_2", Name: "Loyal Player", Description: "Logged in 7 days in a row", Category: CategorySpecial, Rarity: RarityRare, Icon: "🔥🔥",
		Requirement: Requirement{Kind: KindDailyStreak, Threshold: 7}, Reward: Reward{Crystals: 150, WisdomPoints: 30}},
	{ID: "badge_streak_3", Name: "Two Weeks", Description: "Logged in 14 days in a row", Category: CategorySpecial, Rarity: RarityEpic, Icon: "💫",
		Requirement: Requirement{Kind: KindDailyStreak, Threshold: 14}, Reward: Reward{Crystals: 300, WisdomPoints: 60}},
	{ID: "badge_streak_4", Name: "One Month", Description: "Logged in 30 days in a row", Category: CategorySpecial, Rarity: RarityLegendary, Icon: "🌟",
		Requirement: Requirement{Kind: KindDailyStreak, Threshold: 30}, Reward: Reward{Crystals: 1000, WisdomPoints: 200, SpecialTitle: "Master of Conscience"}},
	{ID: "badge_streak_5", Name: "100 Days", Description: "Logged in 100 days in a row", Category: CategorySpecial, Rarity: RarityMythic, Icon: "👑",
		Requirement: Requirement{Kind: KindDailyStreak, Threshold: 100}, Reward: Reward{Crystals: 5000, WisdomPoints: 1000, SpecialTitle: "Legendary Conscience"}},

	// scenario completion
	{ID: "badge_scenario_1", Name: "First Scenario", Description: "Completed your first scenario", Category: CategorySpecial, Rarity: RarityCommon, Icon: "📖",
		Requirement: Requirement{Kind: KindScenariosCompleted, Threshold: 1}, Reward: Reward{Crystals: 50, WisdomPoints: 10}},
	{ID: "badge_scenario_2", Name: "Story Reader", Description: "Completed 10 scenarios", Category: CategorySpecial, Rarity: RarityRare, Icon: "📚",
		Requirement: Requirement{Kind: KindScenariosCompleted, Threshold: 10}, Reward: Reward{Crystals: 200, WisdomPoints: 40}},
	{ID: "badge_scenario_3", Name: "Experienced", Description: "Completed 25 scenarios", Category: CategorySpecial, Rarity: RarityEpic, Icon: "🎭",
		Requirement: Requirement{Kind: KindScenariosCompleted, Threshold: 25}, Reward: Reward{Crystals: 500, WisdomPoints: 100}},
	{ID: "badge_scenario_4", Name: "Library of Conscience", Description: "Completed 50 scenarios", Category: CategorySpecial, Rarity: RarityLegendary, Icon: "📜",
		Requirement: Requirement{Kind: KindScenariosCompleted, Threshold: 50}, Reward: Reward{Crystals: 1500, WisdomPoints: 300, SpecialTitle: "Conscience Librarian"}},

	// journal
	{ID: "badge_journal_1", Name: "First Entry", Description: "Wrote your first journal entry", Category: CategoryWisdom, Rarity: RarityCommon, Icon: "✍️",
		Requirement: Requirement{Kind: KindJournalEntries, Threshold: 1}, Reward: Reward{Crystals: 50, WisdomPoints: 20}},
	{ID: "badge_journal_2", Name: "Journal Keeper", Description: "Wrote 10 journal entries", Category: CategoryWisdom, Rarity: RarityRare, Icon: "📝",
		Requirement: Requirement{Kind: KindJournalEntries, Threshold: 10}, Reward: Reward{Crystals: 150, WisdomPoints: 50}},
	{ID: "badge_journal_3", Name: "Philosopher", Description: "Wrote 30 journal entries", Category: CategoryWisdom, Rarity: RarityEpic, Icon: "🧠",
		Requirement: Requirement{Kind: KindJournalEntries, Threshold: 30}, Reward: Reward{Crystals: 400, WisdomPoints: 150, SpecialTitle: "Thinker"}},

	// special
	{ID: "badge_night_owl", Name: "Night Owl", Description: "Played between 00:00 and 05:00", Category: CategorySpecial, Rarity: RarityRare, Icon: "🦉",
		Requirement: Requirement{Kind: KindNightPlay, Threshold: 1}, Reward: Reward{Crystals: 200, WisdomPoints: 50}},
	{ID: "badge_perfectionist", Name: "Perfectionist", Description: "Finished one scenario five times", Category: CategorySpecial, Rarity: RarityEpic, Icon: "🎯",
		Requirement: Requirement{Kind: KindSpecificScenario, Threshold: 5, ScenarioID: "replay_scenario"}, Reward: Reward{Crystals: 350, WisdomPoints: 80}},
	{ID: "badge_community_1", Name: "Community Member", Description: "Cast your first vote in the council", Category: CategoryCommunity, Rarity: RarityCommon, Icon: "🗳️",
		Requirement: Requirement{Kind: KindCommunityVotes, Threshold: 1}, Reward: Reward{Crystals: 75, WisdomPoints: 20}},
	{ID: "badge_community_2", Name: "Active Voter", Description: "Took part in 20 community votes", Category: CategoryCommunity, Rarity: RarityRare, Icon: "🎖️",
		Requirement: Requirement{Kind: KindCommunityVotes, Threshold: 20}, Reward: Reward{Crystals: 250, WisdomPoints: 60}},

	// seasonal
	{ID: "badge_ramadan", Name: "Blessings of Ramadan", Description: "Completed the Ramadan special", Category: CategorySeasonal, Rarity: RarityEpic, Icon: "🌙",
		Requirement: Requirement{Kind: KindSpecificScenario, Threshold: 1, ScenarioID: "ramadan_special"}, Reward: Reward{Crystals: 500, WisdomPoints: 100}},
	{ID: "badge_new_year", Name: "New Year Resolve", Description: "Logged in every day of a seven day run", Category: CategorySeasonal, Rarity: RarityRare, Icon: "🎊",
		Requirement: Requirement{Kind: KindDailyStreak, Threshold: 7, ConsecutiveDays: 7}, Reward: Reward{Crystals: 300, WisdomPoints: 75}},

	// responsibility
	{ID: "badge_responsibility_1", Name: "Responsible", Description: "Reached 50 conscience points", Category: CategoryResponsibility, Rarity: RarityRare, Icon: "🎓",
		Requirement: points(50), Reward: Reward{Crystals: 100, WisdomPoints: 25}},
	{ID: "badge_responsibility_2", Name: "Reliable", Description: "Reached 100 conscience points", Category: CategoryResponsibility, Rarity: RarityEpic, Icon: "⭐",
		Requirement: points(100), Reward: Reward{Crystals: 250, WisdomPoints: 50, SpecialTitle: "Reliable One"}},

	// patience
	{ID: "badge_patience_1", Name: "Patient Heart", Description: "Reached 50 conscience points", Category: CategoryPatience, Rarity: RarityRare, Icon: "🕊️",
		Requirement: points(50), Reward: Reward{Crystals: 100, WisdomPoints: 25}},
	{ID: "badge_patience_2", Name: "Calm Spirit", Description: "Reached 100 conscience points", Category: CategoryPatience, Rarity: RarityEpic, Icon: "🧘",
		Requirement: points(100), Reward: Reward{Crystals: 250, WisdomPoints: 50, SpecialTitle: "Stone of Patience"}},

	// wisdom
	{ID: "badge_wisdom_1", Name: "Aspiring Sage", Description: "Reached 50 conscience points", Category: CategoryWisdom, Rarity: RarityRare, Icon: "🦉",
		Requirement: points(50), Reward: Reward{Crystals: 100, WisdomPoints: 25}},
	{ID: "badge_wisdom_2", Name: "Keeper of Wisdom", Description: "Reached 100 conscience points", Category: CategoryWisdom, Rarity: RarityEpic, Icon: "🔮",
		Requirement: points(100), Reward: Reward{Crystals: 250, WisdomPoints: 50, SpecialTitle: "Keeper of Wisdom"}},
	{ID: "badge_wisdom_3", Name: "Grand Master", Description: "Reached 200 conscience points", Category: CategoryWisdom, Rarity: RarityLegendary, Icon: "🎓",
		Requirement: points(200), Reward: Reward{Crystals: 1000, WisdomPoints: 200, SpecialTitle: "Grand Master"}},

	// ultimate
	{ID: "badge_ultimate_1", Name: "Guide of Conscience", Description: "Reached 700 conscience points", Category: CategorySpecial, Rarity: RarityMythic, Icon: "🌟",
		Requirement: points(700), Reward: Reward{Crystals: 2000, WisdomPoints: 500, SpecialTitle: "Guide of Conscience"}},
	{ID: "badge_ultimate_2", Name: "Legend", Description: "Earned 50 badges", Category: CategorySpecial, Rarity: RarityMythic, Icon: "👑",
		Requirement: Requirement{Kind: KindBadgesEarned, Threshold: 50}, Reward: Reward{Crystals: 5000, WisdomPoints: 1000, SpecialTitle: "Legendary Player"}},
}
