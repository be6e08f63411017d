// Package model defines the data models for the conscience engine.
package model

import "time"

// Trait names a conscience dimension.
type Trait string

// Conscience traits in their declared priority order.
const (
	TraitHonesty        Trait = "honesty"
	TraitJustice        Trait = "justice"
	TraitEmpathy        Trait = "empathy"
	TraitResponsibility Trait = "responsibility"
	TraitPatience       Trait = "patience"
	TraitCourage        Trait = "courage"
	TraitWisdom         Trait = "wisdom"
)

// Traits returns all traits in priority order.
func Traits() []Trait {
	return []Trait{
		TraitHonesty,
		TraitJustice,
		TraitEmpathy,
		TraitResponsibility,
		TraitPatience,
		TraitCourage,
		TraitWisdom,
	}
}

// ConscienceImpact is a signed per-trait delta attached to a choice.
type ConscienceImpact struct {
	Honesty        int `json:"honesty"`
	Justice        int `json:"justice"`
	Empathy        int `json:"empathy"`
	Responsibility int `json:"responsibility"`
	Patience       int `json:"patience"`
	Courage        int `json:"courage"`
	Wisdom         int `json:"wisdom"`
}

// Get returns the delta for a trait.
func (c ConscienceImpact) Get(t Trait) int {
	switch t {
	case TraitHonesty:
		return c.Honesty
	case TraitJustice:
		return c.Justice
	case TraitEmpathy:
		return c.Empathy
	case TraitResponsibility:
		return c.Responsibility
	case TraitPatience:
		return c.Patience
	case TraitCourage:
		return c.Courage
	case TraitWisdom:
		return c.Wisdom
	}
	return 0
}

// Sum returns the sum of all seven deltas.
func (c ConscienceImpact) Sum() int {
	return c.Honesty + c.Justice + c.Empathy + c.Responsibility + c.Patience + c.Courage + c.Wisdom
}

// HasNegative reports whether any delta is below zero.
func (c ConscienceImpact) HasNegative() bool {
	for _, t := range Traits() {
		if c.Get(t) < 0 {
			return true
		}
	}
	return false
}

// ConscienceProfile holds a user's persisted trait values. Every field is >= 0.
type ConscienceProfile struct {
	Honesty        int `json:"honesty" db:"honesty"`
	Justice        int `json:"justice" db:"justice"`
	Empathy        int `json:"empathy" db:"empathy"`
	Responsibility int `json:"responsibility" db:"responsibility"`
	Patience       int `json:"patience" db:"patience"`
	Courage        int `json:"courage" db:"courage"`
	Wisdom         int `json:"wisdom" db:"wisdom"`
}

// Get returns the value of a trait.
func (c ConscienceProfile) Get(t Trait) int {
	return ConscienceImpact(c).Get(t)
}

// Set assigns the value of a trait.
func (c *ConscienceProfile) Set(t Trait, v int) {
	switch t {
	case TraitHonesty:
		c.Honesty = v
	case TraitJustice:
		c.Justice = v
	case TraitEmpathy:
		c.Empathy = v
	case TraitResponsibility:
		c.Responsibility = v
	case TraitPatience:
		c.Patience = v
	case TraitCourage:
		c.Courage = v
	case TraitWisdom:
		c.Wisdom = v
	}
}

// UserCurrency holds the in-game currencies. Every field is >= 0.
type UserCurrency struct {
	Crystals     int `json:"crystals" db:"crystals"`
	WisdomPoints int `json:"wisdom_points" db:"wisdom_points"`
	VirtueMedals int `json:"virtue_medals" db:"virtue_medals"`
	GiftBoxes    int `json:"gift_boxes" db:"gift_boxes"`
}

// Avatar holds cosmetic fields. The engine only appends to UnlockedTitles.
type Avatar struct {
	SkinTone       string   `json:"skin_tone" db:"avatar_skin_tone"`
	HairStyle      string   `json:"hair_style" db:"avatar_hair_style"`
	Outfit         string   `json:"outfit" db:"avatar_outfit"`
	Accessory      string   `json:"accessory" db:"avatar_accessory"`
	SpiritAnimal   string   `json:"spirit_animal" db:"spirit_animal"`
	Title          string   `json:"title" db:"title"`
	UnlockedTitles []string `json:"unlocked_titles" db:"unlocked_titles"`
}

// HasTitle reports whether a title is already unlocked.
func (a Avatar) HasTitle(title string) bool {
	for _, t := range a.UnlockedTitles {
		if t == title {
			return true
		}
	}
	return false
}

// UserStatistics holds aggregate counters.
type UserStatistics struct {
	TotalChoicesMade int `json:"total_choices_made" db:"total_choices_made"`
	PerfectScenarios int `json:"perfect_scenarios" db:"perfect_scenarios"`
	RegrettedChoices int `json:"regretted_choices" db:"regretted_choices"`
	HelpedFriends    int `json:"helped_friends" db:"helped_friends"`
	LongestStreak    int `json:"longest_streak" db:"longest_streak"`
	PlayTimeMinutes  int `json:"play_time_minutes" db:"play_time_minutes"`
	CommunityVotes   int `json:"community_votes" db:"community_votes"`
}

// StreakData tracks consecutive-day play.
type StreakData struct {
	CurrentStreak    int       `json:"current_streak" db:"current_streak"`
	LastLoginAt      time.Time `json:"last_login_at" db:"streak_last_login_at"`
	StreakMultiplier float64   `json:"streak_multiplier" db:"streak_multiplier"`
	TotalDaysPlayed  int       `json:"total_days_played" db:"total_days_played"`
}

// UserProfile is one user's long-lived engine state.
type UserProfile struct {
	UserID           string            `json:"user_id" db:"user_id"`
	Username         string            `json:"username" db:"username"`
	Level            int               `json:"level" db:"level"`
	ExperiencePoints int               `json:"experience_points" db:"experience_points"`
	TotalScenarios   int               `json:"total_scenarios" db:"total_scenarios"`
	Conscience       ConscienceProfile `json:"conscience"`
	Currency         UserCurrency      `json:"currency"`
	Avatar           Avatar            `json:"avatar"`
	Statistics       UserStatistics    `json:"statistics"`
	Streak           StreakData        `json:"streak"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	LastLoginAt      time.Time         `json:"last_login_at" db:"last_login_at"`
}

// Profile defaults for newly created users.
const (
	DefaultCrystals  = 100
	DefaultGiftBoxes = 1
	DefaultTitle     = "Conscience Student"
)

// NewUserProfile returns a profile with first-session defaults.
func NewUserProfile(userID string, now time.Time) *UserProfile {
	prefix := userID
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	return &UserProfile{
		UserID:   userID,
		Username: "Player" + prefix,
		Level:    1,
		Currency: UserCurrency{
			Crystals:  DefaultCrystals,
			GiftBoxes: DefaultGiftBoxes,
		},
		Avatar: Avatar{
			SkinTone:     "default",
			HairStyle:    "default",
			Outfit:       "default",
			Accessory:    "none",
			SpiritAnimal: "none",
			Title:        DefaultTitle,
		},
		Streak: StreakData{
			LastLoginAt:      now,
			StreakMultiplier: 1.0,
		},
		CreatedAt:   now,
		LastLoginAt: now,
	}
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Avatar.UnlockedTitles = append([]string(nil), p.Avatar.UnlockedTitles...)
	return &c
}

// UserBadge records a badge award. A (UserID, BadgeID) pair exists at most once.
type UserBadge struct {
	UserID   string    `json:"user_id" db:"user_id"`
	BadgeID  string    `json:"badge_id" db:"badge_id"`
	EarnedAt time.Time `json:"earned_at" db:"earned_at"`
	Progress int       `json:"progress" db:"progress"`
}

// QuestType classifies quests.
type QuestType string

const (
	QuestDaily        QuestType = "daily"
	QuestWeekly       QuestType = "weekly"
	QuestSpecialEvent QuestType = "special_event"
	QuestAchievement  QuestType = "achievement"
)

// QuestAction is the user action a quest counts.
type QuestAction string

const (
	ActionCompleteScenario     QuestAction = "complete_scenario"
	ActionMakeHonestChoice     QuestAction = "make_honest_choice"
	ActionWriteJournalEntry    QuestAction = "write_journal_entry"
	ActionHelpFriend           QuestAction = "help_friend"
	ActionLoginConsecutiveDays QuestAction = "login_consecutive_days"
	ActionVoteInCouncil        QuestAction = "vote_in_council"
	ActionEarnBadge            QuestAction = "earn_badge"
)

// QuestRequirement is what a quest asks for.
type QuestRequirement struct {
	Action         QuestAction `json:"action" db:"action"`
	Count          int         `json:"count" db:"required_count"`
	SpecificTarget string      `json:"specific_target,omitempty" db:"specific_target"`
}

// QuestReward is granted once when a quest completes.
type QuestReward struct {
	Crystals         int  `json:"crystals" db:"reward_crystals"`
	WisdomPoints     int  `json:"wisdom_points" db:"reward_wisdom_points"`
	ExperiencePoints int  `json:"experience_points" db:"reward_xp"`
	GiftBox          bool `json:"gift_box" db:"reward_gift_box"`
}

// DailyQuest is a per-user quest instance.
type DailyQuest struct {
	ID          string           `json:"id" db:"quest_id"`
	UserID      string           `json:"user_id" db:"user_id"`
	Title       string           `json:"title" db:"title"`
	Description string           `json:"description" db:"description"`
	Type        QuestType        `json:"type" db:"type"`
	Requirement QuestRequirement `json:"requirement"`
	Reward      QuestReward      `json:"reward"`
	ExpiresAt   time.Time        `json:"expires_at" db:"expires_at"`
	IsCompleted bool             `json:"is_completed" db:"is_completed"`
	Progress    int              `json:"progress" db:"progress"`
}

// Expired reports whether the quest has expired at now.
func (q *DailyQuest) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// JournalEmotion is the mood attached to a journal entry.
type JournalEmotion string

const (
	EmotionSatisfied  JournalEmotion = "satisfied"
	EmotionProud      JournalEmotion = "proud"
	EmotionConflicted JournalEmotion = "conflicted"
	EmotionRegretful  JournalEmotion = "regretful"
	EmotionPeaceful   JournalEmotion = "peaceful"
	EmotionThoughtful JournalEmotion = "thoughtful"
)

// MaxRegretLevel bounds JournalEntry.RegretLevel.
const MaxRegretLevel = 5

// JournalEntry is a free-form reflection on a playthrough.
type JournalEntry struct {
	ID            string         `json:"id" db:"entry_id"`
	UserID        string         `json:"user_id" db:"user_id"`
	ScenarioID    string         `json:"scenario_id" db:"scenario_id"`
	ScenarioTitle string         `json:"scenario_title" db:"scenario_title"`
	ChoicesMade   []string       `json:"choices_made" db:"choices_made"`
	Reflection    string         `json:"reflection" db:"reflection"`
	Emotion       JournalEmotion `json:"emotion" db:"emotion"`
	RegretLevel   int            `json:"regret_level" db:"regret_level"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	IsPrivate     bool           `json:"is_private" db:"is_private"`
}

// Playthrough is one user's in-progress run through a scenario.
type Playthrough struct {
	UserID           string           `json:"user_id" db:"user_id"`
	ScenarioID       string           `json:"scenario_id" db:"scenario_id"`
	CurrentChapterID string           `json:"current_chapter_id" db:"current_chapter_id"`
	Choices          []string         `json:"choices" db:"choices"`
	TotalImpact      ConscienceImpact `json:"total_impact"`
	Perfect          bool             `json:"perfect" db:"perfect"`
	StartedAt        time.Time        `json:"started_at" db:"started_at"`
}

// Clone returns a deep copy of the playthrough.
func (p *Playthrough) Clone() *Playthrough {
	if p == nil {
		return nil
	}
	c := *p
	c.Choices = append([]string(nil), p.Choices...)
	return &c
}
