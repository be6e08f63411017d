// Package streak classifies logins by calendar day and maintains consecutive
// play streaks.
package streak

import (
	"errors"
	"time"

	"conscience-engine/internal/model"
)

// ErrStaleDayComputation reports a login timestamp earlier than the stored
// last login. It is a warning: the check is still classified as SameDay.
var ErrStaleDayComputation = errors.New("login time precedes last recorded login")

// Status classifies a streak check.
type Status int

const (
	NoUser Status = iota
	SameDay
	Continued
	Broken
)

func (s Status) String() string {
	switch s {
	case NoUser:
		return "no_user"
	case SameDay:
		return "same_day"
	case Continued:
		return "continued"
	case Broken:
		return "broken"
	}
	return "unknown"
}

// MarshalText renders the status as its string form.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Tier is one row of the multiplier table.
type Tier struct {
	MinDays    int
	Multiplier float64
}

// DefaultTiers is ordered from the longest streak down.
var DefaultTiers = []Tier{
	{MinDays: 30, Multiplier: 3.0},
	{MinDays: 14, Multiplier: 2.5},
	{MinDays: 7, Multiplier: 2.0},
	{MinDays: 3, Multiplier: 1.5},
}

// Multiplier returns the XP multiplier for a streak length.
func Multiplier(days int) float64 {
	for _, t := range DefaultTiers {
		if days >= t.MinDays {
			return t.Multiplier
		}
	}
	return 1.0
}

// Result is the outcome of Check.
type Result struct {
	Status     Status  `json:"status"`
	Streak     int     `json:"streak"`
	Multiplier float64 `json:"multiplier"`
	// Warning is ErrStaleDayComputation when the clock went backwards.
	Warning error `json:"-"`
}

// Engine evaluates streaks with calendar days in a fixed zone.
type Engine struct {
	loc *time.Location
}

// New creates an Engine. A nil location means UTC.
func New(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Location returns the zone used for day boundaries.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// DaysBetween returns the number of calendar days from a to b, both projected
// into the engine's zone. It is negative when b's date precedes a's.
func (e *Engine) DaysBetween(a, b time.Time) int {
	ay, am, ad := a.In(e.loc).Date()
	by, bm, bd := b.In(e.loc).Date()
	// UTC midnights avoid DST-length days.
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Check classifies now against the profile's last login and applies the
// resulting streak transition to profile. A nil profile returns NoUser.
func (e *Engine) Check(profile *model.UserProfile, now time.Time) Result {
	if profile == nil {
		return Result{Status: NoUser, Multiplier: 1.0}
	}

	s := &profile.Streak
	if now.Before(s.LastLoginAt) {
		return Result{
			Status:     SameDay,
			Streak:     s.CurrentStreak,
			Multiplier: s.StreakMultiplier,
			Warning:    ErrStaleDayComputation,
		}
	}

	days := e.DaysBetween(s.LastLoginAt, now)
	switch {
	case days <= 0:
		return Result{Status: SameDay, Streak: s.CurrentStreak, Multiplier: s.StreakMultiplier}

	case days == 1:
		s.CurrentStreak++
		s.StreakMultiplier = Multiplier(s.CurrentStreak)
		s.TotalDaysPlayed++
		s.LastLoginAt = now
		if s.CurrentStreak > profile.Statistics.LongestStreak {
			profile.Statistics.LongestStreak = s.CurrentStreak
		}
		profile.LastLoginAt = now
		return Result{Status: Continued, Streak: s.CurrentStreak, Multiplier: s.StreakMultiplier}

	default:
		s.CurrentStreak = 1
		s.StreakMultiplier = 1.0
		s.TotalDaysPlayed++
		s.LastLoginAt = now
		if profile.Statistics.LongestStreak < 1 {
			profile.Statistics.LongestStreak = 1
		}
		profile.LastLoginAt = now
		return Result{Status: Broken, Streak: 1, Multiplier: 1.0}
	}
}
