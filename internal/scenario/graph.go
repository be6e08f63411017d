// Package scenario holds scenario graphs, choice resolution, and the
// scenario catalog.
package scenario

import (
	"errors"
	"fmt"

	"conscience-engine/internal/model"
)

// Scenario errors.
var (
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrMalformedScenario = errors.New("malformed scenario")
	ErrUnknownScenario   = errors.New("scenario not found")
	ErrUnknownChapter    = errors.New("chapter not found")
)

// Category groups scenarios by life area.
type Category string

const (
	CategorySchool      Category = "school"
	CategoryFamily      Category = "family"
	CategoryFriendship  Category = "friendship"
	CategorySocialMedia Category = "social_media"
	CategoryMoney       Category = "money"
	CategorySociety     Category = "society"
	CategoryWork        Category = "work"
	CategoryEnvironment Category = "environment"
)

// Difficulty ranks scenarios.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// EmotionalTone describes how a choice feels.
type EmotionalTone string

const (
	TonePositive   EmotionalTone = "positive"
	ToneNegative   EmotionalTone = "negative"
	ToneNeutral    EmotionalTone = "neutral"
	ToneConflicted EmotionalTone = "conflicted"
)

// Choice is one option inside a chapter.
type Choice struct {
	ID                   string                 `json:"id"`
	Text                 string                 `json:"text"`
	Impact               model.ConscienceImpact `json:"conscienceImpact"`
	ImmediateConsequence string                 `json:"immediateConsequence"`
	LongTermEffect       string                 `json:"longTermEffect,omitempty"`
	EmotionalTone        EmotionalTone          `json:"emotionalTone"`
}

// Chapter is one node of the scenario graph.
type Chapter struct {
	ID             string            `json:"id"`
	ChapterNumber  int               `json:"chapterNumber"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	NarrativeText  string            `json:"narrativeText"`
	ImageURL       string            `json:"imageUrl,omitempty"`
	Choices        []Choice          `json:"choices"`
	NextChapterIDs map[string]string `json:"nextChapterIds"`
}

// IsTerminal reports whether the chapter ends the scenario.
func (c *Chapter) IsTerminal() bool {
	return len(c.Choices) == 0
}

// Choice looks up a choice by id.
func (c *Chapter) Choice(id string) (*Choice, bool) {
	for i := range c.Choices {
		if c.Choices[i].ID == id {
			return &c.Choices[i], true
		}
	}
	return nil, false
}

// Definition is an immutable scenario graph.
type Definition struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Category      Category   `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	RequiredLevel int        `json:"requiredLevel"`
	EstimatedTime int        `json:"estimatedTime"`
	UnlockCost    int        `json:"unlockCost"`
	TotalChoices  int        `json:"totalChoices"`
	ThumbnailURL  string     `json:"thumbnailUrl,omitempty"`
	Chapters      []Chapter  `json:"chapters"`
}

// Chapter looks up a chapter by id.
func (d *Definition) Chapter(id string) (*Chapter, bool) {
	for i := range d.Chapters {
		if d.Chapters[i].ID == id {
			return &d.Chapters[i], true
		}
	}
	return nil, false
}

// First returns the entry chapter.
func (d *Definition) First() *Chapter {
	if len(d.Chapters) == 0 {
		return nil
	}
	return &d.Chapters[0]
}

// Terminal returns the fallback end chapter: the last chapter in order.
func (d *Definition) Terminal() *Chapter {
	if len(d.Chapters) == 0 {
		return nil
	}
	return &d.Chapters[len(d.Chapters)-1]
}

// Unlocked reports whether a user at level may play the scenario.
func (d *Definition) Unlocked(level int) bool {
	return level >= d.RequiredLevel
}

// Validate checks graph integrity.
func Validate(d *Definition) error {
	if d == nil {
		return fmt.Errorf("%w: nil definition", ErrMalformedScenario)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedScenario)
	}
	if len(d.Chapters) == 0 {
		return fmt.Errorf("%w: %s has no chapters", ErrMalformedScenario, d.ID)
	}

	seen := make(map[string]struct{}, len(d.Chapters))
	for i := range d.Chapters {
		ch := &d.Chapters[i]
		if ch.ID == "" {
			return fmt.Errorf("%w: %s chapter %d has no id", ErrMalformedScenario, d.ID, i)
		}
		if _, dup := seen[ch.ID]; dup {
			return fmt.Errorf("%w: %s has duplicate chapter id %q", ErrMalformedScenario, d.ID, ch.ID)
		}
		seen[ch.ID] = struct{}{}

		choiceIDs := make(map[string]struct{}, len(ch.Choices))
		for _, c := range ch.Choices {
			if _, dup := choiceIDs[c.ID]; dup {
				return fmt.Errorf("%w: chapter %q has duplicate choice id %q", ErrMalformedScenario, ch.ID, c.ID)
			}
			choiceIDs[c.ID] = struct{}{}
		}
		for choiceID := range ch.NextChapterIDs {
			if _, ok := choiceIDs[choiceID]; !ok {
				return fmt.Errorf("%w: chapter %q maps unknown choice %q", ErrMalformedScenario, ch.ID, choiceID)
			}
		}
	}

	// unmapped choices fall back to the last chapter, so it must end the scenario
	if !d.Terminal().IsTerminal() {
		return fmt.Errorf("%w: %s last chapter %q is not terminal", ErrMalformedScenario, d.ID, d.Terminal().ID)
	}
	return nil
}
