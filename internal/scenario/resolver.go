package scenario

import "fmt"

// Resolution is the outcome of picking a choice in a chapter.
type Resolution struct {
	Choice      *Choice
	Consequence string
	LongTerm    string
	Next        *Chapter
	// Fallback is set when Next came from the terminal-chapter policy rather
	// than the chapter's mapping.
	Fallback bool
}

// Ends reports whether the resolved chapter ends the scenario.
func (r *Resolution) Ends() bool {
	return r.Next != nil && r.Next.IsTerminal()
}

// ResolveNext finds the chapter that follows choiceID in chapterID.
//
// A mapped chapter that exists is returned as is. A mapping to a missing
// chapter, or no mapping at all, falls back to the scenario's last chapter.
// ResolveNext never mutates d.
func ResolveNext(d *Definition, chapterID, choiceID string) (*Resolution, error) {
	ch, ok := d.Chapter(chapterID)
	if !ok {
		return nil, fmt.Errorf("%w: %q in scenario %q", ErrUnknownChapter, chapterID, d.ID)
	}
	choice, ok := ch.Choice(choiceID)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not offered in chapter %q", ErrInvalidChoice, choiceID, chapterID)
	}

	res := &Resolution{
		Choice:      choice,
		Consequence: choice.ImmediateConsequence,
		LongTerm:    choice.LongTermEffect,
	}

	if nextID, mapped := ch.NextChapterIDs[choiceID]; mapped {
		if next, exists := d.Chapter(nextID); exists {
			res.Next = next
			return res, nil
		}
	}

	res.Next = d.Terminal()
	res.Fallback = true
	return res, nil
}
