package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"conscience-engine/internal/engine"
	"conscience-engine/internal/model"
)

// MemoryStore keeps engine state in process memory. Writes made inside InTx
// are staged on a snapshot and only applied when fn succeeds.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*memoryUser
}

type memoryUser struct {
	state   *engine.State
	badges  []model.UserBadge
	journal []model.JournalEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*memoryUser)}
}

// InTx runs fn with exclusive access to the store.
func (s *MemoryStore) InTx(ctx context.Context, userID string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{userID: userID, stored: s.users[userID]}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.stored == nil && tx.state == nil {
		return nil
	}

	u := tx.stored
	if u == nil {
		u = &memoryUser{}
	}
	next := &memoryUser{
		state:   u.state,
		badges:  append([]model.UserBadge(nil), u.badges...),
		journal: append(append([]model.JournalEntry(nil), u.journal...), tx.journal...),
	}
	if tx.state != nil {
		next.state = tx.state
		have := make(map[string]bool, len(next.badges))
		for _, b := range next.badges {
			have[b.BadgeID] = true
		}
		for _, id := range tx.state.EarnedBadges {
			if have[id] {
				continue
			}
			next.badges = append(next.badges, model.UserBadge{
				UserID:   userID,
				BadgeID:  id,
				EarnedAt: tx.savedAt,
				Progress: 100,
			})
		}
	}
	s.users[userID] = next
	return nil
}

// Badges returns the user's awarded badges, oldest first.
func (s *MemoryStore) Badges(ctx context.Context, userID string) ([]model.UserBadge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return append([]model.UserBadge(nil), u.badges...), nil
}

// JournalEntries returns up to limit entries, newest first.
func (s *MemoryStore) JournalEntries(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}

	entries := append([]model.JournalEntry(nil), u.journal...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// memoryTx stages writes until the surrounding InTx commits.
type memoryTx struct {
	userID  string
	stored  *memoryUser
	state   *engine.State
	savedAt time.Time
	journal []model.JournalEntry
}

func (t *memoryTx) Load(ctx context.Context) (*engine.State, error) {
	if t.state != nil {
		return t.state.Clone(), nil
	}
	if t.stored == nil {
		return nil, ErrUserNotFound
	}
	return t.stored.state.Clone(), nil
}

func (t *memoryTx) Save(ctx context.Context, st *engine.State, now time.Time) error {
	t.state = st.Clone()
	t.savedAt = now
	return nil
}

func (t *memoryTx) AddJournalEntry(ctx context.Context, e model.JournalEntry) error {
	if t.stored == nil && t.state == nil {
		return ErrUserNotFound
	}
	e.UserID = t.userID
	e.ChoicesMade = append([]string(nil), e.ChoicesMade...)
	t.journal = append(t.journal, e)
	return nil
}
