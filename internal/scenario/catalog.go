package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultCacheSize is used when NewCatalog is given a non-positive size.
const DefaultCacheSize = 64

// loadConcurrency bounds parallel reads during LoadAll.
const loadConcurrency = 8

// Summary is the listing view of a scenario.
type Summary struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Category      Category   `json:"category"`
	Difficulty    Difficulty `json:"difficulty"`
	RequiredLevel int        `json:"requiredLevel"`
	EstimatedTime int        `json:"estimatedTime"`
	UnlockCost    int        `json:"unlockCost"`
	ChapterCount  int        `json:"chapterCount"`
}

func summarize(d *Definition) Summary {
	return Summary{
		ID:            d.ID,
		Title:         d.Title,
		Category:      d.Category,
		Difficulty:    d.Difficulty,
		RequiredLevel: d.RequiredLevel,
		EstimatedTime: d.EstimatedTime,
		UnlockCost:    d.UnlockCost,
		ChapterCount:  len(d.Chapters),
	}
}

// Catalog serves validated scenarios from a Source. Full definitions are kept
// in an LRU cache; summaries for every known scenario stay resident.
type Catalog struct {
	src   Source
	cache *lru.Cache

	mu        sync.RWMutex
	order     []string
	summaries map[string]Summary
}

// NewCatalog creates a Catalog over src.
func NewCatalog(src Source, cacheSize int) (*Catalog, error) {
	if src == nil {
		return nil, errors.New("scenario source cannot be nil")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario cache: %w", err)
	}
	return &Catalog{
		src:       src,
		cache:     cache,
		summaries: make(map[string]Summary),
	}, nil
}

// LoadAll reads and validates every scenario the source lists. Any invalid
// scenario fails the whole load and leaves the catalog unchanged.
func (c *Catalog) LoadAll(ctx context.Context) error {
	ids, err := c.src.IDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list scenarios: %w", err)
	}

	defs := make([]*Definition, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			d, err := c.src.Load(gctx, id)
			if err != nil {
				return err
			}
			if err := Validate(d); err != nil {
				return err
			}
			defs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load scenarios: %w", err)
	}

	order := make([]string, 0, len(defs))
	summaries := make(map[string]Summary, len(defs))
	for _, d := range defs {
		if _, dup := summaries[d.ID]; dup {
			return fmt.Errorf("%w: duplicate scenario id %q", ErrMalformedScenario, d.ID)
		}
		order = append(order, d.ID)
		summaries[d.ID] = summarize(d)
	}

	c.mu.Lock()
	c.order = order
	c.summaries = summaries
	c.mu.Unlock()

	c.cache.Purge()
	for _, d := range defs {
		c.cache.Add(d.ID, d)
	}

	log.Info().
		Int("scenario_count", len(order)).
		Msg("Scenarios loaded")
	return nil
}

// Get returns a validated scenario, loading it from the source on a miss.
func (c *Catalog) Get(ctx context.Context, id string) (*Definition, error) {
	if v, ok := c.cache.Get(id); ok {
		return v.(*Definition), nil
	}

	d, err := c.src.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Validate(d); err != nil {
		log.Warn().Err(err).Str("scenario_id", id).Msg("Rejected malformed scenario")
		return nil, err
	}

	c.cache.Add(id, d)

	c.mu.Lock()
	if _, known := c.summaries[id]; !known {
		c.order = append(c.order, id)
	}
	c.summaries[id] = summarize(d)
	c.mu.Unlock()

	return d, nil
}

// List returns summaries of every known scenario in source order.
func (c *Catalog) List() []Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Summary, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.summaries[id])
	}
	return out
}

// Count returns the number of known scenarios.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
