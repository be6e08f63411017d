package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Source provides raw scenario definitions to a Catalog.
type Source interface {
	// IDs lists every scenario id the source can load, in display order.
	IDs(ctx context.Context) ([]string, error)
	// Load returns one definition. Unknown ids return ErrUnknownScenario.
	Load(ctx context.Context, id string) (*Definition, error)
}

// DirSource reads one scenario per <id>.json file in a directory.
type DirSource struct {
	dir string
}

// NewDirSource creates a DirSource rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// IDs returns the file names (without extension) sorted lexically.
func (s *DirSource) IDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Load reads and decodes <dir>/<id>.json.
func (s *DirSource) Load(ctx context.Context, id string) (*Definition, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
		}
		return nil, fmt.Errorf("failed to read scenario %s: %w", id, err)
	}

	var d Definition
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedScenario, id, err)
	}
	switch d.ID {
	case "":
		d.ID = id
	case id:
	default:
		// Get reloads a cache miss from <id>.json, so the two must agree
		return nil, fmt.Errorf("%w: %s.json declares id %q", ErrMalformedScenario, id, d.ID)
	}
	return &d, nil
}

// BundleSource reads a single JSON file holding either an array of scenarios
// or an object with a "scenarios" array. The file is decoded once, on first
// use.
type BundleSource struct {
	path string

	once  sync.Once
	err   error
	order []string
	defs  map[string]*Definition
}

// NewBundleSource creates a BundleSource for path.
func NewBundleSource(path string) *BundleSource {
	return &BundleSource{path: path}
}

func (s *BundleSource) load() error {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			s.err = fmt.Errorf("failed to read scenario bundle: %w", err)
			return
		}
		defs, err := decodeBundle(data)
		if err != nil {
			s.err = fmt.Errorf("%w: bundle %s: %v", ErrMalformedScenario, s.path, err)
			return
		}
		s.defs = make(map[string]*Definition, len(defs))
		for _, d := range defs {
			if d == nil {
				continue
			}
			if _, dup := s.defs[d.ID]; dup {
				s.err = fmt.Errorf("%w: bundle has duplicate scenario id %q", ErrMalformedScenario, d.ID)
				return
			}
			s.defs[d.ID] = d
			s.order = append(s.order, d.ID)
		}
	})
	return s.err
}

type bundle struct {
	Scenarios []*Definition `json:"scenarios"`
}

func decodeBundle(data []byte) ([]*Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var b bundle
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return nil, err
		}
		return b.Scenarios, nil
	}
	var defs []*Definition
	if err := json.Unmarshal(trimmed, &defs); err != nil {
		return nil, err
	}
	return defs, nil
}

// IDs returns scenario ids in bundle order.
func (s *BundleSource) IDs(ctx context.Context) ([]string, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return append([]string(nil), s.order...), nil
}

// Load returns the scenario with the given id.
func (s *BundleSource) Load(ctx context.Context, id string) (*Definition, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	d, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	return d, nil
}

// MemorySource serves definitions held in memory.
type MemorySource struct {
	order []string
	defs  map[string]*Definition
}

// NewMemorySource creates a MemorySource with defs in the given order.
func NewMemorySource(defs ...*Definition) *MemorySource {
	s := &MemorySource{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if _, dup := s.defs[d.ID]; !dup {
			s.order = append(s.order, d.ID)
		}
		s.defs[d.ID] = d
	}
	return s
}

// IDs returns scenario ids in insertion order.
func (s *MemorySource) IDs(ctx context.Context) ([]string, error) {
	return append([]string(nil), s.order...), nil
}

// Load returns the scenario with the given id.
func (s *MemorySource) Load(ctx context.Context, id string) (*Definition, error) {
	d, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	return d, nil
}

// OpenSource picks a DirSource for directories and a BundleSource for files.
func OpenSource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario source: %w", err)
	}
	if info.IsDir() {
		return NewDirSource(path), nil
	}
	return NewBundleSource(path), nil
}
