// Package storage contains the in-memory record store used in development
// (no database configured) and in tests.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/dharsanguruparan/HoloHeri/internal/domain"
	"github.com/dharsanguruparan/HoloHeri/internal/model"
)

// MemoryStore keeps sites in a map guarded by an RWMutex. Full-text search is
// approximated: every query term must appear as a word of the indexed fields.
type MemoryStore struct {
	mu    sync.RWMutex
	sites map[string]*model.Site
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sites: make(map[string]*model.Site),
	}
}

// Create inserts a new site. The caller assigns ID and timestamps.
func (m *MemoryStore) Create(_ context.Context, site *model.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sites[site.ID]; exists {
		return fmt.Errorf("insert site %s: duplicate id", site.ID)
	}
	m.sites[site.ID] = site.Clone()
	return nil
}

// Get returns a copy of the site.
func (m *MemoryStore) Get(_ context.Context, id string) (*model.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	site, ok := m.sites[id]
	if !ok {
		return nil, notFound(id)
	}
	return site.Clone(), nil
}

// List returns one page of matching sites, newest first.
func (m *MemoryStore) List(_ context.Context, filter model.SiteFilter) ([]model.Site, error) {
	m.mu.RLock()
	matches := m.match(filter)
	m.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if filter.Skip < 0 || filter.Skip >= len(matches) {
		return []model.Site{}, nil
	}
	matches = matches[filter.Skip:]
	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	out := make([]model.Site, 0, len(matches))
	for _, s := range matches {
		out = append(out, *s)
	}
	return out, nil
}

// Count returns the number of sites matching the filter, ignoring paging.
func (m *MemoryStore) Count(_ context.Context, filter model.SiteFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.match(filter)), nil
}

// Update replaces the stored site with the same ID.
func (m *MemoryStore) Update(_ context.Context, site *model.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[site.ID]; !ok {
		return notFound(site.ID)
	}
	m.sites[site.ID] = site.Clone()
	return nil
}

// Delete removes the site.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[id]; !ok {
		return notFound(id)
	}
	delete(m.sites, id)
	return nil
}

// match must be called with the read lock held. It returns copies.
func (m *MemoryStore) match(filter model.SiteFilter) []*model.Site {
	terms := words(filter.Query)
	var out []*model.Site
	for _, s := range m.sites {
		if filter.Tag != "" && !containsTag(s.Tags, filter.Tag) {
			continue
		}
		if len(terms) > 0 && !matchesTerms(s, terms) {
			continue
		}
		out = append(out, s.Clone())
	}
	return out
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func matchesTerms(s *model.Site, terms []string) bool {
	indexed := make(map[string]struct{})
	for _, text := range []string{
		s.Title, s.Location, s.Summary, strings.Join(s.Tags, " "),
		s.History, s.Architecture, s.Conservation, s.ModernRelevance,
	} {
		for _, w := range words(text) {
			indexed[w] = struct{}{}
		}
	}
	for _, term := range terms {
		if _, ok := indexed[term]; !ok {
			return false
		}
	}
	return true
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func notFound(id string) error {
	return fmt.Errorf("site %s: %w", id, &domain.NotFoundError{Message: "Site not found"})
}
