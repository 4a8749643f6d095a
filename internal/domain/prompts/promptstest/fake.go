// Package promptstest provides an in-memory prompt repository for tests.
package promptstest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/promptveo-api/internal/domain/prompts"
	"github.com/FACorreiaa/promptveo-api/internal/types"
)

var _ prompts.Repository = (*FakeRepository)(nil)

type FakeRepository struct {
	mu      sync.Mutex
	prompts map[uuid.UUID]*types.Prompt
	clock   time.Time

	// Err, when set, is returned by every call.
	Err error
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		prompts: make(map[uuid.UUID]*types.Prompt),
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Seed stores n published regular prompts, newest first in the returned slice.
func (f *FakeRepository) Seed(n int) []*types.Prompt {
	out := make([]*types.Prompt, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = f.Put(&types.Prompt{
			Kind:        types.PromptKindRegular,
			Title:       "prompt",
			PromptText:  "text",
			PromptJSON:  []byte(`{"scene":"x"}`),
			IsPublished: true,
		})
	}
	return out
}

// Put stores a copy of p, assigning an id and a creation time later than
// every prompt stored before.
func (f *FakeRepository) Put(p *types.Prompt) *types.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Kind == "" {
		p.Kind = types.PromptKindRegular
	}
	f.clock = f.clock.Add(time.Minute)
	p.CreatedAt, p.UpdatedAt = f.clock, f.clock
	f.prompts[p.ID] = clone(p)
	return p
}

func (f *FakeRepository) Has(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.prompts[id]
	return ok
}

func clone(p *types.Prompt) *types.Prompt {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.Timeline = append([]types.TimelineSegment(nil), p.Timeline...)
	if p.PromptJSON != nil {
		c.PromptJSON = append([]byte(nil), p.PromptJSON...)
	}
	return &c
}

func (f *FakeRepository) matching(filter types.PromptFilter) []*types.Prompt {
	var out []*types.Prompt
	for _, p := range f.prompts {
		if filter.AuthorID != nil {
			if p.AuthorID == nil || *p.AuthorID != *filter.AuthorID {
				continue
			}
			if !filter.IncludeUnpublished && !p.IsPublished {
				continue
			}
		} else if !p.IsPublished {
			continue
		}
		if filter.Kind != "" && p.Kind != filter.Kind {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Description+" "+p.PromptText), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *FakeRepository) ListPrompts(_ context.Context, filter types.PromptFilter) ([]*types.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	all := f.matching(filter)
	if filter.Offset >= len(all) {
		return []*types.Prompt{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]*types.Prompt, 0, end-filter.Offset)
	for _, p := range all[filter.Offset:end] {
		out = append(out, clone(p))
	}
	return out, nil
}

func (f *FakeRepository) CountPrompts(_ context.Context, filter types.PromptFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	return len(f.matching(filter)), nil
}

func (f *FakeRepository) GetPrompt(_ context.Context, id uuid.UUID) (*types.Prompt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.prompts[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return clone(p), nil
}

func (f *FakeRepository) PromptRanks(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	ranks := make(map[uuid.UUID]int, len(ids))
	for i, p := range f.matching(types.PromptFilter{}) {
		if wanted[p.ID] {
			ranks[p.ID] = i
		}
	}
	return ranks, nil
}

func (f *FakeRepository) CreatePrompt(_ context.Context, authorID uuid.UUID, params types.CreatePromptParams) (*types.Prompt, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	p := &types.Prompt{
		Kind:         params.Kind,
		AuthorID:     &authorID,
		Title:        params.Title,
		Description:  params.Description,
		Category:     params.Category,
		Tags:         params.Tags,
		PromptText:   params.PromptText,
		PromptJSON:   params.PromptJSON,
		Timeline:     params.Timeline,
		Duration:     prompts.TimelineDuration(params.Timeline),
		ThumbnailURL: params.ThumbnailURL,
		VideoURL:     params.VideoURL,
		IsPublished:  params.IsPublished,
		RemixedFrom:  params.RemixedFrom,
	}
	return clone(f.Put(p)), nil
}

func (f *FakeRepository) DeletePrompt(_ context.Context, kind types.PromptKind, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	p, ok := f.prompts[id]
	if !ok || p.Kind != kind {
		return types.ErrNotFound
	}
	delete(f.prompts, id)
	return nil
}
