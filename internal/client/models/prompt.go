// Package models defines the client-side prompt record and the bookkeeping
// types the sync engine persists and reports.
package models

import (
	"slices"
	"strings"
)

// Prompt is a saved prompt. Timestamps are milliseconds since the Unix epoch;
// UpdatedAt is the only ordering key used for conflict resolution.
type Prompt struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
	UseCount  int64    `json:"useCount"`
	LastUsed  int64    `json:"lastUsed,omitempty"`
	IsActive  bool     `json:"isActive"`
	Locked    bool     `json:"locked"`
	SourceURL string   `json:"sourceUrl,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Equal reports whether every field of p and o matches.
func (p Prompt) Equal(o Prompt) bool {
	return p.ID == o.ID &&
		p.Title == o.Title &&
		p.Content == o.Content &&
		p.CreatedAt == o.CreatedAt &&
		p.UpdatedAt == o.UpdatedAt &&
		p.UseCount == o.UseCount &&
		p.LastUsed == o.LastUsed &&
		p.IsActive == o.IsActive &&
		p.Locked == o.Locked &&
		p.SourceURL == o.SourceURL &&
		slices.Equal(p.Tags, o.Tags)
}

// Clone returns a copy that shares no slices with p.
func (p Prompt) Clone() Prompt {
	p.Tags = slices.Clone(p.Tags)
	return p
}

// PromptPatch carries the user-editable fields of an update. Nil fields are
// left untouched.
type PromptPatch struct {
	Title     *string
	Content   *string
	SourceURL *string
	Tags      []string
	SetTags   bool
}

// Apply copies the non-nil fields of the patch onto p.
func (pp PromptPatch) Apply(p *Prompt) {
	if pp.Title != nil {
		p.Title = *pp.Title
	}
	if pp.Content != nil {
		p.Content = *pp.Content
	}
	if pp.SourceURL != nil {
		p.SourceURL = *pp.SourceURL
	}
	if pp.SetTags {
		p.Tags = NormalizeTags(pp.Tags)
	}
}

// NormalizeTags trims, drops empties and removes duplicates while keeping
// first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NextTimestamp returns a write timestamp that is never behind prev, so the
// per-record UpdatedAt sequence stays strictly increasing even when the
// wall clock steps back.
func NextTimestamp(now, prev int64) int64 {
	if now <= prev {
		return prev + 1
	}
	return now
}
