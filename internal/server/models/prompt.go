// Package models holds the server-side persistence types.
package models

// Prompt is a stored prompt record. Timestamps are unix milliseconds as
// produced by the client.
type Prompt struct {
	UserID    string
	ID        string
	Title     string
	Content   string
	CreatedAt int64
	UpdatedAt int64
	UseCount  int64
	LastUsed  int64
	IsActive  bool
	Locked    bool
	SourceURL string
	Tags      []string
}

const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeRemoved  = "removed"
)

// Change is a committed mutation delivered to the owner's watchers.
type Change struct {
	Kind   string
	ID     string
	Prompt *Prompt
}
