package models

import "time"

// OperationType is the kind of a queued remote write.
type OperationType string

const (
	OperationUpload OperationType = "upload"
	OperationDelete OperationType = "delete"
)

// PendingOperation is a local write that has not been confirmed by the
// remote authority. The queue holds at most one per ID; Timestamp equals the
// UpdatedAt of the snapshot it carries.
type PendingOperation struct {
	Type      OperationType `json:"type"`
	ID        string        `json:"id"`
	Data      *Prompt       `json:"data,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// SyncState is the user-visible phase of the sync engine.
type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
	SyncSynced  SyncState = "synced"
	SyncError   SyncState = "error"
	SyncOffline SyncState = "offline"
)

// SyncStatus is published to status observers on every transition.
type SyncStatus struct {
	State     SyncState `json:"state"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncStats summarises one sync run.
type SyncStats struct {
	Uploaded   int `json:"uploaded"`
	Downloaded int `json:"downloaded"`
	Conflicts  int `json:"conflicts"`
	Resolved   int `json:"resolved"`
}

// ChangeKind classifies a remote change notification.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// Change is a single remote mutation delivered by the live feed. Prompt is
// nil for removals.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	ID     string     `json:"id"`
	Prompt *Prompt    `json:"prompt,omitempty"`
}

// BatchOpKind is the kind of one remote write inside a batch commit.
type BatchOpKind string

const (
	BatchUpsert BatchOpKind = "upsert"
	BatchDelete BatchOpKind = "delete"
	BatchLock   BatchOpKind = "lock"
)

// BatchOp is one write of a batched remote commit. Upserts carry Prompt;
// deletes and lock changes carry only ID, UpdatedAt and, for locks, Locked.
type BatchOp struct {
	Kind      BatchOpKind `json:"kind"`
	ID        string      `json:"id"`
	Prompt    *Prompt     `json:"prompt,omitempty"`
	Locked    bool        `json:"locked,omitempty"`
	UpdatedAt int64       `json:"updatedAt"`
}

// Tier is the account's subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// ParseTier maps unknown values to free.
func ParseTier(s string) Tier {
	if Tier(s) == TierPro {
		return TierPro
	}
	return TierFree
}
