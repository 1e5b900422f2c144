// Package notify delivers record and sync notifications from the sync engine
// to UI surfaces: in-process subscribers through a Bus and browser views
// through a websocket Hub.
package notify

import (
	"time"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
)

// EventType names a notification.
type EventType string

const (
	EventRecordUpserted EventType = "record-upserted"
	EventRecordDeleted  EventType = "record-deleted"
	EventSyncCompleted  EventType = "sync-completed"
	EventStatus         EventType = "status"
)

// Event is the payload delivered to subscribers and serialised to websocket
// clients.
type Event struct {
	Type      EventType          `json:"type"`
	ID        string             `json:"id,omitempty"`
	Prompt    *models.Prompt     `json:"prompt,omitempty"`
	Stats     *models.SyncStats  `json:"stats,omitempty"`
	Status    *models.SyncStatus `json:"status,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Notifier receives every committed local write and every finished sync.
// Implementations must not block.
type Notifier interface {
	RecordUpserted(p models.Prompt)
	RecordDeleted(id string)
	SyncCompleted(stats models.SyncStats)
}

// Nop drops every notification.
type Nop struct{}

func (Nop) RecordUpserted(models.Prompt)   {}
func (Nop) RecordDeleted(string)           {}
func (Nop) SyncCompleted(models.SyncStats) {}
