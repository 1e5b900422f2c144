package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/promptkeeper/internal/client/models"
	"github.com/dmitrijs2005/promptkeeper/internal/logging"
)

func TestBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(logging.NewNopLogger())

	var a, b []Event
	unsubA := bus.Subscribe(func(e Event) { a = append(a, e) })
	bus.Subscribe(func(e Event) { b = append(b, e) })

	bus.RecordUpserted(models.Prompt{ID: "p1", Title: "hello"})
	bus.RecordDeleted("p2")

	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.Equal(t, EventRecordUpserted, a[0].Type)
	assert.Equal(t, "hello", a[0].Prompt.Title)
	assert.False(t, a[0].Timestamp.IsZero())
	assert.Equal(t, EventRecordDeleted, a[1].Type)
	assert.Equal(t, "p2", a[1].ID)

	unsubA()
	unsubA()
	bus.SyncCompleted(models.SyncStats{Uploaded: 3})

	assert.Len(t, a, 2)
	require.Len(t, b, 3)
	assert.Equal(t, 3, b[2].Stats.Uploaded)
}

func TestBus_PanickingSubscriberIsIsolated(t *testing.T) {
	bus := NewBus(logging.NewNopLogger())

	var got []EventType
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(e Event) { got = append(got, e.Type) })

	require.NotPanics(t, func() {
		bus.StatusChanged(models.SyncStatus{State: models.SyncSynced})
	})
	assert.Equal(t, []EventType{EventStatus}, got)
}

func TestBus_UpsertPayloadIsACopy(t *testing.T) {
	bus := NewBus(logging.NewNopLogger())

	var got *models.Prompt
	bus.Subscribe(func(e Event) { got = e.Prompt })

	p := models.Prompt{ID: "p1", Tags: []string{"a"}}
	bus.RecordUpserted(p)
	p.Tags[0] = "changed"

	require.NotNil(t, got)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	assert.NotPanics(t, func() {
		n.RecordUpserted(models.Prompt{})
		n.RecordDeleted("x")
		n.SyncCompleted(models.SyncStats{})
	})
}
