package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"terminal-coder/internal/core"
)

func TestCreateAndGetEventsByProject(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)

	_, err := s.CreateEvent(core.Event{
		ProjectID:  p.ID,
		EntityType: "phase",
		EntityID:   ph.ID,
		EventType:  core.EventTypeCreated,
	})
	require.NoError(t, err)
	_, err = s.CreateEvent(core.Event{
		ProjectID:  p.ID,
		EntityType: "phase",
		EntityID:   ph.ID,
		EventType:  core.EventTypeStatusChanged,
		OldValue:   "pending",
		NewValue:   "in_progress",
	})
	require.NoError(t, err)

	events, err := s.GetEventsByProject(p.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, core.EventTypeCreated, events[0].EventType)
	require.Equal(t, core.EventTypeStatusChanged, events[1].EventType)
	require.Equal(t, "in_progress", events[1].NewValue)
}

func TestGetEventsByEntity(t *testing.T) {
	s := openTestStore(t)
	p := seedProject(t, s)
	ph := seedPhase(t, s, p.ID, 0)
	other := seedPhase(t, s, p.ID, 1)

	_, err := s.CreateEvent(core.Event{ProjectID: p.ID, EntityType: "phase", EntityID: ph.ID, EventType: core.EventTypeCreated})
	require.NoError(t, err)
	_, err = s.CreateEvent(core.Event{ProjectID: p.ID, EntityType: "phase", EntityID: other.ID, EventType: core.EventTypeCreated})
	require.NoError(t, err)

	events, err := s.GetEventsByEntity("phase", ph.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, ph.ID, events[0].EntityID)
}
