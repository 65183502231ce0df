package buttons

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davinel000/highlighter-server/internal/resource"
	"github.com/davinel000/highlighter-server/internal/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	st, err := storage.New(t.TempDir())
	require.NoError(t, err)
	m := NewManager(st)
	m.now = func() float64 { return 1000 }
	return m
}

func TestDefaultPanelButtons(t *testing.T) {
	m := newTestManager(t)
	cfg := m.GetConfig("main")
	require.Len(t, cfg.Buttons, 4)
	assert.Equal(t, "suspension", cfg.Buttons[0].ID)
	assert.Equal(t, "extension", cfg.Buttons[1].ID)
	assert.Equal(t, "reversal", cfg.Buttons[2].ID)
	assert.Equal(t, "speed", cfg.Buttons[3].ID)
	assert.Equal(t, "Suspension", cfg.Buttons[0].Label)
}

func TestFireIncrementsCounter(t *testing.T) {
	m := newTestManager(t)

	event, err := m.Fire("main", "alice", "suspension", "plus")
	require.NoError(t, err)
	assert.Equal(t, 1, event.Seq)
	assert.Equal(t, "suspension", event.ButtonID)
	assert.Equal(t, "Suspension", event.Label)
	assert.Equal(t, "plus", event.Direction)
	assert.Equal(t, float64(1000), event.Timestamp)

	_, err = m.Fire("main", "bob", "suspension", "minus")
	require.NoError(t, err)

	state := m.PanelState("main", 0)
	assert.Equal(t, 1, state.Buttons["suspension"].Plus)
	assert.Equal(t, 1, state.Buttons["suspension"].Minus)
	assert.Len(t, state.Events, 2)
}

func TestFireDirectionCaseInsensitive(t *testing.T) {
	m := newTestManager(t)
	event, err := m.Fire("main", "alice", "speed", "PLUS")
	require.NoError(t, err)
	assert.Equal(t, "plus", event.Direction)
}

func TestFireInvalidDirection(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Fire("main", "alice", "speed", "sideways")
	var svcErr *resource.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "invalid_direction", svcErr.Code)
	assert.Equal(t, http.StatusBadRequest, svcErr.Status)
}

func TestFireUnknownButton(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Fire("main", "alice", "warp", "plus")
	var svcErr *resource.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "unknown_button", svcErr.Code)
	assert.Equal(t, http.StatusNotFound, svcErr.Status)

	// A rejected press leaves counters and the event log untouched.
	state := m.PanelState("main", 0)
	assert.Empty(t, state.Events)
	assert.Equal(t, 1, state.NextSeq)
}

func TestFireLocked(t *testing.T) {
	m := newTestManager(t)
	locked := true
	_, err := m.UpdateConfig("main", ConfigUpdate{Locked: &locked})
	require.NoError(t, err)

	_, err = m.Fire("main", "alice", "speed", "plus")
	var svcErr *resource.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "locked", svcErr.Code)
	assert.Equal(t, http.StatusLocked, svcErr.Status)
}

func TestFireCooldown(t *testing.T) {
	m := newTestManager(t)
	cooldown := 10.0
	_, err := m.UpdateConfig("main", ConfigUpdate{Cooldown: &cooldown})
	require.NoError(t, err)

	_, err = m.Fire("main", "alice", "speed", "plus")
	require.NoError(t, err)

	m.now = func() float64 { return 1004 }
	_, err = m.Fire("main", "alice", "speed", "plus")
	var svcErr *resource.Error
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "cooldown", svcErr.Code)
	assert.InDelta(t, 6.0, svcErr.Payload["retry_in"], 0.001)

	_, err = m.Fire("main", "bob", "speed", "plus")
	require.NoError(t, err)

	m.now = func() float64 { return 1011 }
	_, err = m.Fire("main", "alice", "speed", "plus")
	require.NoError(t, err)
}

func TestPanelStateSinceFilter(t *testing.T) {
	m := newTestManager(t)
	for i := 0; i < 3; i++ {
		_, err := m.Fire("main", "alice", "extension", "plus")
		require.NoError(t, err)
	}

	state := m.PanelState("main", 2)
	require.Len(t, state.Events, 1)
	assert.Equal(t, 3, state.Events[0].Seq)
	assert.Equal(t, 4, state.NextSeq)
	// Counters always reflect the full history.
	assert.Equal(t, 3, state.Buttons["extension"].Plus)
}

func TestResetKeepsLockAndCooldown(t *testing.T) {
	m := newTestManager(t)
	cooldown := 5.0
	_, err := m.UpdateConfig("main", ConfigUpdate{Cooldown: &cooldown})
	require.NoError(t, err)
	_, err = m.Fire("main", "alice", "reversal", "minus")
	require.NoError(t, err)

	cfg, err := m.Reset("main")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.EventCount)
	assert.Equal(t, 1, cfg.NextSeq)
	assert.Equal(t, 5.0, cfg.Cooldown)
	for _, view := range cfg.Buttons {
		assert.Zero(t, view.Minus)
		assert.Zero(t, view.Plus)
	}
}

func TestStatePersistsAcrossManagers(t *testing.T) {
	dir := t.TempDir()
	st, err := storage.New(dir)
	require.NoError(t, err)
	m := NewManager(st)
	_, err = m.Fire("stage", "alice", "speed", "plus")
	require.NoError(t, err)

	st2, err := storage.New(dir)
	require.NoError(t, err)
	m2 := NewManager(st2)
	state := m2.PanelState("stage", 0)
	assert.Equal(t, 1, state.Buttons["speed"].Plus)
	require.Len(t, state.Events, 1)
	assert.Equal(t, "speed", state.Events[0].ButtonID)
	assert.Equal(t, 2, state.NextSeq)
}

func TestEventsBounded(t *testing.T) {
	m := newTestManager(t)
	state := m.ensureLoaded("main")
	for i := 0; i < MaxEvents; i++ {
		state.Events = append(state.Events, Event{Seq: i + 1})
	}
	state.NextSeq = MaxEvents + 1

	event, err := m.Fire("main", "alice", "speed", "plus")
	require.NoError(t, err)
	assert.Equal(t, MaxEvents+1, event.Seq)

	got := m.PanelState("main", 0)
	assert.Len(t, got.Events, MaxEvents)
	assert.Equal(t, 2, got.Events[0].Seq)
}

func TestListIDsIncludesDefault(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Fire("stage", "alice", "speed", "plus")
	require.NoError(t, err)

	ids := m.ListIDs()
	assert.Contains(t, ids, DefaultPanelID)
	assert.Contains(t, ids, "stage")
}
