// Package buttons manages named button panels: per-button minus/plus
// counters, a bounded event log, and the same lock/cooldown submission rules
// the forms follow.
package buttons

import (
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/davinel000/highlighter-server/internal/resource"
	"github.com/davinel000/highlighter-server/internal/storage"
)

const (
	DefaultPanelID = "main"
	MaxEvents      = 1000
)

// Definition declares one built-in button.
type Definition struct {
	ID    string
	Label string
}

// Every panel starts with these buttons, in this order.
var Definitions = []Definition{
	{ID: "suspension", Label: "Suspension"},
	{ID: "extension", Label: "Extension"},
	{ID: "reversal", Label: "Reversal"},
	{ID: "speed", Label: "Speed"},
}

// Info holds one button's label and counters.
type Info struct {
	Label string `json:"label"`
	Minus int    `json:"minus"`
	Plus  int    `json:"plus"`
}

// Event is one recorded button press.
type Event struct {
	Seq       int     `json:"seq"`
	ButtonID  string  `json:"buttonId"`
	Label     string  `json:"label"`
	Direction string  `json:"direction"`
	ClientID  string  `json:"clientId"`
	Timestamp float64 `json:"timestamp"`
}

// State is the persisted snapshot of one panel.
type State struct {
	PanelID      string             `json:"panelId"`
	Buttons      map[string]*Info   `json:"buttons"`
	Events       []Event            `json:"events"`
	Locked       bool               `json:"locked"`
	Cooldown     float64            `json:"cooldown"`
	LastByClient map[string]float64 `json:"lastByClient"`
	NextSeq      int                `json:"nextSeq"`
	Updated      float64            `json:"updated,omitempty"`
}

// ButtonView is one button in a config snapshot, with its id attached.
type ButtonView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Minus int    `json:"minus"`
	Plus  int    `json:"plus"`
}

// Config is the panel's configuration snapshot.
type Config struct {
	PanelID    string       `json:"panelId"`
	Buttons    []ButtonView `json:"buttons"`
	Locked     bool         `json:"locked"`
	Cooldown   float64      `json:"cooldown"`
	NextSeq    int          `json:"nextSeq"`
	EventCount int          `json:"eventCount"`
}

// ConfigUpdate carries optional configuration changes.
type ConfigUpdate struct {
	Cooldown *float64
	Locked   *bool
}

// PanelState is the full snapshot returned to pollers.
type PanelState struct {
	PanelID  string           `json:"panelId"`
	Buttons  map[string]*Info `json:"buttons"`
	Events   []Event          `json:"events"`
	NextSeq  int              `json:"nextSeq"`
	Locked   bool             `json:"locked"`
	Cooldown float64          `json:"cooldown"`
	Updated  float64          `json:"updated,omitempty"`
}

type Manager struct {
	storage *storage.Store

	mu     sync.Mutex
	states map[string]*State
	locks  map[string]*sync.Mutex

	now func() float64
}

func NewManager(st *storage.Store) *Manager {
	return &Manager{
		storage: st,
		states:  make(map[string]*State),
		locks:   make(map[string]*sync.Mutex),
		now:     func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

func fileName(panelID string) string {
	return "buttons_" + panelID + ".json"
}

func titleCase(id string) string {
	if id == "" {
		return id
	}
	return strings.ToUpper(id[:1]) + id[1:]
}

func (m *Manager) panelLock(panelID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[panelID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[panelID] = lock
	}
	return lock
}

func defaultButtons() map[string]*Info {
	buttons := make(map[string]*Info, len(Definitions))
	for _, def := range Definitions {
		buttons[def.ID] = &Info{Label: def.Label}
	}
	return buttons
}

func defaultState(panelID string) *State {
	return &State{
		PanelID:      panelID,
		Buttons:      defaultButtons(),
		LastByClient: make(map[string]float64),
		NextSeq:      1,
	}
}

func (m *Manager) ensureLoaded(panelID string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[panelID]
	if !ok {
		state = m.loadState(panelID)
		m.states[panelID] = state
	}
	return state
}

func (m *Manager) loadState(panelID string) *State {
	var raw State
	found, err := m.storage.Load(fileName(panelID), &raw)
	if err != nil {
		log.Printf("Failed to load buttons %s: %v", panelID, err)
		return defaultState(panelID)
	}
	if !found {
		return defaultState(panelID)
	}
	state := defaultState(panelID)
	for buttonID, info := range raw.Buttons {
		if info == nil {
			continue
		}
		entry, ok := state.Buttons[buttonID]
		if !ok {
			entry = &Info{Label: titleCase(buttonID)}
			state.Buttons[buttonID] = entry
		}
		if info.Label != "" {
			entry.Label = info.Label
		}
		entry.Minus = info.Minus
		entry.Plus = info.Plus
	}
	state.Locked = raw.Locked
	if raw.Cooldown > 0 {
		state.Cooldown = raw.Cooldown
	}
	state.Events = raw.Events
	for i := range state.Events {
		if state.Events[i].Seq == 0 {
			state.Events[i].Seq = i + 1
		}
	}
	if raw.NextSeq > 0 {
		state.NextSeq = raw.NextSeq
	} else {
		state.NextSeq = len(state.Events) + 1
	}
	if raw.LastByClient != nil {
		state.LastByClient = raw.LastByClient
	}
	state.Updated = raw.Updated
	return state
}

func (m *Manager) saveState(panelID string, state *State) error {
	if err := m.storage.Save(fileName(panelID), state); err != nil {
		return err
	}
	m.mu.Lock()
	m.states[panelID] = state
	m.mu.Unlock()
	return nil
}

func configSnapshot(state *State) Config {
	views := make([]ButtonView, 0, len(state.Buttons))
	for buttonID, info := range state.Buttons {
		views = append(views, ButtonView{
			ID:    buttonID,
			Label: info.Label,
			Minus: info.Minus,
			Plus:  info.Plus,
		})
	}
	order := make(map[string]int, len(Definitions))
	for idx, def := range Definitions {
		order[def.ID] = idx
	}
	sort.SliceStable(views, func(a, b int) bool {
		ra, ok := order[views[a].ID]
		if !ok {
			ra = len(order)
		}
		rb, ok := order[views[b].ID]
		if !ok {
			rb = len(order)
		}
		if ra != rb {
			return ra < rb
		}
		return views[a].ID < views[b].ID
	})
	return Config{
		PanelID:    state.PanelID,
		Buttons:    views,
		Locked:     state.Locked,
		Cooldown:   state.Cooldown,
		NextSeq:    state.NextSeq,
		EventCount: len(state.Events),
	}
}

func (m *Manager) GetConfig(panelID string) Config {
	lock := m.panelLock(panelID)
	lock.Lock()
	defer lock.Unlock()
	return configSnapshot(m.ensureLoaded(panelID))
}

func (m *Manager) UpdateConfig(panelID string, update ConfigUpdate) (Config, error) {
	lock := m.panelLock(panelID)
	lock.Lock()
	defer lock.Unlock()

	state := m.ensureLoaded(panelID)
	if update.Cooldown != nil {
		state.Cooldown = *update.Cooldown
		if state.Cooldown < 0 {
			state.Cooldown = 0
		}
	}
	if update.Locked != nil {
		state.Locked = *update.Locked
	}
	state.Updated = m.now()
	if err := m.saveState(panelID, state); err != nil {
		return Config{}, err
	}
	return configSnapshot(state), nil
}

// Fire increments one button's counter in the requested direction and
// appends an event. Direction must be "minus" or "plus" (case-insensitive);
// an unknown button id is a not-found error; locked and cooldown rules match
// the forms.
func (m *Manager) Fire(panelID, clientID, buttonID, direction string) (Event, error) {
	dir := strings.ToLower(direction)
	if dir != "minus" && dir != "plus" {
		return Event{}, resource.NewError("invalid_direction", "Direction must be 'minus' or 'plus'", http.StatusBadRequest)
	}
	now := m.now()

	lock := m.panelLock(panelID)
	lock.Lock()
	defer lock.Unlock()

	state := m.ensureLoaded(panelID)
	if state.Locked {
		return Event{}, resource.NewError("locked", "Panel is locked", http.StatusLocked)
	}
	info, ok := state.Buttons[buttonID]
	if !ok {
		return Event{}, resource.NewError("unknown_button",
			fmt.Sprintf("Button '%s' is not defined", buttonID), http.StatusNotFound)
	}
	if last, ok := state.LastByClient[clientID]; ok && state.Cooldown > 0 {
		if delta := now - last; delta < state.Cooldown {
			return Event{}, resource.NewError("cooldown", "Cooldown is active", http.StatusTooManyRequests).
				WithPayload(map[string]any{"retry_in": state.Cooldown - delta})
		}
	}

	if dir == "minus" {
		info.Minus++
	} else {
		info.Plus++
	}
	event := Event{
		Seq:       state.NextSeq,
		ButtonID:  buttonID,
		Label:     info.Label,
		Direction: dir,
		ClientID:  clientID,
		Timestamp: now,
	}
	state.Events = append(state.Events, event)
	if len(state.Events) > MaxEvents {
		state.Events = state.Events[len(state.Events)-MaxEvents:]
	}
	state.LastByClient[clientID] = now
	state.NextSeq++
	state.Updated = now
	if err := m.saveState(panelID, state); err != nil {
		return Event{}, err
	}
	return event, nil
}

// PanelState returns counters plus events with sequence numbers strictly
// greater than since; pass zero for everything.
func (m *Manager) PanelState(panelID string, since int) PanelState {
	lock := m.panelLock(panelID)
	lock.Lock()
	defer lock.Unlock()

	state := m.ensureLoaded(panelID)
	buttons := make(map[string]*Info, len(state.Buttons))
	for buttonID, info := range state.Buttons {
		copied := *info
		buttons[buttonID] = &copied
	}
	events := make([]Event, 0, len(state.Events))
	for _, item := range state.Events {
		if item.Seq > since {
			events = append(events, item)
		}
	}
	return PanelState{
		PanelID:  panelID,
		Buttons:  buttons,
		Events:   events,
		NextSeq:  state.NextSeq,
		Locked:   state.Locked,
		Cooldown: state.Cooldown,
		Updated:  state.Updated,
	}
}

// Reset zeroes every counter and drops all events; lock and cooldown
// settings are kept.
func (m *Manager) Reset(panelID string) (Config, error) {
	lock := m.panelLock(panelID)
	lock.Lock()
	defer lock.Unlock()

	state := m.ensureLoaded(panelID)
	for _, info := range state.Buttons {
		info.Minus = 0
		info.Plus = 0
	}
	state.Events = nil
	state.LastByClient = make(map[string]float64)
	state.NextSeq = 1
	state.Updated = m.now()
	if err := m.saveState(panelID, state); err != nil {
		return Config{}, err
	}
	return configSnapshot(state), nil
}

// ListIDs returns every known panel id: cached, persisted, and the default.
func (m *Manager) ListIDs() []string {
	seen := map[string]bool{DefaultPanelID: true}
	m.mu.Lock()
	for id := range m.states {
		seen[id] = true
	}
	m.mu.Unlock()
	for _, id := range m.storage.List("buttons_") {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
