// Package forms manages named feedback forms: a question, submission rules
// (lock, cooldown, repeat policy), and a bounded list of sequence-numbered
// responses. Each form is loaded lazily, mutated under its own lock, and
// persisted after every change.
package forms

import (
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
	DefaultFormID   = "feedback"
	DefaultQuestion = "Share your thoughts with us."

	MaxAnswerLength   = 1024
	MaxResponses      = 2000
	maxQuestionLength = 280
)

// Response is one submitted answer.
type Response struct {
	Seq       int     `json:"seq"`
	ClientID  string  `json:"clientId"`
	Answer    string  `json:"answer"`
	Question  string  `json:"question"`
	Submitted float64 `json:"submitted"`
}

// State is the persisted snapshot of one form.
type State struct {
	FormID       string             `json:"formId"`
	Question     string             `json:"question"`
	Cooldown     float64            `json:"cooldown"`
	AllowRepeat  bool               `json:"allowRepeat"`
	Locked       bool               `json:"locked"`
	Responses    []Response         `json:"responses"`
	LastByClient map[string]float64 `json:"lastByClient"`
	NextSeq      int                `json:"nextSeq"`
	Updated      float64            `json:"updated,omitempty"`
}

// Config is the form's configuration snapshot returned by config and clear
// operations.
type Config struct {
	FormID        string  `json:"formId"`
	Question      string  `json:"question"`
	Cooldown      float64 `json:"cooldown"`
	AllowRepeat   bool    `json:"allowRepeat"`
	Locked        bool    `json:"locked"`
	NextSeq       int     `json:"nextSeq"`
	ResponseCount int     `json:"responseCount"`
}

// ConfigUpdate carries optional configuration changes; nil fields are left
// untouched.
type ConfigUpdate struct {
	Question    *string
	Cooldown    *float64
	AllowRepeat *bool
	Locked      *bool
}

// Results is the response listing returned to pollers.
type Results struct {
	FormID      string     `json:"formId"`
	Results     []Response `json:"results"`
	NextSeq     int        `json:"nextSeq"`
	Updated     float64    `json:"updated,omitempty"`
	Cooldown    float64    `json:"cooldown"`
	AllowRepeat bool       `json:"allowRepeat"`
	Locked      bool       `json:"locked"`
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

func fileName(formID string) string {
	return "form_" + formID + ".json"
}

func (m *Manager) formLock(formID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[formID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[formID] = lock
	}
	return lock
}

func defaultState(formID string) *State {
	return &State{
		FormID:       formID,
		Question:     DefaultQuestion,
		AllowRepeat:  true,
		LastByClient: make(map[string]float64),
		NextSeq:      1,
	}
}

func (m *Manager) ensureLoaded(formID string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[formID]
	if !ok {
		state = m.loadState(formID)
		m.states[formID] = state
	}
	return state
}

// stateFile mirrors the snapshot layout with pointers where the documented
// default is not the zero value.
type stateFile struct {
	Question     string             `json:"question"`
	Cooldown     float64            `json:"cooldown"`
	AllowRepeat  *bool              `json:"allowRepeat"`
	Locked       bool               `json:"locked"`
	Responses    []Response         `json:"responses"`
	LastByClient map[string]float64 `json:"lastByClient"`
	NextSeq      int                `json:"nextSeq"`
	Updated      float64            `json:"updated"`
}

func (m *Manager) loadState(formID string) *State {
	var raw stateFile
	found, err := m.storage.Load(fileName(formID), &raw)
	if err != nil {
		log.Printf("Failed to load form %s: %v", formID, err)
		return defaultState(formID)
	}
	if !found {
		return defaultState(formID)
	}
	state := defaultState(formID)
	if q := strings.TrimSpace(raw.Question); q != "" {
		state.Question = q
	}
	if raw.Cooldown > 0 {
		state.Cooldown = raw.Cooldown
	}
	if raw.AllowRepeat != nil {
		state.AllowRepeat = *raw.AllowRepeat
	}
	state.Locked = raw.Locked
	state.Responses = raw.Responses
	for i := range state.Responses {
		if state.Responses[i].Seq == 0 {
			state.Responses[i].Seq = i + 1
		}
	}
	if raw.NextSeq > 0 {
		state.NextSeq = raw.NextSeq
	} else {
		state.NextSeq = len(state.Responses) + 1
	}
	if raw.LastByClient != nil {
		state.LastByClient = raw.LastByClient
	}
	state.Updated = raw.Updated
	return state
}

func (m *Manager) saveState(formID string, state *State) error {
	if err := m.storage.Save(fileName(formID), state); err != nil {
		return err
	}
	m.mu.Lock()
	m.states[formID] = state
	m.mu.Unlock()
	return nil
}

func configSnapshot(state *State) Config {
	return Config{
		FormID:        state.FormID,
		Question:      state.Question,
		Cooldown:      state.Cooldown,
		AllowRepeat:   state.AllowRepeat,
		Locked:        state.Locked,
		NextSeq:       state.NextSeq,
		ResponseCount: len(state.Responses),
	}
}

func (m *Manager) GetConfig(formID string) Config {
	lock := m.formLock(formID)
	lock.Lock()
	defer lock.Unlock()
	return configSnapshot(m.ensureLoaded(formID))
}

func (m *Manager) UpdateConfig(formID string, update ConfigUpdate) (Config, error) {
	lock := m.formLock(formID)
	lock.Lock()
	defer lock.Unlock()

	state := m.ensureLoaded(formID)
	if update.Question != nil {
		q := strings.TrimSpace(*update.Question)
		if q == "" {
			return Config{}, resource.NewError("invalid_question", "Question cannot be empty", http.StatusBadRequest)
		}
		if len([]rune(q)) > maxQuestionLength {
			return Config{}, resource.NewError("invalid_question", "Question must be 280 characters or fewer", http.StatusBadRequest)
		}
		state.Question = q
	}
	if update.Cooldown != nil {
		state.Cooldown = *update.Cooldown
		if state.Cooldown < 0 {
			state.Cooldown = 0
		}
	}
	if update.AllowRepeat != nil {
		state.AllowRepeat = *update.AllowRepeat
	}
	if update.Locked != nil {
		state.Locked = *update.Locked
	}
	state.Updated = m.now()
	if err := m.saveState(formID, state); err != nil {
		return Config{}, err
	}
	return configSnapshot(state), nil
}

// Submit validates and appends one answer. Rejections: locked form (423),
// cooldown still active (429, retry_in payload), repeat submission when
// repeats are disabled (409), empty answer (400). Overlong answers are
// trimmed, not rejected.
func (m *Manager) Submit(formID, clientID, answer string) (Response, error) {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return Response{}, resource.NewError("empty_answer", "Answer cannot be empty", http.StatusBadRequest)
	}
	if len([]rune(trimmed)) > MaxAnswerLength {
		trimmed = string([]rune(trimmed)[:MaxAnswerLength])
	}
	now := m.now()

	lock := m.formLock(formID)
	lock.Lock()
	defer lock.Unlock()

	state := m.ensureLoaded(formID)
	if state.Locked {
		return Response{}, resource.NewError("locked", "Form is locked", http.StatusLocked)
	}
	if last, ok := state.LastByClient[clientID]; ok && state.Cooldown > 0 {
		if delta := now - last; delta < state.Cooldown {
			return Response{}, resource.NewError("cooldown", "Cooldown is active", http.StatusTooManyRequests).
				WithPayload(map[string]any{"retry_in": state.Cooldown - delta})
		}
	}
	if !state.AllowRepeat {
		for _, item := range state.Responses {
			if item.ClientID == clientID {
				return Response{}, resource.NewError("repeat_not_allowed", "Repeat submissions are disabled", http.StatusConflict)
			}
		}
	}

	record := Response{
		Seq:       state.NextSeq,
		ClientID:  clientID,
		Answer:    trimmed,
		Question:  state.Question,
		Submitted: now,
	}
	state.Responses = append(state.Responses, record)
	if len(state.Responses) > MaxResponses {
		state.Responses = state.Responses[len(state.Responses)-MaxResponses:]
	}
	state.LastByClient[clientID] = now
	state.NextSeq++
	state.Updated = now
	if err := m.saveState(formID, state); err != nil {
		return Response{}, err
	}
	return record, nil
}

// Results returns responses with sequence numbers strictly greater than
// since. Pass a negative or zero since for everything.
func (m *Manager) Results(formID string, since int) Results {
	lock := m.formLock(formID)
	lock.Lock()
	defer lock.Unlock()

	state := m.ensureLoaded(formID)
	items := make([]Response, 0, len(state.Responses))
	for _, item := range state.Responses {
		if item.Seq > since {
			items = append(items, item)
		}
	}
	return Results{
		FormID:      formID,
		Results:     items,
		NextSeq:     state.NextSeq,
		Updated:     state.Updated,
		Cooldown:    state.Cooldown,
		AllowRepeat: state.AllowRepeat,
		Locked:      state.Locked,
	}
}

// Clear drops all responses and cooldown bookkeeping; configuration is kept.
func (m *Manager) Clear(formID string) (Config, error) {
	lock := m.formLock(formID)
	lock.Lock()
	defer lock.Unlock()

	state := m.ensureLoaded(formID)
	state.Responses = nil
	state.LastByClient = make(map[string]float64)
	state.NextSeq = 1
	state.Updated = m.now()
	if err := m.saveState(formID, state); err != nil {
		return Config{}, err
	}
	return configSnapshot(state), nil
}

// ListIDs returns every known form id: cached, persisted, and the default.
func (m *Manager) ListIDs() []string {
	seen := map[string]bool{DefaultFormID: true}
	m.mu.Lock()
	for id := range m.states {
		seen[id] = true
	}
	m.mu.Unlock()
	for _, id := range m.storage.List("form_") {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
