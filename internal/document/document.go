// Package document owns per-document highlight state: the token stream, the
// per-token vote maps, and the aggregation that turns votes into ranges and
// phrases. Every mutation runs under the document's own lock, persists an
// atomic snapshot, and republishes the cached state as its final step, so
// lock-free readers see a stale-but-consistent snapshot at worst.
package document

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/davinel000/highlighter-server/internal/markdown"
	"github.com/davinel000/highlighter-server/internal/storage"
	"github.com/davinel000/highlighter-server/internal/tokenizer"
)

// State is the persisted snapshot of one document. Votes always has the
// same length as Tokens; each element maps client id to voted color.
type State struct {
	Tokens     []string            `json:"tokens"`
	Votes      []map[string]string `json:"votes"`
	Updated    float64             `json:"updated,omitempty"`
	SourceName string              `json:"sourceName"`
}

// SourceNotFoundError reports a source file that does not exist under the
// sources directory.
type SourceNotFoundError struct {
	Name string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source '%s' not found", e.Name)
}

// Store is the registry of document states keyed by document id.
type Store struct {
	storage       *storage.Store
	sourcesDir    string
	defaultDoc    string
	defaultSource string

	mu     sync.Mutex
	states map[string]*State
	locks  map[string]*sync.Mutex

	flagMu    sync.RWMutex
	lockFlags map[string]bool

	now func() float64
}

func NewStore(st *storage.Store, sourcesDir, defaultDoc, defaultSource string) *Store {
	return &Store{
		storage:       st,
		sourcesDir:    sourcesDir,
		defaultDoc:    defaultDoc,
		defaultSource: defaultSource,
		states:        make(map[string]*State),
		locks:         make(map[string]*sync.Mutex),
		lockFlags:     make(map[string]bool),
		now:           func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

func stateName(docID string) string {
	return "state_" + docID + ".json"
}

func (s *Store) docLock(docID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[docID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[docID] = lock
	}
	return lock
}

// getState returns the cached state for a document, loading it from disk on
// first access. A corrupt or unreadable snapshot is logged and treated as an
// absent document.
func (s *Store) getState(docID string) *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[docID]
	if !ok {
		state = s.loadState(docID)
		s.states[docID] = state
	}
	return state
}

func (s *Store) loadState(docID string) *State {
	state := &State{SourceName: s.defaultSource}
	found, err := s.storage.Load(stateName(docID), state)
	if err != nil {
		log.Printf("Failed to load state for %s: %v", docID, err)
		return &State{SourceName: s.defaultSource}
	}
	if !found {
		return state
	}
	if state.SourceName == "" {
		state.SourceName = s.defaultSource
	} else {
		state.SourceName = filepath.Base(state.SourceName)
	}
	for i, bucket := range state.Votes {
		if bucket == nil {
			state.Votes[i] = map[string]string{}
		}
	}
	ensureVotesLength(state)
	return state
}

// saveState persists the snapshot and publishes it as the current cached
// state. Publishing last keeps lock-free readers consistent.
func (s *Store) saveState(docID string, state *State) error {
	ensureVotesLength(state)
	if err := s.storage.Save(stateName(docID), state); err != nil {
		return err
	}
	s.mu.Lock()
	s.states[docID] = state
	s.mu.Unlock()
	return nil
}

// EnsureTokens returns the document state, tokenizing the resolved source on
// first use. Idempotent once tokens exist.
func (s *Store) EnsureTokens(docID, sourceName string) (*State, error) {
	lock := s.docLock(docID)
	lock.Lock()
	defer lock.Unlock()
	return s.ensureTokensLocked(docID, sourceName)
}

func (s *Store) ensureTokensLocked(docID, sourceName string) (*State, error) {
	state := s.getState(docID)
	if len(state.Tokens) > 0 {
		return state, nil
	}
	resolved := s.resolveSourceName(state, sourceName)
	tokens, err := s.tokenizeFromSource(resolved)
	if err != nil {
		return nil, err
	}
	next := cloneState(state)
	next.Tokens = tokens
	next.SourceName = resolved
	if next.Updated == 0 {
		next.Updated = s.now()
	}
	if err := s.saveState(docID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Retokenize unconditionally re-tokenizes the document from the resolved
// source, resetting all votes.
func (s *Store) Retokenize(docID, sourceName string) (*State, error) {
	resolved := s.defaultSource
	if sourceName != "" {
		resolved = filepath.Base(sourceName)
	}
	tokens, err := s.tokenizeFromSource(resolved)
	if err != nil {
		return nil, err
	}
	lock := s.docLock(docID)
	lock.Lock()
	defer lock.Unlock()

	next := cloneState(s.getState(docID))
	next.Tokens = tokens
	next.Votes = emptyVotes(len(tokens))
	next.Updated = s.now()
	next.SourceName = resolved
	if err := s.saveState(docID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ClearVotes replaces every vote map with an empty one. Tokens are kept.
func (s *Store) ClearVotes(docID string) (*State, error) {
	lock := s.docLock(docID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.ensureTokensLocked(docID, "")
	if err != nil {
		return nil, err
	}
	next := cloneState(state)
	next.Votes = emptyVotes(len(next.Tokens))
	next.Updated = s.now()
	if err := s.saveState(docID, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ApplyHighlight records one client's color vote over the inclusive token
// range [start, end]. An empty color removes the client's votes there.
// Returns whether anything changed; a lock-flagged document rejects the
// mutation before taking the document lock.
func (s *Store) ApplyHighlight(docID, clientID string, start, end int, color string, timestamp float64) (bool, error) {
	if s.IsLocked(docID) {
		return false, nil
	}
	lock := s.docLock(docID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.ensureTokensLocked(docID, "")
	if err != nil {
		return false, err
	}
	n := len(state.Tokens)
	if n == 0 {
		return false, nil
	}
	start = clamp(start, 0, n-1)
	end = clamp(end, 0, n-1)
	if start > end {
		start, end = end, start
	}

	next := cloneState(state)
	changed := false
	for idx := start; idx <= end; idx++ {
		bucket := next.Votes[idx]
		if color != "" {
			if bucket[clientID] != color {
				bucket[clientID] = color
				changed = true
			}
		} else if _, ok := bucket[clientID]; ok {
			delete(bucket, clientID)
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	next.Updated = timestamp
	if next.Updated == 0 {
		next.Updated = s.now()
	}
	if err := s.saveState(docID, next); err != nil {
		return false, err
	}
	return true, nil
}

// ClearClient removes every vote cast by the client across the document.
func (s *Store) ClearClient(docID, clientID string, timestamp float64) (bool, error) {
	if s.IsLocked(docID) {
		return false, nil
	}
	lock := s.docLock(docID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.ensureTokensLocked(docID, "")
	if err != nil {
		return false, err
	}
	next := cloneState(state)
	changed := false
	for _, bucket := range next.Votes {
		if _, ok := bucket[clientID]; ok {
			delete(bucket, clientID)
			changed = true
		}
	}
	if !changed {
		return false, nil
	}
	next.Updated = timestamp
	if next.Updated == 0 {
		next.Updated = s.now()
	}
	if err := s.saveState(docID, next); err != nil {
		return false, err
	}
	return true, nil
}

// SetLocked toggles the process-wide lock flag for a document. The flag is
// not part of the persisted snapshot.
func (s *Store) SetLocked(docID string, value bool) {
	s.flagMu.Lock()
	s.lockFlags[docID] = value
	s.flagMu.Unlock()
}

func (s *Store) IsLocked(docID string) bool {
	s.flagMu.RLock()
	defer s.flagMu.RUnlock()
	return s.lockFlags[docID]
}

// ListIDs returns every known document id: cached, persisted, and the
// default.
func (s *Store) ListIDs() []string {
	seen := map[string]bool{s.defaultDoc: true}
	s.mu.Lock()
	for id := range s.states {
		seen[id] = true
	}
	s.mu.Unlock()
	for _, id := range s.storage.List("state_") {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ListSources returns the source files available for tokenization.
func (s *Store) ListSources() []string {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md", ".html":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names
}

// ReadSourceText reads a source file by sanitized name, stripping any BOM.
func (s *Store) ReadSourceText(name string) (string, error) {
	sanitized := s.SanitizeSourceName(name)
	path := filepath.Join(s.sourcesDir, sanitized)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", &SourceNotFoundError{Name: sanitized}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &SourceNotFoundError{Name: sanitized}
	}
	return tokenizer.StripBOM(string(data)), nil
}

// SanitizeSourceName strips any path components, falling back to the
// default source.
func (s *Store) SanitizeSourceName(name string) string {
	if name == "" {
		return s.defaultSource
	}
	return filepath.Base(name)
}

// DefaultDoc returns the configured default document id.
func (s *Store) DefaultDoc() string {
	return s.defaultDoc
}

// ExportPath returns the data-directory path for an export file name.
func (s *Store) ExportPath(name string) string {
	return s.storage.Path(name)
}

func (s *Store) resolveSourceName(state *State, override string) string {
	if override != "" {
		return filepath.Base(override)
	}
	if state.SourceName != "" {
		return filepath.Base(state.SourceName)
	}
	return s.defaultSource
}

// tokenizeFromSource reads and tokenizes a source file. Markdown sources are
// rendered to HTML first; html-like streams drop empty and newline tokens so
// block structure does not leak bare newlines into the indices.
func (s *Store) tokenizeFromSource(sourceName string) ([]string, error) {
	text, err := s.ReadSourceText(sourceName)
	if err != nil {
		return nil, err
	}
	isMD := markdown.IsMarkdownName(sourceName)
	htmlLike := isMD || strings.HasSuffix(strings.ToLower(sourceName), ".html")

	var tokens []string
	if isMD {
		rendered, err := markdown.Render(text)
		if err != nil {
			return nil, err
		}
		tokens = tokenizer.Tokenize(tokenizer.StripBOM(rendered))
	} else {
		tokens = tokenizer.Tokenize(text)
	}
	if htmlLike {
		filtered := tokens[:0]
		for _, tok := range tokens {
			if tok != "" && tok != "\n" {
				filtered = append(filtered, tok)
			}
		}
		tokens = filtered
	}
	return tokens, nil
}

func ensureVotesLength(state *State) {
	target := len(state.Tokens)
	if len(state.Votes) > target {
		state.Votes = state.Votes[:target]
		return
	}
	for len(state.Votes) < target {
		state.Votes = append(state.Votes, map[string]string{})
	}
}

func emptyVotes(n int) []map[string]string {
	votes := make([]map[string]string, n)
	for i := range votes {
		votes[i] = map[string]string{}
	}
	return votes
}

func cloneState(state *State) *State {
	next := &State{
		Tokens:     state.Tokens,
		Votes:      make([]map[string]string, len(state.Votes)),
		Updated:    state.Updated,
		SourceName: state.SourceName,
	}
	for i, bucket := range state.Votes {
		copied := make(map[string]string, len(bucket))
		for k, v := range bucket {
			copied[k] = v
		}
		next.Votes[i] = copied
	}
	return next
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
