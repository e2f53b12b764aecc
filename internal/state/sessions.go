// internal/state/sessions.go
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/user/mindmirror/internal/types"
)

var (
	// ErrDuplicateID is returned by Create when the session id is already present.
	ErrDuplicateID = errors.New("duplicate session id")

	// ErrSessionNotFound is returned when an operation names a session id
	// that is not in the store. Callers racing against deletion treat this
	// as benign.
	ErrSessionNotFound = errors.New("session not found")
)

// Store is the authoritative collection of sessions plus the active-session
// pointer. State lives in memory; every mutation schedules an asynchronous
// full-snapshot persist to sessions.json under the store root. Writes are
// atomic (temp file + rename) and coalesced, so rapid successive mutations
// collapse to few writes but the latest state is always flushed.
type Store struct {
	root string

	mu       sync.RWMutex
	sessions map[types.SessionID]*types.Session
	order    []types.SessionID
	active   types.SessionID

	version   atomic.Int64
	persisted atomic.Int64
	flight    singleflight.Group
	persistMu sync.Mutex
	wg        sync.WaitGroup
}

// Open creates a Store rooted at the given directory and loads any persisted
// sessions. A missing file yields an empty store; a corrupted file is logged
// and replaced with an empty store. Open never fails on bad persisted data.
func Open(root string) *Store {
	s := &Store{
		root:     root,
		sessions: make(map[types.SessionID]*types.Session),
	}
	s.load()
	return s
}

func (s *Store) path() string {
	return filepath.Join(s.root, "sessions.json")
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Error("read sessions file", "path", s.path(), "error", err)
		}
		return
	}

	var list []*types.Session
	if err := json.Unmarshal(data, &list); err != nil {
		slog.Error("parse sessions file, starting empty", "path", s.path(), "error", err)
		return
	}

	for _, sess := range list {
		if sess == nil || sess.ID == "" {
			continue
		}
		if _, ok := s.sessions[sess.ID]; ok {
			continue
		}
		s.sessions[sess.ID] = sess
		s.order = append(s.order, sess.ID)
	}
}

// List returns all sessions in creation order. Consumers needing recency
// order reverse this themselves.
func (s *Store) List() []*types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].Clone())
	}
	return out
}

// Get returns a copy of the session, or false if it does not exist.
func (s *Store) Get(id types.SessionID) (*types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.Clone(), true
}

// Create inserts a new session. The store takes its own copy.
func (s *Store) Create(session *types.Session) error {
	s.mu.Lock()
	if _, ok := s.sessions[session.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	s.order = append(s.order, session.ID)
	s.mu.Unlock()

	s.schedulePersist()
	return nil
}

// AppendMessage appends to the named session's transcript and bumps
// LastUpdated. A missing session is reported but mutates nothing; this can
// legitimately race with deletion.
func (s *Store) AppendMessage(id types.SessionID, msg types.Message) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Messages = append(sess.Messages, msg)
	// LastUpdated is monotone: take the later of the message stamp and the
	// wall clock, and never move it backwards.
	upd := time.Now()
	if msg.Timestamp.After(upd) {
		upd = msg.Timestamp
	}
	if upd.After(sess.LastUpdated) {
		sess.LastUpdated = upd
	}
	s.mu.Unlock()

	s.schedulePersist()
	return nil
}

// Delete removes the session. If it was active, the active selection clears.
func (s *Store) Delete(id types.SessionID) error {
	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == id {
		s.active = ""
	}
	s.mu.Unlock()

	s.schedulePersist()
	return nil
}

// Active returns the currently selected session id, if any.
func (s *Store) Active() (types.SessionID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.active != ""
}

// SetActive selects an existing session.
func (s *Store) SetActive(id types.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.active = id
	return nil
}

// ClearActive drops the active selection.
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
}

// schedulePersist marks the state dirty and kicks an async flush. Callers
// never block on persistence.
func (s *Store) schedulePersist() {
	s.version.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.flushLatest()
	}()
}

// flushLatest writes snapshots until the persisted version catches up with
// the current one. Concurrent flushers collapse onto a single writer via
// singleflight; the version check closes the window where a joiner rode on
// a snapshot taken before its own mutation.
func (s *Store) flushLatest() {
	for s.persisted.Load() < s.version.Load() {
		_, err, _ := s.flight.Do("persist", func() (any, error) {
			return nil, s.writeSnapshot()
		})
		s.flight.Forget("persist")
		if err != nil {
			slog.Error("persist sessions", "path", s.path(), "error", err)
			return
		}
	}
}

// Flush synchronously persists the current state. Close calls this; tests
// and process shutdown use it to avoid dropping trailing writes.
func (s *Store) Flush() error {
	s.version.Add(1)
	for s.persisted.Load() < s.version.Load() {
		if err := s.writeSnapshot(); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for outstanding async persists and performs a final flush.
func (s *Store) Close() error {
	s.wg.Wait()
	return s.Flush()
}

// writeSnapshot is the single point where sessions.json gets written.
// persistMu serializes it across the async flushers and synchronous Flush
// callers, so two temp-file write+rename sequences never interleave.
func (s *Store) writeSnapshot() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	v := s.version.Load()
	list := make([]*types.Session, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.sessions[id])
	}
	data, err := json.MarshalIndent(list, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	// Atomic write: temp file then rename, so a crash mid-write never
	// leaves a truncated sessions.json behind.
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp sessions: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp sessions: %w", err)
	}

	for {
		cur := s.persisted.Load()
		if cur >= v || s.persisted.CompareAndSwap(cur, v) {
			return nil
		}
	}
}
