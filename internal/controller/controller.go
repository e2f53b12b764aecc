// Package controller is the only component that touches both the session
// store and the chat dispatcher. It encodes the session lifecycle: none →
// payload construction → active, with delete possible from anywhere.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/mindmirror/internal/dispatch"
	"github.com/user/mindmirror/internal/guide"
	"github.com/user/mindmirror/internal/settings"
	"github.com/user/mindmirror/internal/types"
	"github.com/user/mindmirror/pkg/llm"
)

var (
	// ErrNoActiveSession is returned by SendUserTurn when no session is
	// selected.
	ErrNoActiveSession = errors.New("no active session")

	// ErrBusy is returned while a turn for the same session is in flight.
	ErrBusy = errors.New("turn already in flight for this session")

	// ErrEmptyPayload is returned by CommitPayload when neither cards nor a
	// sandplay snapshot are present.
	ErrEmptyPayload = errors.New("payload has no cards and no sandplay")
)

// Dispatcher is the slice of the chat dispatcher the controller uses.
type Dispatcher interface {
	Send(ctx context.Context, conv llm.Conversation, text string, history []types.Message, st settings.Settings) string
	NewConversation(ctx context.Context, seed []types.Message, st settings.Settings) (llm.Conversation, error)
	Prime(ctx context.Context, conv llm.Conversation, payload types.Payload)
}

var _ Dispatcher = (*dispatch.Dispatcher)(nil)

// Controller orchestrates session lifecycle, message routing and handle
// management. The conversation handle is owned here exclusively: it is
// rebuilt deterministically from session history plus settings and never
// aliased outside the controller.
type Controller struct {
	store    types.SessionStore
	settings *settings.Store
	dispatch Dispatcher

	mu      sync.Mutex
	conv    llm.Conversation
	loading map[types.SessionID]bool
}

// New wires a controller to its collaborators.
func New(store types.SessionStore, st *settings.Store, d Dispatcher) *Controller {
	return &Controller{
		store:    store,
		settings: st,
		dispatch: d,
		loading:  make(map[types.SessionID]bool),
	}
}

// StartNew clears the active session and any conversation handle, entering
// the payload-construction state. Idempotent.
func (c *Controller) StartNew() {
	c.store.ClearActive()
	c.mu.Lock()
	c.conv = nil
	c.mu.Unlock()
}

// CommitPayload turns a finished draw or sandplay arrangement into a new
// active session. The opening model message is written immediately; for
// stateful providers the conversation handle is built and primed in the
// background, so the session is visible and usable before any network work
// completes.
func (c *Controller) CommitPayload(ctx context.Context, payload types.Payload) (*types.Session, error) {
	if payload.Cards == nil && payload.Sandplay == nil {
		return nil, ErrEmptyPayload
	}

	now := time.Now()
	sessType := types.SessionCard
	if payload.Sandplay != nil {
		sessType = types.SessionSandplay
	}

	sess := &types.Session{
		ID:          types.NewSessionID(),
		Type:        sessType,
		Title:       guide.Title(payload, now),
		CreatedAt:   now,
		LastUpdated: now,
		Payload:     payload,
		Messages: []types.Message{{
			ID:        types.NewMessageID(),
			Role:      types.RoleModel,
			Text:      guide.OpeningMessage(payload),
			Timestamp: now,
		}},
	}

	if err := c.store.Create(sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := c.store.SetActive(sess.ID); err != nil {
		return nil, fmt.Errorf("activate session: %w", err)
	}

	c.mu.Lock()
	c.conv = nil
	c.mu.Unlock()

	st := c.settings.Current()
	if st.Stateful() && st.APIKey != "" {
		go c.openAndPrime(ctx, sess.ID, payload, st)
	}

	return sess, nil
}

// openAndPrime builds a fresh handle, sends the hidden priming context, and
// installs the handle if the session is still active and none was built in
// the meantime. A priming failure leaves the session fully usable, just
// without server-side memory of the hidden context.
func (c *Controller) openAndPrime(ctx context.Context, id types.SessionID, payload types.Payload, st settings.Settings) {
	conv, err := c.dispatch.NewConversation(ctx, nil, st)
	if err != nil {
		slog.Warn("open conversation for priming failed", "session_id", id, "error", err)
		return
	}
	c.dispatch.Prime(ctx, conv, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if active, ok := c.store.Active(); ok && active == id && c.conv == nil {
		c.conv = conv
	}
}

// SelectExisting activates a stored session. For stateful providers the
// handle is rebuilt by replaying the visible transcript as seed history; no
// re-priming happens, the replayed history itself carries context. For
// stateless providers no handle is needed.
func (c *Controller) SelectExisting(ctx context.Context, id types.SessionID) error {
	if err := c.store.SetActive(id); err != nil {
		return err
	}

	c.mu.Lock()
	c.conv = nil
	c.mu.Unlock()

	st := c.settings.Current()
	if !st.Stateful() || st.APIKey == "" {
		return nil
	}

	sess, ok := c.store.Get(id)
	if !ok {
		return nil
	}
	conv, err := c.dispatch.NewConversation(ctx, sess.Messages, st)
	if err != nil {
		// Degrade to lazy rebuild on the next turn.
		slog.Warn("rebuild conversation failed", "session_id", id, "error", err)
		return nil
	}
	c.mu.Lock()
	c.conv = conv
	c.mu.Unlock()
	return nil
}

// SendUserTurn appends the user message, dispatches it, and appends the
// model reply — including apology/error replies, so the transcript stays a
// complete record. The target session id is captured here, not read back
// from the store after dispatch, so a session switch mid-request still
// lands the reply in the right transcript, and deletion makes the append a
// benign no-op.
func (c *Controller) SendUserTurn(ctx context.Context, text string) error {
	id, ok := c.store.Active()
	if !ok {
		return ErrNoActiveSession
	}

	c.mu.Lock()
	if c.loading[id] {
		c.mu.Unlock()
		return ErrBusy
	}
	c.loading[id] = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.loading, id)
		c.mu.Unlock()
	}()

	sess, ok := c.store.Get(id)
	if !ok {
		return nil
	}
	history := sess.Messages

	// The user turn is persisted before dispatch begins, the reply
	// immediately on return: transcript order is real turn order.
	if err := c.store.AppendMessage(id, types.Message{
		ID:        types.NewMessageID(),
		Role:      types.RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}); err != nil {
		slog.Debug("append user turn skipped", "session_id", id, "error", err)
		return nil
	}

	st := c.settings.Current()
	conv := c.handleFor(ctx, id, history, st)

	reply := c.dispatch.Send(ctx, conv, text, history, st)

	if err := c.store.AppendMessage(id, types.Message{
		ID:        types.NewMessageID(),
		Role:      types.RoleModel,
		Text:      reply,
		Timestamp: time.Now(),
	}); err != nil {
		// Session deleted while the request was outstanding.
		slog.Debug("append reply skipped", "session_id", id, "error", err)
	}
	return nil
}

// handleFor returns the conversation handle for a stateful turn, lazily
// rebuilding one from history when settings changed or priming never
// completed. Stateless providers get nil.
func (c *Controller) handleFor(ctx context.Context, id types.SessionID, history []types.Message, st settings.Settings) llm.Conversation {
	if !st.Stateful() || st.APIKey == "" {
		return nil
	}

	c.mu.Lock()
	conv := c.conv
	c.mu.Unlock()
	if conv != nil {
		return conv
	}

	conv, err := c.dispatch.NewConversation(ctx, history, st)
	if err != nil {
		slog.Warn("lazy conversation rebuild failed", "session_id", id, "error", err)
		return nil
	}

	c.mu.Lock()
	if active, ok := c.store.Active(); ok && active == id {
		c.conv = conv
	}
	c.mu.Unlock()
	return conv
}

// DeleteSession removes a session. If it was active the controller returns
// to the none state and drops the conversation handle. Deleting an unknown
// id is benign.
func (c *Controller) DeleteSession(id types.SessionID) {
	active, hadActive := c.store.Active()
	if err := c.store.Delete(id); err != nil {
		slog.Debug("delete session skipped", "session_id", id, "error", err)
		return
	}
	if hadActive && active == id {
		c.mu.Lock()
		c.conv = nil
		delete(c.loading, id)
		c.mu.Unlock()
	}
}

// UpdateProviderSettings persists new settings and unconditionally drops
// the conversation handle: a changed provider, model or key invalidates
// whatever the old handle encoded. The next turn rebuilds lazily.
func (c *Controller) UpdateProviderSettings(s settings.Settings) error {
	if err := c.settings.Save(s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	c.mu.Lock()
	c.conv = nil
	c.mu.Unlock()
	return nil
}

// Loading reports whether a turn is in flight for the session.
func (c *Controller) Loading(id types.SessionID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[id]
}

// ActiveSession returns a copy of the active session, if any.
func (c *Controller) ActiveSession() (*types.Session, bool) {
	id, ok := c.store.Active()
	if !ok {
		return nil, false
	}
	return c.store.Get(id)
}
