// internal/state/sessions_test.go
package state

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/user/mindmirror/internal/types"
)

func newSession(title string) *types.Session {
	now := time.Now()
	return &types.Session{
		ID:          types.NewSessionID(),
		Type:        types.SessionCard,
		Title:       title,
		CreatedAt:   now,
		LastUpdated: now,
		Payload: types.Payload{
			Cards: &types.CardCombination{
				Image: types.CardImage{ID: "img-1", URL: "/cards/image-card/1.jpg"},
				Word:  types.CardWord{ID: "word-135", Text: "希望"},
			},
		},
		Messages: []types.Message{{
			ID:        types.NewMessageID(),
			Role:      types.RoleModel,
			Text:      "你好。",
			Timestamp: now,
		}},
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := Open(t.TempDir())
	defer store.Close()

	sess := newSession("a")
	if err := store.Create(sess); err != nil {
		t.Fatal(err)
	}

	got, ok := store.Get(sess.ID)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if got.Title != "a" {
		t.Errorf("expected title a, got %s", got.Title)
	}

	// Duplicate ids are rejected.
	if err := store.Create(sess); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := Open(t.TempDir())
	defer store.Close()

	sess := newSession("a")
	if err := store.Create(sess); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(sess.ID)
	got.Messages[0].Text = "mutated"
	got.Title = "mutated"

	again, _ := store.Get(sess.ID)
	if again.Messages[0].Text != "你好。" || again.Title != "a" {
		t.Error("store state leaked through a returned session")
	}
}

func TestStoreListCreationOrder(t *testing.T) {
	store := Open(t.TempDir())
	defer store.Close()

	a, b, c := newSession("a"), newSession("b"), newSession("c")
	for _, s := range []*types.Session{a, b, c} {
		if err := store.Create(s); err != nil {
			t.Fatal(err)
		}
	}

	list := store.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(list))
	}
	if list[0].ID != a.ID || list[1].ID != b.ID || list[2].ID != c.ID {
		t.Error("expected creation order")
	}
}

func TestAppendMessageBumpsLastUpdated(t *testing.T) {
	store := Open(t.TempDir())
	defer store.Close()

	sess := newSession("a")
	if err := store.Create(sess); err != nil {
		t.Fatal(err)
	}
	before, _ := store.Get(sess.ID)

	msg := types.Message{
		ID:        types.NewMessageID(),
		Role:      types.RoleUser,
		Text:      "我看到了光",
		Timestamp: time.Now(),
	}
	if err := store.AppendMessage(sess.ID, msg); err != nil {
		t.Fatal(err)
	}

	after, _ := store.Get(sess.ID)
	if len(after.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(after.Messages))
	}
	if after.LastUpdated.Before(before.LastUpdated) {
		t.Error("LastUpdated went backwards")
	}

	// A backdated message stamp never pulls LastUpdated backwards either.
	if err := store.AppendMessage(sess.ID, types.Message{
		ID:        types.NewMessageID(),
		Role:      types.RoleModel,
		Text:      "迟到的回应",
		Timestamp: time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}
	latest, _ := store.Get(sess.ID)
	if latest.LastUpdated.Before(after.LastUpdated) {
		t.Error("backdated append moved LastUpdated backwards")
	}

	// A missing session reports an error and mutates nothing.
	err := store.AppendMessage("nope", msg)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDeleteClearsActive(t *testing.T) {
	store := Open(t.TempDir())
	defer store.Close()

	sess := newSession("a")
	if err := store.Create(sess); err != nil {
		t.Fatal(err)
	}
	if err := store.SetActive(sess.ID); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Active(); ok {
		t.Error("expected active selection to clear on delete")
	}
	if err := store.Delete(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store := Open(dir)
	sess := newSession("a")
	if err := store.Create(sess); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendMessage(sess.ID, types.Message{
		ID:        types.NewMessageID(),
		Role:      types.RoleUser,
		Text:      "hello",
		Timestamp: time.Now(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reloaded := Open(dir)
	defer reloaded.Close()
	got, ok := reloaded.Get(sess.ID)
	if !ok {
		t.Fatal("expected session after reload")
	}
	if len(got.Messages) != 2 {
		t.Errorf("expected 2 messages after reload, got %d", len(got.Messages))
	}
	if got.Payload.Cards == nil || got.Payload.Cards.Word.Text != "希望" {
		t.Error("payload did not survive the round trip")
	}
	if _, ok := reloaded.Active(); ok {
		t.Error("active selection should not persist")
	}
}

func TestRapidMutationsPersistLatest(t *testing.T) {
	dir := t.TempDir()
	store := Open(dir)

	sess := newSession("a")
	if err := store.Create(sess); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		if err := store.AppendMessage(sess.ID, types.Message{
			ID:        types.NewMessageID(),
			Role:      types.RoleUser,
			Text:      "turn",
			Timestamp: time.Now(),
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reloaded := Open(dir)
	defer reloaded.Close()
	got, _ := reloaded.Get(sess.ID)
	if len(got.Messages) != 51 {
		t.Errorf("expected 51 messages after reload, got %d", len(got.Messages))
	}
}

func TestConcurrentFlushAndMutations(t *testing.T) {
	dir := t.TempDir()
	store := Open(dir)

	// Synchronous Flush (as the backup scheduler issues on every tick)
	// racing the async persists behind each mutation: every write must
	// land intact and none may error.
	const workers = 8
	const perWorker = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := store.Create(newSession("s")); err != nil {
					errs <- err
					return
				}
				if err := store.Flush(); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent flush: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reloaded := Open(dir)
	defer reloaded.Close()
	if got := len(reloaded.List()); got != workers*perWorker {
		t.Errorf("expected %d sessions after reload, got %d", workers*perWorker, got)
	}
}

func TestOpenToleratesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sessions.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := Open(dir)
	defer store.Close()
	if len(store.List()) != 0 {
		t.Error("expected empty store after corrupt load")
	}

	// The store stays writable afterwards.
	if err := store.Create(newSession("a")); err != nil {
		t.Fatal(err)
	}
}
