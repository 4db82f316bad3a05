// Package testutil provides shared test helpers for setting up corpora,
// state databases, and a scriptable fake store.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/raido/internal/state"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
)

// TestState creates a temporary SQLite state database that is
// automatically cleaned up.
func TestState(t *testing.T) *state.DB {
	t.Helper()
	f, err := os.CreateTemp("", "raido-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := state.Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestCorpus creates a temporary corpus directory with a storage.Provider.
func TestCorpus(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	corpus, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, corpus
}

// WriteDoc writes a corpus file, creating parent directories as needed.
func WriteDoc(t *testing.T, dir, path, raw string) {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Call records one store invocation made against FakeStore.
type Call struct {
	Method  string // "create", "update", "get"
	ID      string
	Payload map[string]any
	Draft   bool
}

// FakeStore is an in-memory store.Client. Errors can be scripted per
// method; every call is recorded.
type FakeStore struct {
	mu    sync.Mutex
	seq   int
	Items map[string]map[string]any
	Calls []Call

	// CreateErrs/UpdateErrs are consumed one per call; nil entries mean
	// success. When the queue is empty calls succeed.
	CreateErrs []error
	UpdateErrs []error
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{Items: map[string]map[string]any{}}
}

// Create records the call and inserts a new item unless a scripted error
// is due.
func (f *FakeStore) Create(_ context.Context, payload map[string]any, draft bool) (*store.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "create", Payload: payload, Draft: draft})
	if err := pop(&f.CreateErrs); err != nil {
		return nil, err
	}
	f.seq++
	id := fmt.Sprintf("fake-%d", f.seq)
	f.Items[id] = payload
	now := time.Now().UTC()
	return &store.Item{ID: id, CreatedOn: now, LastUpdated: now}, nil
}

// Update records the call and overwrites the item unless a scripted error
// is due. Updating an unknown id fails with a NotFound APIError.
func (f *FakeStore) Update(_ context.Context, id string, payload map[string]any, draft bool) (*store.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "update", ID: id, Payload: payload, Draft: draft})
	if err := pop(&f.UpdateErrs); err != nil {
		return nil, err
	}
	if _, ok := f.Items[id]; !ok {
		return nil, &store.APIError{Kind: store.KindNotFound, Status: 404, Message: "no such item"}
	}
	f.Items[id] = payload
	return &store.Item{ID: id, LastUpdated: time.Now().UTC()}, nil
}

// Get returns the item or a NotFound APIError.
func (f *FakeStore) Get(_ context.Context, id string) (*store.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Method: "get", ID: id})
	if _, ok := f.Items[id]; !ok {
		return nil, &store.APIError{Kind: store.KindNotFound, Status: 404, Message: "no such item"}
	}
	return &store.Item{ID: id}, nil
}

// CallCount returns how many calls of the given method were made.
func (f *FakeStore) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

// Verify FakeStore satisfies store.Client at compile time.
var _ store.Client = (*FakeStore)(nil)
