package reconcile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/raido/internal/changeset"
	"github.com/starford/raido/internal/mapper"
	"github.com/starford/raido/internal/state"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/testutil"
)

const syncable = "---\ntitle: Hello World\ndate: 2025-01-01\npush_to_webflow: true\n---\nBody.\n"

func newTestRunner(t *testing.T, fs *testutil.FakeStore) (string, storage.Provider, *state.DB, *Runner) {
	t.Helper()
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	engine := newTestEngine(fs)
	runner := NewRunner(RunnerConfig{
		Corpus: corpus,
		States: states,
		Mapper: mapper.New(mapper.DefaultSchema()),
		Engine: engine,
		Logger: discardLogger(),
		IDKey:  "post_id",
	})
	return dir, corpus, states, runner
}

func outcomeFor(s *Summary, locator string) (Outcome, bool) {
	for _, o := range s.Outcomes {
		if o.Locator == locator {
			return o, true
		}
	}
	return Outcome{}, false
}

func TestRun_CreateWithWriteBack(t *testing.T) {
	fs := testutil.NewFakeStore()
	dir, corpus, states, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "posts/hello.md", syncable)

	summary, err := runner.Run(context.Background(), changeset.All, changeset.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Created != 1 || summary.Failed() {
		t.Fatalf("summary = %+v", summary)
	}

	out, _ := outcomeFor(summary, "posts/hello.md")
	if out.ExternalID == "" {
		t.Fatal("created outcome has no id")
	}

	// Identifier write-back into the source file.
	raw, err := corpus.Read("posts/hello.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "post_id") {
		t.Errorf("post_id not written back:\n%s", raw)
	}

	// And into the state db.
	bound, err := states.Binding("posts/hello.md")
	if err != nil {
		t.Fatal(err)
	}
	if bound != out.ExternalID {
		t.Errorf("state binding = %q, want %q", bound, out.ExternalID)
	}
}

func TestRun_SecondPassUpdatesNotDuplicates(t *testing.T) {
	fs := testutil.NewFakeStore()
	dir, _, _, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "posts/hello.md", syncable)

	if _, err := runner.Run(context.Background(), changeset.All, changeset.Options{}); err != nil {
		t.Fatal(err)
	}
	summary, err := runner.Run(context.Background(), changeset.All, changeset.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 || summary.Created != 0 {
		t.Fatalf("second pass summary = %+v", summary)
	}
	if len(fs.Items) != 1 {
		t.Errorf("items = %d, want 1", len(fs.Items))
	}
}

func TestRun_DeltaSkipsUnchanged(t *testing.T) {
	fs := testutil.NewFakeStore()
	dir, _, _, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "a.md", syncable)
	testutil.WriteDoc(t, dir, "b.md", syncable)

	// First delta run falls back to All (fresh state).
	first, err := runner.Run(context.Background(), changeset.Delta, changeset.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.Created != 2 {
		t.Fatalf("first run summary = %+v", first)
	}

	// Touch only b.md; the next delta run must process just that one.
	testutil.WriteDoc(t, dir, "b.md", strings.Replace(syncable, "Body.", "New body.", 1))
	second, err := runner.Run(context.Background(), changeset.Delta, changeset.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Outcomes) != 1 || second.Updated != 1 {
		t.Fatalf("second run summary = %+v", second)
	}
	if second.Outcomes[0].Locator != "b.md" {
		t.Errorf("locator = %q", second.Outcomes[0].Locator)
	}
}

func TestRun_ExplicitListOverride(t *testing.T) {
	fs := testutil.NewFakeStore()
	dir, _, _, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "a.md", syncable)
	testutil.WriteDoc(t, dir, "b.md", syncable)

	summary, err := runner.Run(context.Background(), changeset.Delta, changeset.Options{Explicit: []string{"b.md"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Outcomes) != 1 || summary.Outcomes[0].Locator != "b.md" {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRun_PerDocumentFailuresDoNotHaltOthers(t *testing.T) {
	fs := testutil.NewFakeStore()
	dir, _, _, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "bad.md", "---\n: invalid: yaml: {{{\n---\nBody\n")
	testutil.WriteDoc(t, dir, "good.md", syncable)
	testutil.WriteDoc(t, dir, "incomplete.md", "---\npush_to_webflow: true\n---\nBody\n")

	summary, err := runner.Run(context.Background(), changeset.All, changeset.Options{})
	if err != nil {
		t.Fatalf("per-document failures must not be run-fatal: %v", err)
	}
	if summary.Created != 1 || summary.Failures != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	bad, _ := outcomeFor(summary, "bad.md")
	if bad.Err == nil || !strings.Contains(bad.Err.Error(), "malformed frontmatter") {
		t.Errorf("bad.md err = %v", bad.Err)
	}
	incomplete, _ := outcomeFor(summary, "incomplete.md")
	var verr *mapper.ValidationError
	if !errors.As(incomplete.Err, &verr) {
		t.Errorf("incomplete.md err = %v", incomplete.Err)
	}
}

func TestRun_SkippedDocumentMakesNoStoreCalls(t *testing.T) {
	fs := testutil.NewFakeStore()
	dir, _, _, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "a.md", "---\ntitle: Hello World\ndate: 2025-01-01\npush_to_webflow: false\n---\nBody\n")

	summary, err := runner.Run(context.Background(), changeset.All, changeset.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || len(fs.Calls) != 0 {
		t.Fatalf("summary = %+v calls = %v", summary, fs.Calls)
	}
}

func TestRun_AuthErrorIsRunFatal(t *testing.T) {
	fs := testutil.NewFakeStore()
	fs.CreateErrs = []error{
		&store.APIError{Kind: store.KindAuth, Status: 401, Message: "bad token"},
	}
	dir, _, _, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "a.md", syncable)
	testutil.WriteDoc(t, dir, "b.md", syncable)
	testutil.WriteDoc(t, dir, "c.md", syncable)

	summary, err := runner.Run(context.Background(), changeset.All, changeset.Options{})
	if err == nil {
		t.Fatal("expected run-fatal error for auth failure")
	}
	if summary == nil {
		t.Fatal("summary must still report partial outcomes")
	}
	// Concurrency 1: the first document fails, the rest are reported as
	// not attempted rather than failed.
	if summary.Failures != 1 {
		t.Errorf("failures = %d, want 1", summary.Failures)
	}
	for _, o := range summary.Outcomes {
		if o.Operation == OpSkipped && o.Reason != "not attempted" {
			t.Errorf("unexpected skip reason %q", o.Reason)
		}
	}
	if summary.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", summary.Skipped)
	}
}

func TestRun_CancelledContextSkipsRemaining(t *testing.T) {
	fs := testutil.NewFakeStore()
	dir, _, _, runner := newTestRunner(t, fs)
	for _, p := range []string{"a.md", "b.md"} {
		testutil.WriteDoc(t, dir, p, syncable)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := runner.Run(ctx, changeset.All, changeset.Options{})
	if err != nil {
		t.Fatalf("cancellation must not be run-fatal: %v", err)
	}
	if summary.Skipped != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	for _, o := range summary.Outcomes {
		if o.Reason != "not attempted" {
			t.Errorf("reason = %q, want not attempted", o.Reason)
		}
	}
}

func TestRun_RemovedDocumentDropsState(t *testing.T) {
	fs := testutil.NewFakeStore()
	dir, _, states, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "a.md", syncable)
	if _, err := runner.Run(context.Background(), changeset.All, changeset.Options{}); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "a.md")); err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Run(context.Background(), changeset.Delta, changeset.Options{}); err != nil {
		t.Fatal(err)
	}
	rows, err := states.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("state rows = %+v, want none", rows)
	}
	// The remote record is left alone.
	if len(fs.Items) != 1 {
		t.Errorf("remote items = %d, want 1", len(fs.Items))
	}
}

func TestRun_ResolutionErrorIsFatal(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	runner := NewRunner(RunnerConfig{
		Corpus: corpus,
		States: states,
		Mapper: mapper.New(mapper.DefaultSchema()),
		Engine: newTestEngine(testutil.NewFakeStore()),
		Logger: discardLogger(),
		IDKey:  "post_id",
	})
	// Removing the corpus root makes enumeration fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	_, err := runner.Run(context.Background(), changeset.All, changeset.Options{})
	var re *changeset.ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want ResolutionError", err)
	}
}

func TestRun_StateBindingCoversMissingWriteBack(t *testing.T) {
	// A document created earlier but whose write-back never landed in the
	// source still updates instead of creating a duplicate, because the
	// state db remembers the binding.
	fs := testutil.NewFakeStore()
	dir, _, states, runner := newTestRunner(t, fs)
	testutil.WriteDoc(t, dir, "a.md", syncable)

	fs.Items["pre-bound"] = map[string]any{}
	if err := states.RecordSync("a.md", "stale-checksum", "pre-bound", time.Now()); err != nil {
		t.Fatal(err)
	}

	summary, err := runner.Run(context.Background(), changeset.All, changeset.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 || summary.Created != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}
