package changeset

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/starford/raido/internal/testutil"
)

func TestResolve_AllIsSorted(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	for _, p := range []string{"z.md", "a.md", "sub/m.md"} {
		testutil.WriteDoc(t, dir, p, "body")
	}

	set, err := New(corpus, states).Resolve(All, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.md", "sub/m.md", "z.md"}
	if !reflect.DeepEqual(set.Locators, want) {
		t.Errorf("locators = %v, want %v", set.Locators, want)
	}
}

func TestResolve_DeltaFallsBackToAllOnFreshState(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	for _, p := range []string{"a.md", "b.md"} {
		testutil.WriteDoc(t, dir, p, "body")
	}
	r := New(corpus, states)

	all, err := r.Resolve(All, Options{})
	if err != nil {
		t.Fatal(err)
	}
	delta, err := r.Resolve(Delta, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(delta.Locators, all.Locators) {
		t.Errorf("delta = %v, all = %v; first run must cover everything", delta.Locators, all.Locators)
	}
}

func TestResolve_DeltaOnlyChangedChecksums(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	testutil.WriteDoc(t, dir, "a.md", "unchanged")
	testutil.WriteDoc(t, dir, "b.md", "old")

	infos, err := corpus.List()
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range infos {
		if err := states.RecordSync(in.Path, in.Checksum, "id", time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	testutil.WriteDoc(t, dir, "b.md", "new")
	testutil.WriteDoc(t, dir, "c.md", "brand new")

	set, err := New(corpus, states).Resolve(Delta, Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b.md", "c.md"}
	if !reflect.DeepEqual(set.Locators, want) {
		t.Errorf("locators = %v, want %v", set.Locators, want)
	}
}

func TestResolve_NoChangesIsValidEmptyResult(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	testutil.WriteDoc(t, dir, "a.md", "same")
	infos, _ := corpus.List()
	if err := states.RecordSync("a.md", infos[0].Checksum, "id", time.Now()); err != nil {
		t.Fatal(err)
	}

	set, err := New(corpus, states).Resolve(Delta, Options{})
	if err != nil {
		t.Fatalf("empty delta must not error: %v", err)
	}
	if len(set.Locators) != 0 {
		t.Errorf("locators = %v, want none", set.Locators)
	}
}

func TestResolve_ExplicitListWinsOverDiff(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	testutil.WriteDoc(t, dir, "a.md", "x")
	testutil.WriteDoc(t, dir, "b.md", "y")

	set, err := New(corpus, states).Resolve(Delta, Options{Explicit: []string{"b.md", "a.md"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.md", "b.md"}
	if !reflect.DeepEqual(set.Locators, want) {
		t.Errorf("locators = %v, want %v (sorted explicit list)", set.Locators, want)
	}
}

func TestResolve_ExplicitListSkipsEnumeration(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	// Even with an unenumerable corpus an explicit list resolves; a
	// walk would fail here, so none may happen.
	set, err := New(corpus, states).Resolve(Delta, Options{Explicit: []string{"a.md"}})
	if err != nil {
		t.Fatalf("explicit resolution must not enumerate the corpus: %v", err)
	}
	if !reflect.DeepEqual(set.Locators, []string{"a.md"}) {
		t.Errorf("locators = %v", set.Locators)
	}
}

func TestResolve_RemovedPaths(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	testutil.WriteDoc(t, dir, "kept.md", "x")
	if err := states.RecordSync("kept.md", "cs", "id", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := states.RecordSync("gone.md", "cs", "id", time.Now()); err != nil {
		t.Fatal(err)
	}

	set, err := New(corpus, states).Resolve(Delta, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(set.Removed, []string{"gone.md"}) {
		t.Errorf("removed = %v", set.Removed)
	}
}

func TestResolve_MissingCorpusIsResolutionError(t *testing.T) {
	dir, corpus := testutil.TestCorpus(t)
	states := testutil.TestState(t)
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	_, err := New(corpus, states).Resolve(All, Options{})
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want ResolutionError", err)
	}
}
