package staging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"frameforge/internal/ff"
)

type recordingCommitter struct {
	mu    sync.Mutex
	calls []commitCall
	err   error
}

type commitCall struct {
	id    string
	patch ff.FramePatch
}

func (r *recordingCommitter) Update(id string, patch ff.FramePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, commitCall{id: id, patch: patch})
	return nil
}

func (r *recordingCommitter) snapshot() []commitCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]commitCall(nil), r.calls...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestEditBuffer_CoalescesAndFlushes(t *testing.T) {
	target := &recordingCommitter{}
	b := NewEditBuffer(target, time.Hour, ff.NewNopLogger())

	if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr("a")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr("ab"), Dialogue: ff.Ptr("hi")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr("abc")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if n := len(target.snapshot()); n != 0 {
		t.Fatalf("commits before flush = %d, want 0", n)
	}

	if err := b.Flush("f1"); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := b.Flush("f1"); err != nil {
		t.Fatalf("second Flush() error = %v", err)
	}

	calls := target.snapshot()
	if len(calls) != 1 {
		t.Fatalf("commits = %d, want 1", len(calls))
	}
	if *calls[0].patch.Prompt != "abc" || *calls[0].patch.Dialogue != "hi" {
		t.Errorf("committed patch = prompt %q dialogue %q", *calls[0].patch.Prompt, *calls[0].patch.Dialogue)
	}
	if _, ok := b.Pending("f1"); ok {
		t.Error("Pending() after Flush = true, want false")
	}
}

func TestEditBuffer_CommitsAfterQuietPeriod(t *testing.T) {
	target := &recordingCommitter{}
	b := NewEditBuffer(target, 20*time.Millisecond, ff.NewNopLogger())

	for _, p := range []string{"x", "xy", "xyz"} {
		if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr(p)}); err != nil {
			t.Fatalf("Stage() error = %v", err)
		}
	}

	waitFor(t, func() bool { return len(target.snapshot()) > 0 })
	time.Sleep(60 * time.Millisecond)

	calls := target.snapshot()
	if len(calls) != 1 {
		t.Fatalf("commits = %d, want 1", len(calls))
	}
	if *calls[0].patch.Prompt != "xyz" {
		t.Errorf("committed prompt = %q, want xyz", *calls[0].patch.Prompt)
	}
}

func TestEditBuffer_Discard(t *testing.T) {
	target := &recordingCommitter{}
	b := NewEditBuffer(target, time.Hour, ff.NewNopLogger())

	if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr("gone")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	b.Discard("f1")
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := len(target.snapshot()); n != 0 {
		t.Errorf("commits = %d, want 0", n)
	}
}

func TestEditBuffer_RejectsInvalidPatch(t *testing.T) {
	b := NewEditBuffer(&recordingCommitter{}, time.Hour, ff.NewNopLogger())

	if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr("kept")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	err := b.Stage("f1", ff.FramePatch{Duration: ff.Ptr(99.0)})
	var verr *ff.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Stage() error = %v, want ValidationError", err)
	}
	p, ok := b.Pending("f1")
	if !ok || p.Duration != nil || *p.Prompt != "kept" {
		t.Errorf("Pending() = %+v, %v", p, ok)
	}
}

func TestEditBuffer_CloseFlushesAll(t *testing.T) {
	target := &recordingCommitter{}
	b := NewEditBuffer(target, time.Hour, ff.NewNopLogger())

	for _, id := range []string{"f1", "f2", "f3"} {
		if err := b.Stage(id, ff.FramePatch{Mood: ff.Ptr(ff.MoodNeonGlow)}); err != nil {
			t.Fatalf("Stage() error = %v", err)
		}
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if n := len(target.snapshot()); n != 3 {
		t.Errorf("commits = %d, want 3", n)
	}
	if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr("late")}); !errors.Is(err, ErrClosed) {
		t.Errorf("Stage() after Close error = %v, want ErrClosed", err)
	}
}

func TestEditBuffer_CloseReportsCommitErrors(t *testing.T) {
	target := &recordingCommitter{err: errors.New("disk full")}
	b := NewEditBuffer(target, time.Hour, ff.NewNopLogger())

	if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr("x")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := b.Close(); err == nil {
		t.Error("Close() error = nil, want commit failure")
	}
}

func TestEditBuffer_ZeroDelayCommitsImmediately(t *testing.T) {
	target := &recordingCommitter{}
	b := NewEditBuffer(target, 0, ff.NewNopLogger())

	if err := b.Stage("f1", ff.FramePatch{Speaker: ff.Ptr("Ana")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if n := len(target.snapshot()); n != 1 {
		t.Errorf("commits = %d, want 1", n)
	}
}

func TestEditBuffer_Live(t *testing.T) {
	b := NewEditBuffer(&recordingCommitter{}, time.Hour, ff.NewNopLogger())
	f := ff.Frame{ID: "f1", Prompt: "old", Style: ff.StyleAnime}

	if got := b.Live(f); got.Prompt != "old" {
		t.Errorf("Live() without pending = %q", got.Prompt)
	}
	if err := b.Stage("f1", ff.FramePatch{Prompt: ff.Ptr("new")}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	got := b.Live(f)
	if got.Prompt != "new" || got.Style != ff.StyleAnime {
		t.Errorf("Live() = %+v", got)
	}
	if f.Prompt != "old" {
		t.Error("Live() mutated its argument")
	}
}
