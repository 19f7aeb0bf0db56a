package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

const testDebounce = 50 * time.Millisecond

// startWatcher runs w in the background and returns a stop function that
// cancels it and waits for Run to return.
func startWatcher(t *testing.T, w *Watcher) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give fsnotify time to register the directory.
	time.Sleep(100 * time.Millisecond)

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
			return nil
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestNew(t *testing.T) {
	w, err := New("survey.csv", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !filepath.IsAbs(w.Path()) {
		t.Errorf("Path() = %q, want absolute", w.Path())
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
}

func TestNew_NilHandler(t *testing.T) {
	if _, err := New("survey.csv", nil); err == nil {
		t.Error("New(nil handler) expected error, got nil")
	}
}

func TestRun_WriteTriggersHandler(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.csv")
	writeFile(t, path, "Serial\n")

	var calls atomic.Int32
	w, err := New(path, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithDebounce(testDebounce))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startWatcher(t, w)
	writeFile(t, path, "Serial\n1\n")
	waitFor(t, func() bool { return calls.Load() >= 1 })

	if err := stop(); err != nil {
		t.Errorf("Run() returned %v after cancel, want nil", err)
	}
}

func TestRun_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.csv")
	writeFile(t, path, "")

	var calls atomic.Int32
	w, err := New(path, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithDebounce(300*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startWatcher(t, w)
	defer stop()

	for i := 0; i < 5; i++ {
		writeFile(t, path, string(rune('a'+i)))
		time.Sleep(10 * time.Millisecond)
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(500 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
}

func TestRun_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.csv")
	writeFile(t, path, "")

	var calls atomic.Int32
	w, err := New(path, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithDebounce(testDebounce))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startWatcher(t, w)
	writeFile(t, filepath.Join(dir, "other.csv"), "x")
	time.Sleep(300 * time.Millisecond)
	stop()

	if got := calls.Load(); got != 0 {
		t.Errorf("handler called %d times for unrelated file, want 0", got)
	}
}

func TestRun_HandlerErrorDoesNotStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.csv")
	writeFile(t, path, "")

	var calls atomic.Int32
	w, err := New(path, func(context.Context) error {
		calls.Add(1)
		return errors.New("bad data")
	}, WithDebounce(testDebounce))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startWatcher(t, w)
	defer stop()

	writeFile(t, path, "1")
	waitFor(t, func() bool { return calls.Load() >= 1 })
	writeFile(t, path, "2")
	waitFor(t, func() bool { return calls.Load() >= 2 })
}

func TestRun_InitialRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.csv")
	writeFile(t, path, "")

	var calls atomic.Int32
	w, err := New(path, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithInitialRun(), WithDebounce(testDebounce))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := startWatcher(t, w)
	waitFor(t, func() bool { return calls.Load() == 1 })
	stop()
}

func TestRun_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "survey.csv")
	w, err := New(path, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() on missing directory expected error, got nil")
	}
}

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "survey.csv")
	w, err := New(path, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false},
		{"chmod", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: filepath.Join(dir, "x.csv"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestMatchesPath_Symlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "survey.csv")
	writeFile(t, target, "")
	link := filepath.Join(dir, "link.csv")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if !matchesPath(link, target) {
		t.Error("matchesPath(link, target) = false, want true")
	}
	if matchesPath(filepath.Join(dir, "nope.csv"), target) {
		t.Error("matchesPath(missing, target) = true, want false")
	}
}
