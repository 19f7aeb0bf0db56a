package watcher

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// relevantOps are the operations that can change the file's contents.
// Remove is ignored; the rename-over-original save pattern shows up as a
// Create for the watched name.
const relevantOps = fsnotify.Write | fsnotify.Create

// relevant reports whether event touches the watched file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	return matchesPath(event.Name, w.path)
}

// matchesPath compares an event path with the target, resolving symlinks
// when the plain paths differ.
func matchesPath(name, target string) bool {
	if filepath.Clean(name) == target {
		return true
	}
	resolved, err := filepath.EvalSymlinks(name)
	if err != nil {
		return false
	}
	targetResolved, err := filepath.EvalSymlinks(target)
	if err != nil {
		return false
	}
	return resolved == targetResolved
}
