// Package watcher re-runs an analysis whenever a survey file changes.
//
// The directory holding the file is watched with fsnotify rather than the
// file itself, so editors that save by writing a temp file and renaming it
// over the original are still seen. Bursts of events are debounced into a
// single callback.
//
// Example usage:
//
//	w, err := watcher.New("/data/survey.csv", func(ctx context.Context) error {
//		return analyze(ctx, "/data/survey.csv")
//	}, watcher.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Blocks until ctx is cancelled.
//	if err := w.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package watcher
