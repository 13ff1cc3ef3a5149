// Package preflight runs the environment checks behind `docrag doctor`.
//
// It checks that the data directory is writable and has free space, that
// the file descriptor limit suits the inbox watcher, that the embedder
// answers, and that the keyword index exists:
//
//	checker := preflight.New(preflight.WithOutput(os.Stdout))
//	results := checker.RunAll(ctx, preflight.Target{DataDir: dir})
//	if checker.HasCriticalFailures(results) {
//	    // refuse to continue
//	}
package preflight
