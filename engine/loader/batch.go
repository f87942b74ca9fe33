package loader

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-annotate/engine/scene"
)

var defaultBatchWorkers = max(runtime.NumCPU()/2, 1)

// BatchResult is the outcome of loading one path in a batch.
type BatchResult struct {
	// Path is the file that was loaded.
	Path string

	// Node is the scene tree built from the file, or nil when Err is set.
	Node scene.Node

	// Err is the load error for this path.
	Err error
}

// BatchCallback receives every result in the order the paths were given, and the joined
// error of all failed paths (nil when every load succeeded).
type BatchCallback func(results []BatchResult, err error)

// Batch loads every path as a scene tree on the loader's worker pool and returns immediately.
// onComplete runs exactly once, on a background goroutine, after the last load finishes.
// An empty path list completes with no results. A panic inside an import is reported as that
// path's error.
func (l *loader) Batch(paths []string, onComplete BatchCallback) {
	results := make([]BatchResult, len(paths))
	var wg sync.WaitGroup

	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		results[idx].Path = p
		l.loadPool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (result any, err error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						results[idx].Err = fmt.Errorf("panic loading %s: %v", p, r)
					}
				}()
				results[idx].Node, results[idx].Err = l.LoadScene(p)
				return nil, nil
			},
		})
	}

	go func() {
		wg.Wait()

		var errs []error
		for _, r := range results {
			if r.Err != nil {
				l.logger.Error().Err(r.Err).Str("path", r.Path).Msg("batch load failed")
				errs = append(errs, r.Err)
			}
		}
		l.logger.Info().Int("paths", len(paths)).Int("failed", len(errs)).Msg("batch load complete")

		if onComplete != nil {
			onComplete(results, errors.Join(errs...))
		}
	}()
}
