package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abdul-hamid-achik/hitcase/packages/core/cases"
	"github.com/abdul-hamid-achik/hitcase/packages/export/metrics"
)

// watch runs the suite, then re-runs it whenever a case file or the config
// file changes, until ctx is cancelled.
func (s *session) watch(ctx context.Context, w io.Writer, prom *metrics.PrometheusExporter) error {
	if prom != nil && metricsAddrFlag != "" {
		srv := &http.Server{Addr: metricsAddrFlag, Handler: metricsMux(prom), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.warnf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		fmt.Fprintf(w, "Prometheus metrics available at http://%s/metrics\n", metricsAddrFlag)
	}

	rerun := func(changed string) {
		if changed != "" {
			fmt.Fprintf(w, "\n\nFile changed: %s\nRe-running tests...\n\n", changed)
		}
		if _, err := s.runOnce(ctx); err != nil {
			fmt.Fprintf(s.warn, "Error: %v\n", err)
		}
		fmt.Fprintf(w, "\nWatching for changes... (press Ctrl+C to stop)\n")
	}

	watched := append([]string(nil), s.files...)
	if p := s.cfg.Path(); p != "" {
		watched = append(watched, p)
	}
	watcher, err := newWatcher(watched)
	if err != nil {
		return err
	}
	defer watcher.Close()

	rerun("")

	relevant := func(name string) bool {
		return cases.IsCaseFile(name) || isConfigFile(name)
	}
	return watchLoop(ctx, watcher, relevant, rerun, func(err error) {
		s.warnf("watcher error: %v", err)
	})
}

func metricsMux(prom *metrics.PrometheusExporter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prom.Handler())
	return mux
}

// newWatcher watches the directory of every path, plus every directory
// under paths that are directories themselves.
func newWatcher(paths []string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	watchedDirs := make(map[string]bool)
	add := func(dir string) error {
		if watchedDirs[dir] {
			return nil
		}
		watchedDirs[dir] = true
		return watcher.Add(dir)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			p = filepath.Dir(p)
		}
		if err := add(p); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	return watcher, nil
}

// watchLoop calls rerun once events for relevant files have been quiet for
// WatchDebounceDelay. Reruns happen on the loop goroutine, so they never
// overlap.
func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, relevant func(string) bool, rerun func(changed string), onError func(error)) error {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		changed string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			changed = event.Name
			if timer == nil {
				timer = time.NewTimer(WatchDebounceDelay)
			} else {
				timer.Reset(WatchDebounceDelay)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			rerun(changed)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onError(err)
		}
	}
}
