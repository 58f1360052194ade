package fetcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

// debounceInterval coalesces the burst of events editors and exporters
// produce for a single logical write.
const debounceInterval = 100 * time.Millisecond

// FileSource serves flame graphs from saved backend responses.
//
// When the path is a directory, trace <id> is read from <dir>/<id>.json.
// When the path is a file, that file is returned for every trace.
type FileSource struct {
	path    string
	isDir   bool
	verbose bool

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewFileSource creates a FileSource for a directory or a single JSON file.
func NewFileSource(path string, verbose bool) (*FileSource, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}

	return &FileSource{
		path:    path,
		isDir:   info.IsDir(),
		verbose: verbose,
	}, nil
}

// Fetch implements Fetcher.
func (fs *FileSource) Fetch(ctx context.Context, q flamegraph.Query) <-chan Result {
	return async(ctx, "file", q, fs.Get)
}

// Get reads and decodes the file for q.TraceID.
// Filters and truncation are applied by whatever produced the file, not here.
func (fs *FileSource) Get(ctx context.Context, q flamegraph.Query) (flamegraph.Forest, error) {
	if err := ctx.Err(); err != nil {
		return flamegraph.Forest{}, err
	}

	path, err := fs.fileFor(q.TraceID)
	if err != nil {
		return flamegraph.Forest{}, err
	}

	if fs.verbose {
		log.Printf("📁 reading %s\n", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return flamegraph.Forest{}, fmt.Errorf("failed to open flame graph file: %w", err)
	}
	defer f.Close()

	forest, err := flamegraph.DecodeForest(f)
	if err != nil {
		return flamegraph.Forest{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return forest, nil
}

func (fs *FileSource) fileFor(traceID string) (string, error) {
	if !fs.isDir {
		return fs.path, nil
	}
	if traceID == "" {
		return "", fmt.Errorf("trace id is required")
	}
	if strings.ContainsAny(traceID, `/\`) || traceID == "." || traceID == ".." {
		return "", fmt.Errorf("invalid trace id %q", traceID)
	}
	return filepath.Join(fs.path, traceID+".json"), nil
}

// Watch notifies on the returned channel whenever a JSON file under the
// source changes. Notifications are debounced and never block; the channel
// is closed when ctx is done.
func (fs *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.watcher != nil {
		return nil, fmt.Errorf("%s is already being watched", fs.path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the parent of a single file so atomic renames are still seen.
	dir := fs.path
	if !fs.isDir {
		dir = filepath.Dir(fs.path)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fs.watcher = watcher

	if fs.verbose {
		log.Printf("📁 watching %s\n", dir)
	}

	notify := make(chan struct{}, 1)
	go fs.watchLoop(ctx, watcher, notify)
	return notify, nil
}

func (fs *FileSource) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, notify chan<- struct{}) {
	defer func() {
		watcher.Close()
		fs.mu.Lock()
		fs.watcher = nil
		fs.mu.Unlock()
		close(notify)
	}()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !fs.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceInterval)
			} else {
				timer.Reset(debounceInterval)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case notify <- struct{}{}:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  file watcher error: %v\n", err)
		}
	}
}

func (fs *FileSource) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if fs.isDir {
		return strings.HasSuffix(event.Name, ".json")
	}
	return filepath.Clean(event.Name) == filepath.Clean(fs.path)
}
