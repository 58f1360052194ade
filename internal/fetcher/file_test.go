package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFileSource_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "abc.json"), singleRootBody)

	fs, err := NewFileSource(dir, false)
	require.NoError(t, err)

	forest, err := fs.Get(context.Background(), flamegraph.Query{TraceID: "abc"})
	require.NoError(t, err)
	require.Len(t, forest.RootNodes, 1)
	assert.Equal(t, int64(100), forest.TotalSampleCount)

	_, err = fs.Get(context.Background(), flamegraph.Query{TraceID: "missing"})
	assert.Error(t, err)

	_, err = fs.Get(context.Background(), flamegraph.Query{TraceID: "../etc/passwd"})
	assert.Error(t, err)

	_, err = fs.Get(context.Background(), flamegraph.Query{})
	assert.Error(t, err)
}

func TestFileSource_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, path, singleRootBody)

	fs, err := NewFileSource(path, false)
	require.NoError(t, err)

	res := <-fs.Fetch(context.Background(), flamegraph.Query{TraceID: "anything"})
	require.NoError(t, res.Err)
	assert.Equal(t, "root", res.Forest.RootNodes[0].Name)
}

func TestFileSource_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	writeFile(t, path, `{"rootNodes": 5}`)

	fs, err := NewFileSource(path, false)
	require.NoError(t, err)

	_, err = fs.Get(context.Background(), flamegraph.Query{})
	assert.Error(t, err)
}

func TestNewFileSource_Missing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope"), false)
	assert.Error(t, err)

	_, err = NewFileSource("", false)
	assert.Error(t, err)
}

func TestFileSource_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t1.json")
	writeFile(t, path, singleRootBody)

	fs, err := NewFileSource(dir, false)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := fs.Watch(ctx)
	require.NoError(t, err)

	_, err = fs.Watch(ctx)
	assert.Error(t, err, "second watch should be rejected")

	writeFile(t, path, singleRootBody)

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case _, ok := <-changes:
		for ok {
			_, ok = <-changes
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}
