package gen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_Coalesces(t *testing.T) {
	batches := make(chan []string, 4)
	d := newDebouncer(30*time.Millisecond, func(files []string) { batches <- files })
	defer d.stop()

	for _, f := range []string{"b", "a", "b", "c"} {
		d.add(f)
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case got := <-batches:
		assert.Equal(t, []string{"a", "b", "c"}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}
	select {
	case got := <-batches:
		t.Fatalf("unexpected second batch %v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_Stop(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := newDebouncer(20*time.Millisecond, func([]string) { fired <- struct{}{} })
	d.add("a")
	d.stop()
	d.add("b")

	select {
	case <-fired:
		t.Fatal("fired after stop")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestDebouncer_StopWaitsForRunningBatch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	d := newDebouncer(time.Millisecond, func([]string) {
		close(started)
		<-release
	})
	d.add("a")
	<-started

	stopped := make(chan struct{})
	go func() {
		d.stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("stop returned while a batch was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop never returned")
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "recipes.resource.go", resourceSrc("recipesResource", "recipes"))
	p := NewPipeline(dir).WithLogger(quiet)
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	var (
		mu   sync.Mutex
		errs []error
	)
	w, err := NewWatcher(p)
	require.NoError(t, err)
	w.WithDebounce(20 * time.Millisecond).OnRun(func(_ Result, err error) {
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	lookup := filepath.Join(dir, DefaultLookupFile)
	lookupHas := func(s string) func() bool {
		return func() bool {
			data, err := os.ReadFile(lookup)
			return err == nil && strings.Contains(string(data), s)
		}
	}

	widgets := writeFile(t, dir, "widgets.resource.go", "")
	require.Eventually(t, lookupHas(`"widgets"`), 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, readFile(t, widgets), `resource.Define[WidgetsRecord]("widgets"`)

	require.NoError(t, os.Remove(widgets))
	require.Eventually(t, func() bool { return !lookupHas(`"widgets"`)() }, 5*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "broken.resource.go", "package resources\n\nvar x = \n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, lookupHas(`"recipes"`)(), "outputs survive a failed run")
}
