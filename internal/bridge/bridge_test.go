package bridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge(t *testing.T) (*Bridge, string, chan string, chan string) {
	t.Helper()
	dir := t.TempDir()
	toCore := make(chan string, 16)
	fromCore := make(chan string, 16)
	b, err := New(dir, "gui_change.dat", "gui_set.dat", toCore, fromCore)
	require.NoError(t, err)
	return b, dir, toCore, fromCore
}

func TestBridgeConsumesInboundFileOnCreate(t *testing.T) {
	b, dir, toCore, _ := newTestBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	time.Sleep(20 * time.Millisecond) // let the watcher start
	err := os.WriteFile(filepath.Join(dir, "gui_change.dat"), []byte("STEP\nSTOPP\n"), 0o644)
	require.NoError(t, err)

	var got []string
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case line := <-toCore:
			got = append(got, line)
		case <-deadline:
			t.Fatalf("timed out waiting for inbound lines, got %v", got)
		}
	}
	assert.Equal(t, []string{"STEP", "STOPP"}, got)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "gui_change.dat"))
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
}

func TestBridgeWritesOutboundWhenAbsent(t *testing.T) {
	b, dir, _, fromCore := newTestBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	fromCore <- "SETLINE 1"

	outPath := filepath.Join(dir, "gui_set.dat")
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(outPath)
		return err == nil && string(data) == "SETLINE 1\n"
	}, time.Second, 10*time.Millisecond)
}

func TestFlushOutboundBuffersWhileFileStillPresent(t *testing.T) {
	b, dir, _, _ := newTestBridge(t)

	outPath := filepath.Join(dir, "gui_set.dat")
	require.NoError(t, os.WriteFile(outPath, []byte("stale"), 0o644))

	b.pending = []string{"SETLINE 1"}
	b.flushOutbound()

	assert.Equal(t, []string{"SETLINE 1"}, b.pending) // retained, not overwritten
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(data))
}
