// Package bridge implements the file-polling link between the core
// and an external GUI front-end: two plain files in a shared
// directory, watched with fsnotify instead of a busy-poll loop. The
// inbound file's presence means "new batch of commands, one per
// line, delete on consume"; the outbound file's absence means "the
// front-end has consumed the prior output, safe to overwrite".
package bridge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Bridge watches Dir for the inbound file and writes the outbound
// file, buffering outbound lines in memory whenever the front-end
// hasn't yet consumed the previous write.
type Bridge struct {
	Dir     string
	InName  string
	OutName string

	// ToCore receives one line per inbound command, in file order.
	ToCore chan<- string
	// FromCore yields one line per outbound command emitted by the core.
	FromCore <-chan string

	Log zerolog.Logger

	watcher *fsnotify.Watcher
	pending []string
}

// New creates a Bridge watching dir for inName and writing outName
// inside it. The watcher is started immediately; call Run to drive it.
func New(dir, inName, outName string, toCore chan<- string, fromCore <-chan string) (*Bridge, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("bridge: watch %s: %w", dir, err)
	}
	return &Bridge{
		Dir:      dir,
		InName:   inName,
		OutName:  outName,
		ToCore:   toCore,
		FromCore: fromCore,
		Log:      zerolog.Nop(),
		watcher:  w,
	}, nil
}

// Run drives the bridge until ctx is cancelled or a channel closes. It
// is meant to be run as its own goroutine, per the two-task
// concurrency model: the core owns program state, the bridge owns
// nothing but the two files and an in-memory retry buffer.
func (b *Bridge) Run(ctx context.Context) error {
	defer b.watcher.Close()

	// A file that already exists when Run starts (e.g. left over from
	// a prior session) should still be picked up.
	b.consumeInbound()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-b.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && filepath.Base(ev.Name) == b.InName {
				b.consumeInbound()
			}

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return nil
			}
			b.Log.Warn().Err(err).Msg("bridge: watch error")

		case line, ok := <-b.FromCore:
			if !ok {
				return nil
			}
			b.pending = append(b.pending, line)
			b.flushOutbound()
		}
	}
}

func (b *Bridge) inPath() string  { return filepath.Join(b.Dir, b.InName) }
func (b *Bridge) outPath() string { return filepath.Join(b.Dir, b.OutName) }

func (b *Bridge) consumeInbound() {
	path := b.inPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			b.Log.Warn().Err(err).Str("path", path).Msg("bridge: inbound read failed")
		}
		return
	}
	if err := os.Remove(path); err != nil {
		b.Log.Warn().Err(err).Str("path", path).Msg("bridge: inbound delete failed")
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		b.ToCore <- line
	}
}

// flushOutbound writes the pending buffer if the front-end has
// consumed the previous output (outbound file absent). On any I/O
// fault, or while the file is still present, the buffer is retained
// for the next call.
func (b *Bridge) flushOutbound() {
	if len(b.pending) == 0 {
		return
	}
	path := b.outPath()
	if _, err := os.Stat(path); err == nil {
		return // front-end hasn't consumed the previous batch yet
	}

	data := strings.Join(b.pending, "\n") + "\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		b.Log.Warn().Err(err).Str("path", path).Msg("bridge: outbound write failed, buffering")
		return
	}
	b.pending = nil
}
