//go:build darwin

package platform

import (
	"log/slog"
	"sync"

	"golang.design/x/hotkey"

	"github.com/borgmon/math-alarm/pkg/logger"
)

// QuitGuard swallows Cmd+Q until it is released
type QuitGuard struct {
	log  *slog.Logger
	done chan struct{}

	mu       sync.Mutex
	hk       *hotkey.Hotkey
	released bool
}

// BlockQuit registers Cmd+Q so the quit shortcut does nothing while an
// alarm is ringing. Registration happens in the background; a failure is
// logged and leaves the shortcut working.
func BlockQuit(log *slog.Logger) *QuitGuard {
	g := &QuitGuard{log: log, done: make(chan struct{})}
	go g.run()
	return g
}

func (g *QuitGuard) run() {
	hk := hotkey.New([]hotkey.Modifier{hotkey.ModCmd}, hotkey.KeyQ)
	if err := hk.Register(); err != nil {
		g.log.Warn("block Cmd+Q", logger.Err(err))
		return
	}

	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		_ = hk.Unregister()
		return
	}
	g.hk = hk
	g.mu.Unlock()

	for {
		select {
		case <-g.done:
			return
		case <-hk.Keydown():
			g.log.Info("Cmd+Q blocked, solve the challenge to stop the alarm")
		}
	}
}

// Release gives Cmd+Q back. It is safe to call more than once.
func (g *QuitGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return
	}
	g.released = true
	close(g.done)
	if g.hk != nil {
		if err := g.hk.Unregister(); err != nil {
			g.log.Warn("release Cmd+Q", logger.Err(err))
		}
		g.hk = nil
	}
}
