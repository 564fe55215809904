// Package hotkey listens for the global quit combination so the tracker can
// be stopped while running headless, without a preview window to focus.
package hotkey

import (
	"context"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog/log"
)

// QuitKeys is the combination that stops winkmouse: ctrl+shift+q.
var QuitKeys = []string{"q", "ctrl", "shift"}

// Describe renders a key combination for log messages.
func Describe(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	// gohook lists the trigger key first; humans expect it last.
	parts := append(append([]string{}, keys[1:]...), keys[0])
	return strings.Join(parts, "+")
}

// ListenQuit registers the quit combination and calls onQuit once when it is
// pressed. It blocks until the hook ends, either from the key press or from
// ctx being cancelled.
func ListenQuit(ctx context.Context, onQuit func()) {
	// hook.End closes the event channel and must run only once.
	var end sync.Once
	stop := func() { end.Do(hook.End) }

	var fired sync.Once
	hook.Register(hook.KeyDown, QuitKeys, func(e hook.Event) {
		fired.Do(func() {
			log.Info().Str("keys", Describe(QuitKeys)).Msg("Quit hotkey pressed")
			onQuit()
			go stop()
		})
	})

	evChan := hook.Start()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	log.Debug().Str("keys", Describe(QuitKeys)).Msg("Quit hotkey registered")
	<-hook.Process(evChan)
}
