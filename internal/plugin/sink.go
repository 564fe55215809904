package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/winkmouse/internal/blink"
)

// DefaultQueueSize is how many click actions may wait for a worker.
const DefaultQueueSize = 8

var (
	// ErrQueueFull is returned when click actions arrive faster than plugins run.
	ErrQueueFull = errors.New("plugin queue full")
	// ErrSinkClosed is returned by Click after Close.
	ErrSinkClosed = errors.New("plugin sink closed")
)

type job struct {
	plugin *Plugin
	req    *Request
}

// Sink runs the plugin bound to each click side. Plugins run on a worker
// goroutine so a slow plugin never stalls the frame loop.
type Sink struct {
	manager  *Manager
	executor *Executor
	bindings map[blink.Click]Binding
	now      func() time.Time

	mu     sync.Mutex
	closed bool
	queue  chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSink validates bindings against the discovered plugins and starts the
// worker. Sides without a binding are ignored by Click.
func NewSink(manager *Manager, executor *Executor, bindings map[blink.Click]Binding) (*Sink, error) {
	for side, b := range bindings {
		p, err := manager.Get(b.Plugin)
		if err != nil {
			return nil, fmt.Errorf("%s click action: %w: %s", side, err, b.Plugin)
		}
		if !p.Supports(b.Action) {
			return nil, fmt.Errorf("%s click action: plugin %s has no action %q", side, b.Plugin, b.Action)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		manager:  manager,
		executor: executor,
		bindings: bindings,
		now:      time.Now,
		queue:    make(chan job, DefaultQueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

// Click queues the action bound to c. It never blocks.
func (s *Sink) Click(c blink.Click) error {
	b, ok := s.bindings[c]
	if !ok {
		return nil
	}

	p, err := s.manager.Get(b.Plugin)
	if err != nil {
		return err
	}

	j := job{
		plugin: p,
		req: &Request{
			Action: b.Action,
			Click:  c.String(),
			At:     s.now(),
			Params: b.Params,
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}

	select {
	case s.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting actions, waits for queued ones and stops the worker.
// Running plugins are cancelled after the executor timeout at the latest.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
}

func (s *Sink) run() {
	defer s.wg.Done()

	for j := range s.queue {
		start := time.Now()
		resp, err := s.executor.Execute(s.ctx, j.plugin, j.req)

		logger := log.With().
			Str("plugin", j.plugin.Manifest.Name).
			Str("action", j.req.Action).
			Str("side", j.req.Click).
			Dur("duration", time.Since(start)).
			Logger()

		switch {
		case err != nil:
			logger.Error().Err(err).Msg("Click action failed")
		case !resp.Success:
			logger.Error().Str("error", resp.Error).Msg("Click action reported failure")
		default:
			logger.Debug().Msg("Click action done")
		}
	}
}
