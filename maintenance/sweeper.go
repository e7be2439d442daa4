// Package maintenance provides background services for chatpg instances.
//
// The sweeper periodically force-flushes session buffers that have gone
// idle, so turns from abandoned sessions reach the store without waiting
// for another user turn.
package maintenance

import (
	"context"
	"sync/atomic"
	"time"
)

// Default sweeper configuration values
const (
	DefaultSweepInterval       = 1 * time.Minute
	DefaultIdleSessionInterval = 5 * time.Minute
)

// FlushIdleFunc force-flushes every buffer idle for at least idleFor.
type FlushIdleFunc func(ctx context.Context, idleFor time.Duration) error

// SweeperConfig holds configuration for the idle-session sweeper.
type SweeperConfig struct {
	// Interval is how often to scan for idle buffers.
	// Default: 1 minute
	Interval time.Duration

	// IdleFor is how long a buffer must be idle before it is flushed.
	// Default: 5 minutes
	IdleFor time.Duration

	// OnError is called when a sweep fails.
	// If nil, errors are silently ignored.
	OnError func(err error)
}

// DefaultSweeperConfig returns the default sweeper configuration.
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval: DefaultSweepInterval,
		IdleFor:  DefaultIdleSessionInterval,
	}
}

// Sweeper periodically flushes idle session buffers.
type Sweeper struct {
	flush  FlushIdleFunc
	config *SweeperConfig

	started atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
}

// NewSweeper creates a new idle-session sweeper.
func NewSweeper(flush FlushIdleFunc, config *SweeperConfig) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}
	if config.Interval == 0 {
		config.Interval = DefaultSweepInterval
	}
	if config.IdleFor == 0 {
		config.IdleFor = DefaultIdleSessionInterval
	}

	return &Sweeper{
		flush:  flush,
		config: config,
		done:   make(chan struct{}),
	}
}

// Start begins sweeping.
// It returns immediately and runs the sweep loop in a goroutine.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)

	return nil
}

// Stop stops sweeping.
func (s *Sweeper) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return ErrNotStarted
	}

	s.cancel()
	<-s.done

	s.started.Store(false)
	return nil
}

// run is the main sweep loop.
func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs a single sweep.
func (s *Sweeper) sweep(ctx context.Context) {
	err := s.flush(ctx, s.config.IdleFor)
	if err != nil && s.config.OnError != nil {
		s.config.OnError(err)
	}
}

// IsRunning returns true if the sweeper is running.
func (s *Sweeper) IsRunning() bool {
	return s.started.Load()
}
