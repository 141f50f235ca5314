// Package playback drives the preview playhead from a monotonic clock.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultInterval is roughly one display frame
const DefaultInterval = 16 * time.Millisecond

// Options configures a Clock. The callbacks run on the clock goroutine and
// must not call back into the Clock.
type Options struct {
	Interval time.Duration
	// OnTick receives every new playhead position
	OnTick func(t float64)
	// OnEnd is called once when playback reaches the end on its own
	OnEnd func(t float64)
}

// Clock is a cancellable repeating task. Each tick derives the playhead from
// the elapsed monotonic time since Play, so missed ticks never drift.
type Clock struct {
	mu sync.Mutex

	logger   zerolog.Logger
	opts     Options
	position float64

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped clock
func New(logger zerolog.Logger, opts Options) *Clock {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Clock{
		logger: logger.With().Str("component", "playback").Logger(),
		opts:   opts,
	}
}

// Play starts advancing from `from` and stops by itself at duration.
// Calling Play while playing restarts from the new position.
func (c *Clock) Play(from, duration float64) {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	if from >= duration {
		c.position = duration
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.position = from

	c.logger.Debug().Float64("from", from).Float64("duration", duration).Msg("playback started")

	go c.run(ctx, done, from, duration)
}

func (c *Clock) run(ctx context.Context, done chan struct{}, from, duration float64) {
	defer close(done)

	start := time.Now()
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		t := from + time.Since(start).Seconds()
		ended := t >= duration
		if ended {
			t = duration
		}

		c.mu.Lock()
		if ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.position = t
		c.mu.Unlock()

		if c.opts.OnTick != nil {
			c.opts.OnTick(t)
		}
		if ended {
			c.mu.Lock()
			cancel := c.cancel
			c.cancel = nil
			c.mu.Unlock()
			if cancel != nil {
				cancel()
			}
			if c.opts.OnEnd != nil {
				c.opts.OnEnd(t)
			}
			c.logger.Debug().Float64("at", t).Msg("playback reached end")
			return
		}
	}
}

// Pause stops the clock and returns the position it stopped at
func (c *Clock) Pause() float64 {
	c.Stop()
	return c.Position()
}

// Toggle pauses a playing clock or starts a stopped one
func (c *Clock) Toggle(duration float64) bool {
	if c.Playing() {
		c.Pause()
		return false
	}
	c.Play(c.Position(), duration)
	return c.Playing()
}

// Stop disarms the task and waits for it to exit. No tick is delivered
// after Stop returns.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Playing reports whether the task is armed
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Position returns the last published playhead
func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

// Seek sets the position of a stopped clock, or restarts a playing one there
func (c *Clock) Seek(t, duration float64) {
	if c.Playing() {
		c.Play(t, duration)
		return
	}
	c.mu.Lock()
	c.position = t
	c.mu.Unlock()
}
