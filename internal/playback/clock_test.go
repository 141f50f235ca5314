package playback

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClockStopsAtDuration(t *testing.T) {
	ended := make(chan float64, 1)
	c := New(zerolog.Nop(), Options{
		Interval: time.Millisecond,
		OnEnd:    func(at float64) { ended <- at },
	})

	c.Play(59.95, 60)

	select {
	case at := <-ended:
		if at != 60 {
			t.Errorf("expected to end at 60, got %v", at)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("clock did not reach the end")
	}

	c.Stop()
	if c.Playing() {
		t.Error("clock should not be playing after reaching the end")
	}
	if c.Position() != 60 {
		t.Errorf("expected position 60, got %v", c.Position())
	}
}

func TestClockStopDisarms(t *testing.T) {
	var ticks atomic.Int64
	c := New(zerolog.Nop(), Options{
		Interval: time.Millisecond,
		OnTick:   func(float64) { ticks.Add(1) },
	})

	c.Play(0, 60)
	time.Sleep(20 * time.Millisecond)
	pos := c.Pause()

	if pos <= 0 {
		t.Errorf("expected playhead to advance, got %v", pos)
	}
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("ticks delivered after Stop returned")
	}
	if c.Playing() {
		t.Error("clock should be stopped")
	}
}

func TestClockToggle(t *testing.T) {
	c := New(zerolog.Nop(), Options{Interval: time.Millisecond})

	if !c.Toggle(60) {
		t.Fatal("toggle should start playback")
	}
	if c.Toggle(60) {
		t.Error("second toggle should pause")
	}

	c.Seek(10, 60)
	if c.Position() != 10 {
		t.Errorf("expected position 10, got %v", c.Position())
	}
}

func TestPlayPastEndDoesNotArm(t *testing.T) {
	c := New(zerolog.Nop(), Options{})
	c.Play(70, 60)
	if c.Playing() {
		t.Error("playing from past the end should not arm the clock")
	}
	if c.Position() != 60 {
		t.Errorf("expected position clamped to 60, got %v", c.Position())
	}
}
