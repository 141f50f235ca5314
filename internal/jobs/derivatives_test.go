package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/vibecut/internal/ffmpeg"
)

// fakeRunner records invocations and writes outputs instead of encoding
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	err    error
	frames []int
}

func (f *fakeRunner) Run(ctx context.Context, opts ffmpeg.RunOptions) error {
	f.mu.Lock()
	f.calls = append(f.calls, opts.Args)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	out := opts.Args[len(opts.Args)-1]
	if strings.Contains(out, "%d") {
		for _, n := range f.frames {
			if err := os.WriteFile(strings.Replace(out, "%d", fmt.Sprint(n), 1), []byte("jpg"), 0644); err != nil {
				return err
			}
		}
		return nil
	}
	return os.WriteFile(out, []byte("proxy"), 0644)
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newDerivatives(t *testing.T, r Runner) (*Derivatives, Config) {
	t.Helper()
	// TempDir first: cleanups run in reverse, so the queue drains before
	// its output directory is removed
	cfg := DefaultConfig(t.TempDir())
	q := NewQueue(zerolog.Nop())
	t.Cleanup(func() { q.Close(context.Background()) })
	return NewDerivatives(zerolog.Nop(), r, q, cfg), cfg
}

func TestProxyGeneratesAndReuses(t *testing.T) {
	r := &fakeRunner{}
	d, cfg := newDerivatives(t, r)
	ctx := context.Background()

	got := d.Proxy(ctx, "/media/My Clip.mp4")
	want := filepath.Join(cfg.ProxyDir, "proxy_My Clip.mp4")
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	wantArgs := []string{
		"-i", "/media/My Clip.mp4",
		"-vf", "scale=-1:720",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", "-c:a", "aac",
		"-preset", "ultrafast", "-crf", "28",
		"-profile:v", "baseline", "-level", "3.0", "-movflags", "+faststart",
		want,
	}
	if strings.Join(r.calls[0], " ") != strings.Join(wantArgs, " ") {
		t.Errorf("unexpected args %v", r.calls[0])
	}

	if again := d.Proxy(ctx, "/media/My Clip.mp4"); again != want {
		t.Errorf("expected reuse, got %s", again)
	}
	if r.count() != 1 {
		t.Errorf("existing proxy should not be regenerated, %d runs", r.count())
	}
}

func TestProxyRegeneratesEmptyFile(t *testing.T) {
	r := &fakeRunner{}
	d, cfg := newDerivatives(t, r)

	if err := os.MkdirAll(cfg.ProxyDir, 0755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(cfg.ProxyDir, "proxy_a.mp4")
	if err := os.WriteFile(stale, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if got := d.Proxy(context.Background(), "a.mp4"); got != stale {
		t.Errorf("expected regenerated proxy, got %s", got)
	}
	if r.count() != 1 {
		t.Errorf("expected one run, got %d", r.count())
	}
}

func TestProxyFallsBackToOriginal(t *testing.T) {
	d, _ := newDerivatives(t, &fakeRunner{err: errors.New("boom")})

	if got := d.Proxy(context.Background(), "/src/a.mov"); got != "/src/a.mov" {
		t.Errorf("expected original path, got %s", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := d.Proxy(ctx, "/src/b.mov"); got != "/src/b.mov" {
		t.Errorf("cancelled wait should fall back, got %s", got)
	}
}

func TestThumbnailsOrderedNumerically(t *testing.T) {
	r := &fakeRunner{frames: []int{1, 2, 10, 3}}
	d, _ := newDerivatives(t, r)

	frames := d.Thumbnails(context.Background(), "clip.mp4", 40)
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %v", frames)
	}
	for i, want := range []string{"_1.jpg", "_2.jpg", "_3.jpg", "_10.jpg"} {
		if !strings.HasSuffix(frames[i], want) {
			t.Errorf("frame %d: expected suffix %s, got %s", i, want, frames[i])
		}
	}

	if vf := r.calls[0][3]; vf != "fps=0.5,scale=-1:64" {
		t.Errorf("unexpected filter %s", vf)
	}
}

func TestThumbnailsReuseAboveThreshold(t *testing.T) {
	r := &fakeRunner{frames: []int{1, 2, 3, 4, 5, 6}}
	d, _ := newDerivatives(t, r)
	ctx := context.Background()

	first := d.Thumbnails(ctx, "clip.mp4", 10)
	second := d.Thumbnails(ctx, "clip.mp4", 10)

	if r.count() != 1 {
		t.Errorf("six existing frames should be reused, %d runs", r.count())
	}
	if len(first) != 6 || len(second) != 6 {
		t.Errorf("unexpected frames %v / %v", first, second)
	}
}

func TestThumbnailsBelowThresholdRegenerate(t *testing.T) {
	r := &fakeRunner{frames: []int{1, 2}}
	d, _ := newDerivatives(t, r)
	ctx := context.Background()

	d.Thumbnails(ctx, "short.mp4", 1)
	d.Thumbnails(ctx, "short.mp4", 1)
	if r.count() != 2 {
		t.Errorf("partial strips should be regenerated, %d runs", r.count())
	}
}

func TestThumbnailsFailureIsEmpty(t *testing.T) {
	d, _ := newDerivatives(t, &fakeRunner{err: errors.New("boom")})

	frames := d.Thumbnails(context.Background(), "bad.mp4", 10)
	if frames == nil || len(frames) != 0 {
		t.Errorf("expected empty list, got %#v", frames)
	}
}

func TestThumbnailRate(t *testing.T) {
	cfg := DefaultConfig("")
	tests := []struct {
		duration float64
		want     float64
	}{
		{0, 0.5},
		{-3, 0.5},
		{5, 2},
		{10, 2},
		{20, 1},
		{40, 0.5},
		{600, 0.5},
	}
	for _, tt := range tests {
		if got := ThumbnailRate(tt.duration, cfg); got != tt.want {
			t.Errorf("ThumbnailRate(%v) = %v, want %v", tt.duration, got, tt.want)
		}
	}
}

func TestThreadBudget(t *testing.T) {
	if n := ThreadBudget(); n < 1 {
		t.Errorf("expected at least one thread, got %d", n)
	}
}
