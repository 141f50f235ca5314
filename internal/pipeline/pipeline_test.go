package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/ffmpeg"
	"github.com/kikiluvv/vibecut/internal/jobs"
	"github.com/kikiluvv/vibecut/internal/render"
	"github.com/kikiluvv/vibecut/internal/timeline"
)

// fakeEngine answers probes from a table and writes fake outputs
type fakeEngine struct {
	mu     sync.Mutex
	infos  map[string]*ffmpeg.MediaInfo
	runs   [][]string
	probes []string
	runErr error
}

func (f *fakeEngine) Run(ctx context.Context, opts ffmpeg.RunOptions) error {
	f.mu.Lock()
	f.runs = append(f.runs, opts.Args)
	f.mu.Unlock()
	if f.runErr != nil {
		return f.runErr
	}

	out := opts.Args[len(opts.Args)-1]
	if strings.Contains(out, "%d") {
		for i := 1; i <= 3; i++ {
			if err := os.WriteFile(strings.Replace(out, "%d", fmt.Sprint(i), 1), []byte("jpg"), 0644); err != nil {
				return err
			}
		}
		return nil
	}
	return os.WriteFile(out, []byte("data"), 0644)
}

func (f *fakeEngine) ProbeMedia(ctx context.Context, path string) (*ffmpeg.MediaInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes = append(f.probes, path)
	if info, ok := f.infos[path]; ok {
		return info, nil
	}
	return nil, errors.New("no such file")
}

func exportProject() *clips.Project {
	p := clips.NewProject("export")
	a := clips.NewClip("a", clips.KindVideo, "loud.mp4", 0, "video-1")
	b := clips.NewClip("b", clips.KindVideo, "silent.mp4", 5, "video-1")
	c := clips.NewClip("c", clips.KindVideo, "silent.mp4", 10, "video-1")
	p.Clips = []clips.Clip{a, b, c}
	return p
}

func TestExportProbesUnknownAudio(t *testing.T) {
	eng := &fakeEngine{infos: map[string]*ffmpeg.MediaInfo{
		"loud.mp4":   {HasAudio: true},
		"silent.mp4": {HasAudio: false},
	}}
	p := New(zerolog.Nop(), nil, eng, nil)

	snapshot := exportProject()
	out := filepath.Join(t.TempDir(), "out", "movie.mp4")
	res := p.Export(context.Background(), snapshot, ExportOptions{Settings: render.DefaultSettings(), Output: out})

	if !res.Success || res.Path != out {
		t.Fatalf("export failed: %+v", res)
	}
	if len(eng.probes) != 2 {
		t.Errorf("each unknown source should be probed once, got %v", eng.probes)
	}

	args := strings.Join(eng.runs[0], " ")
	if !strings.Contains(args, "[a_v_0]amix=inputs=1") {
		t.Errorf("only the loud clip should be mixed: %s", args)
	}
	if strings.Contains(args, "[1:a]") || strings.Contains(args, "[2:a]") {
		t.Errorf("silent clips should not reach the mix: %s", args)
	}

	if v := snapshot.Clips[1].Payload.(*clips.VideoPayload); v.HasAudio != nil {
		t.Error("export must not modify the caller's snapshot")
	}
}

func TestExportReportsFailures(t *testing.T) {
	eng := &fakeEngine{runErr: errors.New("encoder exploded")}
	p := New(zerolog.Nop(), nil, eng, nil)
	out := filepath.Join(t.TempDir(), "x.mp4")

	res := p.Export(context.Background(), clips.NewProject("empty"), ExportOptions{Output: out})
	if res.Success || res.Message != "encoder exploded" {
		t.Errorf("expected engine failure, got %+v", res)
	}

	bad := render.Settings{Resolution: "huge", Format: "mp4", FrameRate: 30}
	res = p.Export(context.Background(), clips.NewProject("empty"), ExportOptions{Settings: bad, Output: out})
	if res.Success || res.Message == "" {
		t.Errorf("expected settings failure, got %+v", res)
	}

	if res := p.Export(context.Background(), clips.NewProject("empty"), ExportOptions{}); res.Success {
		t.Error("missing output should fail")
	}
}

func TestProbeAllSkipsFailures(t *testing.T) {
	eng := &fakeEngine{infos: map[string]*ffmpeg.MediaInfo{"a.mp4": {Duration: 3}}}
	p := New(zerolog.Nop(), &Config{ProbeWorkers: 2}, eng, nil)

	infos := p.ProbeAll(context.Background(), []string{"a.mp4", "missing.mp4"})
	if len(infos) != 1 || infos["a.mp4"].Duration != 3 {
		t.Errorf("unexpected probe results %v", infos)
	}
}

func newImportEnv(t *testing.T, eng *fakeEngine) (*Pipeline, *timeline.Engine, jobs.Config) {
	t.Helper()
	cfg := jobs.DefaultConfig(t.TempDir())
	q := jobs.NewQueue(zerolog.Nop())
	t.Cleanup(func() { q.Close(context.Background()) })

	d := jobs.NewDerivatives(zerolog.Nop(), eng, q, cfg)

	n := 0
	tl := timeline.New(zerolog.Nop(), clips.NewProject("import"), timeline.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}))
	return New(zerolog.Nop(), nil, eng, d), tl, cfg
}

func TestImportDiscoversMetadata(t *testing.T) {
	eng := &fakeEngine{infos: map[string]*ffmpeg.MediaInfo{
		"/in/clip.mov": {Duration: 12.5, HasVideo: true, HasAudio: false},
	}}
	p, tl, cfg := newImportEnv(t, eng)

	im, err := p.Import(context.Background(), tl, "/in/clip.mov", ImportOptions{})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if im.Clip.Kind() != clips.KindVideo || im.Clip.Duration() != 5 {
		t.Errorf("clip should start with the provisional length: %+v", im.Clip)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := im.Wait(ctx); err != nil {
		t.Fatalf("discovery did not finish: %v", err)
	}

	c, _ := tl.Clip(im.Clip.ID)
	if c.Source != filepath.Join(cfg.ProxyDir, "proxy_clip.mov") {
		t.Errorf("expected proxy source, got %s", c.Source)
	}
	if c.SourceDuration == nil || *c.SourceDuration != 12.5 || c.SourceRange.End != 12.5 {
		t.Errorf("expected discovered duration, got %+v", c.SourceRange)
	}
	if c.Audible() {
		t.Error("probed silent video should not be audible")
	}
	if len(c.Thumbnails()) != 3 {
		t.Errorf("expected thumbnails, got %v", c.Thumbnails())
	}

	// discovery patches history, so undo/redo keeps the metadata
	if !tl.Undo() || len(tl.Clips()) != 0 {
		t.Fatal("undo should remove the imported clip")
	}
	tl.Redo()
	if c, _ := tl.Clip(im.Clip.ID); c.Duration() != 12.5 {
		t.Errorf("redo lost the discovered duration: %v", c.Duration())
	}
}

func TestImportKeepsProvisionalOnProbeFailure(t *testing.T) {
	eng := &fakeEngine{infos: map[string]*ffmpeg.MediaInfo{}}
	p, tl, _ := newImportEnv(t, eng)

	im, err := p.Import(context.Background(), tl, "/in/song.mp3", ImportOptions{})
	if err != nil {
		t.Fatal(err)
	}
	im.Wait(context.Background())

	c, _ := tl.Clip(im.Clip.ID)
	if c.Kind() != clips.KindAudio || c.Duration() != 5 || c.TrackID != "audio-1" {
		t.Errorf("unexpected clip %+v", c)
	}
}

func TestImportRejectsUnknownTypes(t *testing.T) {
	p, tl, _ := newImportEnv(t, &fakeEngine{})
	if _, err := p.Import(context.Background(), tl, "notes.txt", ImportOptions{}); err == nil {
		t.Error("unknown extension should fail")
	}
}

func TestKindForPath(t *testing.T) {
	tests := map[string]clips.Kind{
		"a.MP4":  clips.KindVideo,
		"b.wav":  clips.KindAudio,
		"c.jpeg": clips.KindImage,
	}
	for path, want := range tests {
		if got, err := KindForPath(path); err != nil || got != want {
			t.Errorf("KindForPath(%s) = %s, %v", path, got, err)
		}
	}
}
