package shell

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/render"
	"github.com/kikiluvv/vibecut/internal/timeline"
	"github.com/kikiluvv/vibecut/internal/timing"
)

func newTestShell(t *testing.T) (*Shell, *timeline.Engine, *bytes.Buffer) {
	t.Helper()
	n := 0
	eng := timeline.New(zerolog.Nop(), clips.NewProject("test"), timeline.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}))
	var out bytes.Buffer
	s := New(zerolog.Nop(), eng, nil, render.DefaultSettings(), &out)
	t.Cleanup(s.Close)
	return s, eng, &out
}

func mustExec(t *testing.T, s *Shell, line string) {
	t.Helper()
	more, err := s.Exec(line)
	if err != nil {
		t.Fatalf("%q failed: %v", line, err)
	}
	if !more {
		t.Fatalf("%q ended the session", line)
	}
}

func TestEditSession(t *testing.T) {
	s, eng, _ := newTestShell(t)

	mustExec(t, s, "add a.mp4")
	mustExec(t, s, "move c1 2")
	mustExec(t, s, "trim c1 1 4")

	c, ok := eng.Clip("c1")
	if !ok {
		t.Fatal("clip c1 missing")
	}
	if c.Offset != 2 || c.SourceRange != (timing.Range{Start: 1, End: 4}) {
		t.Fatalf("unexpected clip after edits: offset %v range %+v", c.Offset, c.SourceRange)
	}

	mustExec(t, s, "split c1 2.5")
	if got := len(eng.Clips()); got != 2 {
		t.Fatalf("expected 2 clips after split, got %d", got)
	}

	mustExec(t, s, "undo")
	if got := len(eng.Clips()); got != 1 {
		t.Fatalf("expected undo to merge the split, got %d clips", got)
	}
	mustExec(t, s, "redo")
	if got := len(eng.Clips()); got != 2 {
		t.Fatalf("expected redo to restore the split, got %d clips", got)
	}
}

func TestSplitAtPlayhead(t *testing.T) {
	s, eng, out := newTestShell(t)

	mustExec(t, s, "add a.mp4")
	mustExec(t, s, "seek 2")
	mustExec(t, s, "split")

	list := eng.Clips()
	if len(list) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(list))
	}
	if !strings.Contains(out.String(), "split") {
		t.Errorf("expected split confirmation, got %q", out.String())
	}

	out.Reset()
	mustExec(t, s, "seek 30")
	mustExec(t, s, "split")
	if !strings.Contains(out.String(), "nothing split") {
		t.Errorf("expected no-op report, got %q", out.String())
	}
}

func TestKeyframeToggle(t *testing.T) {
	s, eng, out := newTestShell(t)

	mustExec(t, s, "add a.mp4")
	mustExec(t, s, "seek 1")
	mustExec(t, s, "key c1 opacity 0.5")
	if !strings.Contains(out.String(), "keyframe added") {
		t.Fatalf("expected add, got %q", out.String())
	}
	c, _ := eng.Clip("c1")
	if len(c.Keyframes[clips.PropOpacity]) != 1 {
		t.Fatalf("expected one opacity keyframe, got %v", c.Keyframes)
	}

	mustExec(t, s, "key c1 opacity 0.5")
	c, _ = eng.Clip("c1")
	if len(c.Keyframes[clips.PropOpacity]) != 0 {
		t.Fatalf("expected toggle to remove keyframe, got %v", c.Keyframes)
	}
}

func TestFilterAndVolume(t *testing.T) {
	s, eng, _ := newTestShell(t)

	mustExec(t, s, "add a.mp4")
	mustExec(t, s, "filter c1 grayscale 100%")
	mustExec(t, s, "volume c1 0.4")

	c, _ := eng.Clip("c1")
	if v, ok := c.Filters.Get("grayscale"); !ok || v != "100%" {
		t.Errorf("expected grayscale filter, got %v", c.Filters)
	}
	if c.Volume() != 0.4 {
		t.Errorf("expected volume 0.4, got %v", c.Volume())
	}

	mustExec(t, s, "filter c1 grayscale none")
	c, _ = eng.Clip("c1")
	if _, ok := c.Filters.Get("grayscale"); ok {
		t.Errorf("expected filter removed, got %v", c.Filters)
	}

	mustExec(t, s, "text hello")
	if _, err := s.Exec("volume c2 0.5"); err == nil {
		t.Error("expected text clip volume to fail")
	}
}

func TestDragMovesClip(t *testing.T) {
	s, eng, out := newTestShell(t)

	mustExec(t, s, "add a.mp4")
	mustExec(t, s, "drag c1 move 1 11")

	c, _ := eng.Clip("c1")
	if c.Offset != 10 {
		t.Fatalf("expected clip moved to 10, got %v", c.Offset)
	}
	if !strings.Contains(out.String(), "dragged") {
		t.Errorf("expected drag confirmation, got %q", out.String())
	}
	if eng.Dragging().ClipID != "" {
		t.Error("expected drag gesture to be finished")
	}
}

func TestPanClickSeeks(t *testing.T) {
	s, eng, out := newTestShell(t)

	// 1200px at zoom 1 over the 60s floor
	mustExec(t, s, "pan 300")
	if eng.Playhead() != 15 {
		t.Fatalf("expected click to seek to 15, got %v", eng.Playhead())
	}

	mustExec(t, s, "zoom 2")
	out.Reset()
	mustExec(t, s, "pan 600 400")
	if eng.Playhead() != 15 {
		t.Errorf("drag should not seek, playhead moved to %v", eng.Playhead())
	}
	if !strings.Contains(out.String(), "scroll 200") {
		t.Errorf("expected scroll 200, got %q", out.String())
	}
}

func TestEvalAndGraph(t *testing.T) {
	s, _, out := newTestShell(t)

	mustExec(t, s, "add a.mp4 0")
	mustExec(t, s, "text hi")
	mustExec(t, s, "eval 1")

	got := out.String()
	if !strings.Contains(got, "top: c1") {
		t.Errorf("expected c1 on top, got %q", got)
	}
	if !strings.Contains(got, `"hi"`) {
		t.Errorf("expected text layer, got %q", got)
	}

	out.Reset()
	mustExec(t, s, "graph")
	if !strings.Contains(out.String(), "[a_out]") {
		t.Errorf("expected audio output label in graph, got %q", out.String())
	}
}

func TestSaveAndLoad(t *testing.T) {
	s, eng, _ := newTestShell(t)
	path := filepath.Join(t.TempDir(), "cut.vibe")

	mustExec(t, s, "add a.mp4 3")
	mustExec(t, s, "save "+path)
	mustExec(t, s, "rm c1")
	if len(eng.Clips()) != 0 {
		t.Fatal("expected clip removed")
	}

	mustExec(t, s, "load "+path)
	c, ok := eng.Clip("c1")
	if !ok || c.Offset != 3 {
		t.Fatalf("expected c1 at 3 after load, got %+v (found %v)", c, ok)
	}

	// path is remembered
	mustExec(t, s, "save")
}

func TestLoadRejectsInvalidProject(t *testing.T) {
	s, eng, _ := newTestShell(t)
	mustExec(t, s, "add a.mp4")

	path := filepath.Join(t.TempDir(), "broken.vibe")
	doc := `{"version": "1.0.0", "timeline": {"duration": 60, "clips": [
		{"id": "x", "src": "x.mp4", "type": "video", "start": 5, "end": 2, "offset": -3, "trackId": "nope"}]}}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Exec("load " + path); err == nil {
		t.Fatal("expected invalid project to fail loading")
	}
	if _, ok := eng.Clip("c1"); !ok || len(eng.Clips()) != 1 {
		t.Errorf("engine should keep the current project, got %d clips", len(eng.Clips()))
	}
}

func TestErrors(t *testing.T) {
	s, _, _ := newTestShell(t)

	if _, err := s.Exec("trim c1"); !errors.Is(err, ErrUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
	if _, err := s.Exec("rm nope"); !errors.Is(err, clips.ErrClipNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := s.Exec("add notes.txt"); err == nil {
		t.Error("expected unsupported media error")
	}
	if _, err := s.Exec("export out.mp4"); err == nil {
		t.Error("expected export without ffmpeg to fail")
	}
	if _, err := s.Exec("save"); !errors.Is(err, ErrUsage) {
		t.Errorf("expected usage error without a path, got %v", err)
	}
	if _, err := s.Exec("frobnicate"); err == nil {
		t.Error("expected unknown command error")
	}
}

func TestQuit(t *testing.T) {
	s, _, _ := newTestShell(t)

	for _, line := range []string{"quit", "exit"} {
		more, err := s.Exec(line)
		if err != nil || more {
			t.Errorf("%s: expected exit, got more=%v err=%v", line, more, err)
		}
	}
	if more, _ := s.Exec("   "); !more {
		t.Error("blank line should not exit")
	}
}
