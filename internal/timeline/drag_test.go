package timeline

import (
	"testing"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/timing"
)

func testClip(id string, offset, start, end float64) clips.Clip {
	c := clips.NewClip(id, clips.KindVideo, id+".mp4", offset, "video-1")
	c.SourceRange = timing.Range{Start: start, End: end}
	c.SourceDuration = clips.Ptr(20.0)
	return c
}

func TestNextDragLeftTrim(t *testing.T) {
	c := testClip("a", 10, 2, 8)
	s := BeginDrag(c, EdgeLeft, 10)
	env := DragEnv{Clips: []clips.Clip{c}, Duration: 60}

	ch, ok := NextDrag(s, c, PointerSample{Time: 11}, env)
	if !ok {
		t.Fatal("trim should be accepted")
	}
	if *ch.Offset != 11 || ch.SourceRange.Start != 3 || ch.SourceRange.End != 8 {
		t.Errorf("unexpected changes offset=%v range=%+v", *ch.Offset, *ch.SourceRange)
	}

	if _, ok := NextDrag(s, c, PointerSample{Time: 7.5}, env); ok {
		t.Error("start below zero should be rejected")
	}
	if _, ok := NextDrag(s, c, PointerSample{Time: 16}, env); ok {
		t.Error("start at end should be rejected")
	}
}

func TestNextDragRightTrimClampsToSource(t *testing.T) {
	c := testClip("a", 10, 2, 8)
	s := BeginDrag(c, EdgeRight, 16)
	env := DragEnv{Clips: []clips.Clip{c}, Duration: 60}

	ch, ok := NextDrag(s, c, PointerSample{Time: 14}, env)
	if !ok || ch.SourceRange.End != 6 {
		t.Errorf("expected end 6, got %+v ok=%v", ch.SourceRange, ok)
	}

	ch, ok = NextDrag(s, c, PointerSample{Time: 50}, env)
	if !ok || ch.SourceRange.End != 20 {
		t.Errorf("expected end clamped to 20, got %+v ok=%v", ch.SourceRange, ok)
	}

	if _, ok := NextDrag(s, c, PointerSample{Time: 9}, env); ok {
		t.Error("end before start should be rejected")
	}
}

func TestNextDragMoveSnapsNearestEdge(t *testing.T) {
	c := testClip("a", 0, 0, 4)
	other := testClip("b", 20, 0, 5)
	env := DragEnv{
		Clips:     []clips.Clip{c, other},
		Tracks:    clips.DefaultTracks(),
		Duration:  60,
		Playhead:  0,
		Threshold: 0.5,
	}

	s := BeginDrag(c, EdgeMove, 1)
	if s.GrabOffset != 1 {
		t.Fatalf("expected grab offset 1, got %v", s.GrabOffset)
	}

	// leading edge would land at 24.8, 0.2 from b's end
	ch, ok := NextDrag(s, c, PointerSample{Time: 25.8}, env)
	if !ok || *ch.Offset != 25 {
		t.Errorf("expected leading edge snapped to 25, got %v", *ch.Offset)
	}

	// trailing edge would land at 19.7, 0.3 from b's start
	ch, _ = NextDrag(s, c, PointerSample{Time: 16.7}, env)
	if *ch.Offset != 16 {
		t.Errorf("expected trailing edge snapped to 20 (offset 16), got %v", *ch.Offset)
	}

	// no target in range
	ch, _ = NextDrag(s, c, PointerSample{Time: 11}, env)
	if *ch.Offset != 10 {
		t.Errorf("expected unsnapped offset 10, got %v", *ch.Offset)
	}

	// never before zero
	ch, _ = NextDrag(s, c, PointerSample{Time: -5}, env)
	if *ch.Offset != 0 {
		t.Errorf("expected offset clamped to 0, got %v", *ch.Offset)
	}
}

func TestNextDragMoveRetargetsTrack(t *testing.T) {
	c := testClip("a", 0, 0, 4)
	tracks := append(clips.DefaultTracks(), clips.Track{ID: "video-2", Kind: clips.TrackVideo, DisplayOrder: 3})
	env := DragEnv{Clips: []clips.Clip{c}, Tracks: tracks, Duration: 60}
	s := BeginDrag(c, EdgeMove, 0)

	ch, _ := NextDrag(s, c, PointerSample{Time: 5, TrackID: "video-2"}, env)
	if ch.TrackID == nil || *ch.TrackID != "video-2" {
		t.Errorf("expected retarget to video-2, got %v", ch.TrackID)
	}

	ch, _ = NextDrag(s, c, PointerSample{Time: 5, TrackID: "audio-1"}, env)
	if ch.TrackID != nil {
		t.Errorf("video clip must not move to an audio lane, got %v", *ch.TrackID)
	}
}

func TestSnapExcludesOwnEdges(t *testing.T) {
	c := testClip("a", 10, 0, 5)
	targets := SnapTargets([]clips.Clip{c}, "a", 60, 30)

	for _, p := range targets {
		if p == 10 || p == 15 {
			t.Errorf("own edge %v should not be a target", p)
		}
	}
	if len(targets) != 3 {
		t.Errorf("expected only 0, duration and playhead, got %v", targets)
	}
}

func TestSnapIsStrict(t *testing.T) {
	if _, ok := Snap(10.5, []float64{10}, 0.5); ok {
		t.Error("a distance equal to the threshold must not snap")
	}
	if v, ok := Snap(10.4, []float64{10, 11}, 0.5); !ok || v != 10 {
		t.Errorf("expected snap to 10, got %v %v", v, ok)
	}
}

func TestViewportThresholdIsScreenSpace(t *testing.T) {
	v := Viewport{Width: 1000, Zoom: 1, Duration: 100}
	if got := v.SnapThreshold(); got != 1 {
		t.Errorf("expected 1s at zoom 1, got %v", got)
	}

	v = v.WithZoom(2)
	if got := v.SnapThreshold(); got != 0.5 {
		t.Errorf("expected 0.5s at zoom 2, got %v", got)
	}

	if z := v.WithZoom(50).Zoom; z != MaxZoom {
		t.Errorf("zoom should clamp to %v, got %v", MaxZoom, z)
	}
	if z := v.Wheel(-1000).Zoom; z != 3 {
		t.Errorf("wheel up should zoom in, got %v", z)
	}

	v = Viewport{Width: 1000, Zoom: 2, ScrollLeft: 500, Duration: 100}
	if got := v.TimeAt(500); got != 50 {
		t.Errorf("expected 50s, got %v", got)
	}
}

func TestPanVersusSeek(t *testing.T) {
	v := Viewport{Width: 1000, Zoom: 2, ScrollLeft: 100, Duration: 100}

	s := BeginPan(400, v)
	s, scroll := PanTo(s, 402, v)
	v.ScrollLeft = scroll
	res := EndPan(s, 402, v)
	if !res.Seek {
		t.Fatal("small displacement should seek")
	}
	if want := (402.0 + 98) / 2000 * 100; res.SeekTime != want {
		t.Errorf("expected seek to %v, got %v", want, res.SeekTime)
	}

	v.ScrollLeft = 100
	s = BeginPan(400, v)
	s, scroll = PanTo(s, 300, v)
	if scroll != 200 {
		t.Errorf("expected scroll 200, got %v", scroll)
	}
	v.ScrollLeft = scroll
	res = EndPan(s, 300, v)
	if res.Seek || res.ScrollLeft != 200 {
		t.Errorf("large displacement should keep scroll, got %+v", res)
	}
}
