package timeline

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/timing"
)

// KeyframeTolerance is how close to an existing keyframe a toggle must land
// to remove it instead of adding a new one.
const KeyframeTolerance = 0.1

// Engine owns the live project and is its only mutation path. Every
// undoable edit goes through commit, which records a full clip snapshot.
type Engine struct {
	mu sync.RWMutex

	logger  zerolog.Logger
	project *clips.Project
	history [][]clips.Clip
	index   int

	playhead float64
	newID    func() string

	drag        DragState
	dragPending bool
}

// Option configures an Engine
type Option func(*Engine)

// WithIDGenerator replaces the uuid-based id source
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newID = fn
	}
}

// New creates an engine around project. A nil project starts empty.
func New(logger zerolog.Logger, project *clips.Project, opts ...Option) *Engine {
	if project == nil {
		project = clips.NewProject("Untitled")
	}

	e := &Engine{
		logger:  logger.With().Str("component", "timeline").Logger(),
		project: project.Clone(),
		newID: func() string {
			return "clip-" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.history = [][]clips.Clip{clips.CloneAll(e.project.Clips)}

	return e
}

// Snapshot returns an immutable copy of the project
func (e *Engine) Snapshot() *clips.Project {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.project.Clone()
}

// Clips returns a copy of the live clip collection
func (e *Engine) Clips() []clips.Clip {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return clips.CloneAll(e.project.Clips)
}

// Clip returns a copy of clip id
func (e *Engine) Clip(id string) (clips.Clip, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.project.Clip(id)
}

// Tracks returns the tracks in compositing order
func (e *Engine) Tracks() []clips.Track {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.project.OrderedTracks()
}

// Duration returns the derived project duration
func (e *Engine) Duration() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.project.Duration()
}

// Playhead returns the current time
func (e *Engine) Playhead() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.playhead
}

// Seek moves the playhead, clamped to [0, duration]
func (e *Engine) Seek(t float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playhead = timing.Clamp(t, 0, e.project.Duration())
	return e.playhead
}

// Load replaces the whole project and resets history to a single snapshot
func (e *Engine) Load(p *clips.Project) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.project = p.Clone()
	e.history = [][]clips.Clip{clips.CloneAll(e.project.Clips)}
	e.index = 0
	e.playhead = 0
	e.drag = DragState{}
	e.dragPending = false

	e.logger.Info().
		Str("project", p.Name).
		Int("clips", len(p.Clips)).
		Msg("project loaded")
}

// Commit records next as a new history entry and makes it live
func (e *Engine) Commit(next []clips.Clip) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commit(next)
}

// commit discards redo states, appends next and advances the pointer.
// Callers hold e.mu.
func (e *Engine) commit(next []clips.Clip) {
	snapshot := clips.CloneAll(next)
	e.history = append(e.history[:e.index+1], snapshot)
	e.index = len(e.history) - 1
	e.project.Clips = clips.CloneAll(snapshot)
	e.dragPending = false

	e.logger.Debug().
		Int("history", len(e.history)).
		Int("clips", len(snapshot)).
		Msg("edit committed")
}

// Undo steps back one history entry
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index == 0 {
		return false
	}
	e.index--
	e.project.Clips = clips.CloneAll(e.history[e.index])
	e.dragPending = false
	return true
}

// Redo steps forward one history entry
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.index >= len(e.history)-1 {
		return false
	}
	e.index++
	e.project.Clips = clips.CloneAll(e.history[e.index])
	e.dragPending = false
	return true
}

// CanUndo reports whether Undo would do anything
func (e *Engine) CanUndo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index > 0
}

// CanRedo reports whether Redo would do anything
func (e *Engine) CanRedo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index < len(e.history)-1
}

// AddClip places a new clip of kind at the given time (the playhead when at
// is nil) on trackID, or on the default lane for the kind when trackID is empty.
func (e *Engine) AddClip(kind clips.Kind, source string, at *float64, trackID string) (clips.Clip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.add(kind, source, at, trackID, nil)
}

// AddText places a text clip at the playhead on the first text lane. An
// empty content keeps the default text.
func (e *Engine) AddText(content string) (clips.Clip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.add(clips.KindText, "", nil, "", func(c *clips.Clip) {
		if content != "" {
			c.Payload = &clips.TextPayload{Content: content}
		}
	})
}

func (e *Engine) add(kind clips.Kind, source string, at *float64, trackID string, init func(*clips.Clip)) (clips.Clip, error) {
	if !kind.Valid() {
		return clips.Clip{}, fmt.Errorf("unknown clip kind %q", kind)
	}

	track, err := e.resolveTrack(kind, trackID)
	if err != nil {
		return clips.Clip{}, err
	}

	offset := e.playhead
	if at != nil {
		offset = *at
	}
	if offset < 0 {
		offset = 0
	}

	c := clips.NewClip(e.newID(), kind, source, offset, track.ID)
	if init != nil {
		init(&c)
	}
	e.commit(append(clips.CloneAll(e.project.Clips), c))

	e.logger.Info().
		Str("clip", c.ID).
		Str("kind", string(kind)).
		Str("track", track.ID).
		Float64("offset", offset).
		Msg("clip added")

	return c.Clone(), nil
}

func (e *Engine) resolveTrack(kind clips.Kind, trackID string) (clips.Track, error) {
	if trackID == "" {
		t, ok := e.project.DefaultTrackFor(kind)
		if !ok {
			return clips.Track{}, clips.ErrTrackNotFound
		}
		return t, nil
	}

	t, ok := e.project.Track(trackID)
	if !ok {
		return clips.Track{}, fmt.Errorf("%w: %s", clips.ErrTrackNotFound, trackID)
	}
	if !clips.Compatible(kind, t.Kind) {
		return clips.Track{}, fmt.Errorf("%w: %s on %s", clips.ErrIncompatible, kind, t.Kind)
	}
	return t, nil
}

// AddTrack appends a lane below the existing ones. Tracks are not part of
// the clip history.
func (e *Engine) AddTrack(kind clips.TrackKind, name string) clips.Track {
	e.mu.Lock()
	defer e.mu.Unlock()

	order := 0
	for _, t := range e.project.Tracks {
		if t.DisplayOrder >= order {
			order = t.DisplayOrder + 1
		}
	}
	if name == "" {
		name = fmt.Sprintf("Track %d", len(e.project.Tracks)+1)
	}

	t := clips.Track{
		ID:           "track-" + uuid.NewString(),
		Kind:         kind,
		Name:         name,
		DisplayOrder: order,
	}
	e.project.Tracks = append(e.project.Tracks, t)
	return t
}

// RemoveClip deletes clip id
func (e *Engine) RemoveClip(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.project.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", clips.ErrClipNotFound, id)
	}

	next := clips.CloneAll(e.project.Clips)
	next = append(next[:i], next[i+1:]...)
	e.commit(next)

	e.logger.Info().Str("clip", id).Msg("clip removed")
	return nil
}

// UpdateClip shallow-merges changes onto clip id. Results that break clip
// invariants are refused with an error and leave the project untouched.
func (e *Engine) UpdateClip(id string, changes clips.Changes) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.project.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", clips.ErrClipNotFound, id)
	}

	updated, err := e.project.Clips[i].Apply(changes)
	if err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	if changes.TrackID != nil {
		if err := e.checkTrack(updated); err != nil {
			return err
		}
	}

	next := clips.CloneAll(e.project.Clips)
	next[i] = updated
	e.commit(next)
	return nil
}

func (e *Engine) checkTrack(c clips.Clip) error {
	t, ok := e.project.Track(c.TrackID)
	if !ok {
		return fmt.Errorf("%w: %s", clips.ErrTrackNotFound, c.TrackID)
	}
	if !clips.Compatible(c.Kind(), t.Kind) {
		return fmt.Errorf("%w: %s on %s", clips.ErrIncompatible, c.Kind(), t.Kind)
	}
	return nil
}

// SplitClip cuts clip id at source time m. It returns false without an
// error when m falls in the dead zone near either edge.
func (e *Engine) SplitClip(id string, m float64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.split(id, m)
}

func (e *Engine) split(id string, m float64) (bool, error) {
	i, ok := e.project.Find(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", clips.ErrClipNotFound, id)
	}

	first, second, ok := e.project.Clips[i].SplitAt(m, e.newID())
	if !ok {
		return false, nil
	}

	next := make([]clips.Clip, 0, len(e.project.Clips)+1)
	for j, c := range e.project.Clips {
		if j == i {
			next = append(next, first, second)
			continue
		}
		next = append(next, c.Clone())
	}
	e.commit(next)

	e.logger.Info().
		Str("clip", id).
		Str("new_clip", second.ID).
		Float64("at", m).
		Msg("clip split")
	return true, nil
}

// SplitAtPlayhead splits clip id where the playhead crosses it. With an
// empty id the first video clip active at the playhead is used.
func (e *Engine) SplitAtPlayhead(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var target *clips.Clip
	for i := range e.project.Clips {
		c := &e.project.Clips[i]
		if !c.Span().Contains(e.playhead) {
			continue
		}
		if (id == "" && c.Kind() == clips.KindVideo) || c.ID == id {
			target = c
			break
		}
	}
	if target == nil {
		return false, nil
	}

	return e.split(target.ID, e.playhead-target.Offset+target.SourceRange.Start)
}

// ToggleKeyframe removes the keyframe of prop within KeyframeTolerance of the
// playhead, or adds (playhead, value) when there is none. It reports whether
// a keyframe was added.
func (e *Engine) ToggleKeyframe(id, prop string, value float64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.project.Find(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", clips.ErrClipNotFound, id)
	}
	c := e.project.Clips[i]
	tau := e.playhead - c.Offset

	list := c.Keyframes[prop]
	next := make([]clips.Keyframe, 0, len(list)+1)
	removed := false
	for _, k := range list {
		if !removed && timing.Within(k.Time, tau, KeyframeTolerance) {
			removed = true
			continue
		}
		next = append(next, k)
	}
	if !removed {
		next = append(next, clips.Keyframe{Time: tau, Value: value})
	}

	updated := c.Clone()
	updated.Keyframes = c.Keyframes.With(prop, next)

	all := clips.CloneAll(e.project.Clips)
	all[i] = updated
	e.commit(all)

	return !removed, nil
}

// BeginDrag starts a gesture on clip id at pointer time
func (e *Engine) BeginDrag(id string, edge Edge, pointer float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !edge.Valid() {
		return fmt.Errorf("unknown drag edge %q", edge)
	}
	i, ok := e.project.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s", clips.ErrClipNotFound, id)
	}

	e.drag = BeginDrag(e.project.Clips[i], edge, pointer)
	e.dragPending = false
	return nil
}

// DragTo feeds one pointer sample into the active gesture. All accepted
// samples of one gesture collapse into a single history entry. It reports
// whether the clip changed.
func (e *Engine) DragTo(sample PointerSample, threshold float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.drag.Idle() {
		return false
	}
	i, ok := e.project.Find(e.drag.ClipID)
	if !ok {
		e.drag = DragState{}
		return false
	}

	current := e.project.Clips[i]
	env := DragEnv{
		Clips:     e.project.Clips,
		Tracks:    e.project.Tracks,
		Duration:  e.project.Duration(),
		Playhead:  e.playhead,
		Threshold: threshold,
	}
	changes, accepted := NextDrag(e.drag, current, sample, env)
	if !accepted {
		return false
	}

	updated, err := current.Apply(changes)
	if err != nil || updated.Validate() != nil {
		return false
	}
	if reflect.DeepEqual(updated, current) {
		return false
	}

	next := clips.CloneAll(e.project.Clips)
	next[i] = updated

	if e.dragPending {
		e.history[e.index] = clips.CloneAll(next)
		e.project.Clips = next
		return true
	}

	e.commit(next)
	e.dragPending = true
	return true
}

// EndDrag returns the gesture to Idle
func (e *Engine) EndDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drag = EndDrag(e.drag)
	e.dragPending = false
}

// Dragging returns the active drag state
func (e *Engine) Dragging() DragState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.drag
}

// Metadata is information discovered about a source after the clip was added
type Metadata struct {
	Duration   *float64
	Source     *string
	Thumbnails []string
	HasAudio   *bool
}

// Selector picks the clips a metadata update applies to. A non-empty ID
// wins over Source.
type Selector struct {
	ID     string
	Source string
}

func (s Selector) match(c clips.Clip) bool {
	if s.ID != "" {
		return c.ID == s.ID
	}
	return s.Source != "" && c.Source == s.Source
}

// ApplyMetadata patches matching clips in place, in the live collection and
// in every history snapshot, without recording a history entry. A discovered
// duration becomes both the source duration and the range end.
func (e *Engine) ApplyMetadata(sel Selector, m Metadata) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := patchAll(e.project.Clips, sel, m)
	for _, snapshot := range e.history {
		patchAll(snapshot, sel, m)
	}

	if n > 0 {
		e.logger.Debug().
			Str("id", sel.ID).
			Str("source", sel.Source).
			Int("clips", n).
			Msg("metadata applied")
	}
	return n
}

func patchAll(list []clips.Clip, sel Selector, m Metadata) int {
	n := 0
	for i := range list {
		if !sel.match(list[i]) {
			continue
		}
		list[i] = patch(list[i], m)
		n++
	}
	return n
}

func patch(c clips.Clip, m Metadata) clips.Clip {
	out := c.Clone()

	if m.Duration != nil && *m.Duration > 0 {
		d := *m.Duration
		out.SourceDuration = clips.Ptr(d)
		out.SourceRange.End = d
		if out.SourceRange.Start >= d {
			out.SourceRange.Start = 0
		}
	}
	if m.Source != nil {
		out.Source = *m.Source
	}

	if v, ok := out.Payload.(*clips.VideoPayload); ok {
		if m.Thumbnails != nil {
			v.Thumbnails = append([]string(nil), m.Thumbnails...)
		}
		if m.HasAudio != nil {
			v.HasAudio = clips.Ptr(*m.HasAudio)
		}
	}
	return out
}
