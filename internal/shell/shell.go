// Package shell is an interactive, line-oriented front end to the timeline
// engine.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/evaluator"
	"github.com/kikiluvv/vibecut/internal/pipeline"
	"github.com/kikiluvv/vibecut/internal/playback"
	"github.com/kikiluvv/vibecut/internal/projectfile"
	"github.com/kikiluvv/vibecut/internal/render"
	"github.com/kikiluvv/vibecut/internal/timeline"
	"github.com/kikiluvv/vibecut/internal/timing"
	"github.com/kikiluvv/vibecut/pkg/util"
)

// ErrUsage is returned for malformed commands
var ErrUsage = errors.New("usage")

// Shell drives one timeline engine from typed commands
type Shell struct {
	logger   zerolog.Logger
	engine   *timeline.Engine
	pipeline *pipeline.Pipeline
	store    *projectfile.Store
	clock    *playback.Clock
	out      io.Writer

	settings render.Settings
	viewport timeline.Viewport
	path     string
}

// New creates a shell. pipe may be nil, in which case add skips media
// discovery and export is unavailable.
func New(logger zerolog.Logger, engine *timeline.Engine, pipe *pipeline.Pipeline, settings render.Settings, out io.Writer) *Shell {
	s := &Shell{
		logger:   logger.With().Str("component", "shell").Logger(),
		engine:   engine,
		pipeline: pipe,
		store:    projectfile.NewStore(logger, projectfile.FixedDialog{}),
		out:      out,
		settings: settings.WithDefaults(),
		viewport: timeline.Viewport{Width: 1200, Zoom: 1},
	}
	s.clock = playback.New(logger, playback.Options{
		OnTick: func(t float64) { engine.Seek(t) },
		OnEnd: func(t float64) {
			engine.Seek(t)
			fmt.Fprintf(s.out, "\nplayback finished at %s\n", timing.FormatSeconds(t))
		},
	})
	return s
}

// SetPath records the file the project was loaded from
func (s *Shell) SetPath(path string) {
	s.path = path
}

// Close stops playback
func (s *Shell) Close() {
	s.clock.Stop()
}

// Run reads commands until quit or EOF
func (s *Shell) Run() error {
	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".vibecut_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "vibecut> ",
		HistoryFile:     historyFile,
		AutoComplete:    s.Completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	s.out = rl.Stdout()
	defer s.Close()

	fmt.Fprintln(s.out, "vibecut shell, type 'help' for commands")
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		more, err := s.Exec(line)
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if !more {
			return nil
		}
	}
}

// Completer returns the auto-completion functionality for the shell
func (s *Shell) Completer() readline.AutoCompleter {
	edges := []readline.PrefixCompleterInterface{
		readline.PcItem(string(timeline.EdgeLeft)),
		readline.PcItem(string(timeline.EdgeRight)),
		readline.PcItem(string(timeline.EdgeMove)),
	}
	props := []readline.PrefixCompleterInterface{
		readline.PcItem(clips.PropOpacity),
		readline.PcItem(clips.PropScale),
		readline.PcItem(clips.PropX),
		readline.PcItem(clips.PropY),
	}
	var filters []readline.PrefixCompleterInterface
	for _, f := range clips.Presets {
		filters = append(filters, readline.PcItem(f.Name))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("clips"),
		readline.PcItem("tracks"),
		readline.PcItem("track", readline.PcItem("video"), readline.PcItem("audio"), readline.PcItem("text")),
		readline.PcItem("add"),
		readline.PcItem("text"),
		readline.PcItem("rm"),
		readline.PcItem("move"),
		readline.PcItem("trim"),
		readline.PcItem("split"),
		readline.PcItem("drag", readline.PcItemDynamic(s.clipIDs, edges...)),
		readline.PcItem("key", readline.PcItemDynamic(s.clipIDs, props...)),
		readline.PcItem("filter", readline.PcItemDynamic(s.clipIDs, filters...)),
		readline.PcItem("volume", readline.PcItemDynamic(s.clipIDs)),
		readline.PcItem("seek"),
		readline.PcItem("zoom"),
		readline.PcItem("wheel"),
		readline.PcItem("pan"),
		readline.PcItem("play"),
		readline.PcItem("pause"),
		readline.PcItem("undo"),
		readline.PcItem("redo"),
		readline.PcItem("eval"),
		readline.PcItem("graph"),
		readline.PcItem("save"),
		readline.PcItem("load"),
		readline.PcItem("export"),
		readline.PcItem("quit"),
	)
}

func (s *Shell) clipIDs(string) []string {
	var ids []string
	for _, c := range s.engine.Clips() {
		ids = append(ids, c.ID)
	}
	return ids
}

// Exec runs one command line. It returns false when the shell should exit.
func (s *Shell) Exec(line string) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return true, nil
	}
	cmd, args := args[0], args[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return false, nil
	case "help":
		s.printCommands()
	case "clips", "ls":
		s.printClips()
	case "tracks":
		s.printTracks()
	case "track":
		err = s.addTrack(args)
	case "add":
		err = s.add(args)
	case "text":
		err = s.text(args)
	case "rm":
		err = s.remove(args)
	case "move":
		err = s.move(args)
	case "trim":
		err = s.trim(args)
	case "split":
		err = s.split(args)
	case "drag":
		err = s.drag(args)
	case "key":
		err = s.key(args)
	case "filter":
		err = s.filter(args)
	case "volume":
		err = s.volume(args)
	case "seek":
		err = s.seek(args)
	case "zoom":
		err = s.zoom(args)
	case "wheel":
		err = s.wheel(args)
	case "pan":
		err = s.pan(args)
	case "play":
		s.clock.Play(s.engine.Playhead(), s.engine.Duration())
		fmt.Fprintf(s.out, "playing from %s\n", timing.FormatSeconds(s.engine.Playhead()))
	case "pause":
		t := s.clock.Pause()
		s.engine.Seek(t)
		fmt.Fprintf(s.out, "paused at %s\n", timing.FormatSeconds(t))
	case "undo":
		s.report(s.engine.Undo(), "undone", "nothing to undo")
	case "redo":
		s.report(s.engine.Redo(), "redone", "nothing to redo")
	case "eval":
		err = s.eval(args)
	case "graph":
		err = s.graph()
	case "save":
		err = s.save(args)
	case "load":
		err = s.load(args)
	case "export":
		err = s.export(args)
	default:
		err = fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
	return true, err
}

func (s *Shell) printCommands() {
	fmt.Fprint(s.out, `
Commands:
  clips                           List clips
  tracks                          List tracks
  track <video|audio|text> [name] Add a track
  add <path> [at] [track]         Import media at a time (default: the playhead)
  text <content...>               Add a text overlay at the playhead
  rm <id>                         Remove a clip
  move <id> <offset> [track]      Place a clip at a timeline time
  trim <id> <start> <end>         Set the source range
  split [id] [source-time]        Split at a source time, or the playhead
  drag <id> <edge> <from> <to> [track]  Drag an edge or the whole clip with snapping
  key <id> <prop> <value>         Toggle a keyframe at the playhead
  filter <id> <name> <value|none> Set or remove a filter
  volume <id> <value>             Set clip volume
  seek <time>                     Move the playhead
  zoom <factor>                   Set the timeline zoom (affects snapping)
  wheel <delta>                   Zoom like a mouse wheel
  pan <x> [to-x]                  Click (seek) or drag-scroll the timeline, in pixels
  play | pause                    Preview clock
  undo | redo                     History
  eval [time]                     Show what is visible and audible
  graph                           Print the export filter graph
  save [path] | load <path>       Project files
  export <output> [resolution] [format] [fps]
  quit                            Exit
`)
}

func (s *Shell) report(ok bool, yes, no string) {
	if ok {
		fmt.Fprintln(s.out, yes)
	} else {
		fmt.Fprintln(s.out, no)
	}
}

func (s *Shell) printClips() {
	list := s.engine.Clips()
	if len(list) == 0 {
		fmt.Fprintln(s.out, "no clips")
		return
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Offset < list[j].Offset })
	for _, c := range list {
		label := c.Source
		if c.Kind() == clips.KindText {
			label = strconv.Quote(c.Content())
		}
		fmt.Fprintf(s.out, "%-12s %-5s %-10s %7s-%-7s src %s-%s  %s\n",
			c.ID, c.Kind(), c.TrackID,
			timing.FormatSeconds(c.Offset), timing.FormatSeconds(c.End()),
			timing.FormatSeconds(c.SourceRange.Start), timing.FormatSeconds(c.SourceRange.End),
			label)
	}
	fmt.Fprintf(s.out, "duration %s, playhead %s\n",
		timing.FormatSeconds(s.engine.Duration()), timing.FormatSeconds(s.engine.Playhead()))
}

func (s *Shell) printTracks() {
	p := s.engine.Snapshot()
	for i, t := range p.OrderedTracks() {
		fmt.Fprintf(s.out, "%d %-10s %-5s %s\n", i, t.ID, t.Kind, t.Name)
	}
}

func (s *Shell) addTrack(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: track <video|audio|text> [name]", ErrUsage)
	}
	kind := clips.TrackKind(args[0])
	if kind != clips.TrackVideo && kind != clips.TrackAudio && kind != clips.TrackText {
		return fmt.Errorf("unknown track kind %q", args[0])
	}
	t := s.engine.AddTrack(kind, strings.Join(args[1:], " "))
	fmt.Fprintf(s.out, "added track %s\n", t.ID)
	return nil
}

func (s *Shell) add(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: add <path> [at] [track]", ErrUsage)
	}
	opts := pipeline.ImportOptions{}
	if len(args) > 1 {
		at, err := parseTime(args[1])
		if err != nil {
			return err
		}
		opts.At = &at
	}
	if len(args) > 2 {
		opts.TrackID = args[2]
	}

	if s.pipeline == nil {
		kind, err := pipeline.KindForPath(args[0])
		if err != nil {
			return err
		}
		c, err := s.engine.AddClip(kind, args[0], opts.At, opts.TrackID)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "added %s\n", c.ID)
		return nil
	}

	im, err := s.pipeline.Import(context.Background(), s.engine, args[0], opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "added %s, discovering metadata in the background\n", im.Clip.ID)
	return nil
}

func (s *Shell) text(args []string) error {
	content := strings.Join(args, " ")
	c, err := s.engine.AddText(content)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "added %s\n", c.ID)
	return nil
}

func (s *Shell) remove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: rm <id>", ErrUsage)
	}
	if err := s.engine.RemoveClip(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "removed %s\n", args[0])
	return nil
}

func (s *Shell) move(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: move <id> <offset> [track]", ErrUsage)
	}
	offset, err := parseTime(args[1])
	if err != nil {
		return err
	}
	ch := clips.Changes{Offset: clips.Ptr(offset)}
	if len(args) > 2 {
		ch.TrackID = clips.Ptr(args[2])
	}
	return s.engine.UpdateClip(args[0], ch)
}

func (s *Shell) trim(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: trim <id> <start> <end>", ErrUsage)
	}
	start, err := parseTime(args[1])
	if err != nil {
		return err
	}
	end, err := parseTime(args[2])
	if err != nil {
		return err
	}
	return s.engine.UpdateClip(args[0], clips.Changes{SourceRange: &timing.Range{Start: start, End: end}})
}

func (s *Shell) split(args []string) error {
	var (
		ok  bool
		err error
	)
	switch len(args) {
	case 0:
		ok, err = s.engine.SplitAtPlayhead("")
	case 1:
		ok, err = s.engine.SplitAtPlayhead(args[0])
	default:
		m, perr := parseTime(args[1])
		if perr != nil {
			return perr
		}
		ok, err = s.engine.SplitClip(args[0], m)
	}
	if err != nil {
		return err
	}
	s.report(ok, "split", "too close to a clip edge, nothing split")
	return nil
}

func (s *Shell) drag(args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("%w: drag <id> <left|right|move> <from> <to> [track]", ErrUsage)
	}
	edge := timeline.Edge(args[1])
	from, err := parseTime(args[2])
	if err != nil {
		return err
	}
	to, err := parseTime(args[3])
	if err != nil {
		return err
	}
	sample := timeline.PointerSample{Time: to}
	if len(args) > 4 {
		sample.TrackID = args[4]
	}

	if err := s.engine.BeginDrag(args[0], edge, from); err != nil {
		return err
	}
	defer s.engine.EndDrag()

	v := s.viewport
	v.Duration = s.engine.Duration()
	s.report(s.engine.DragTo(sample, v.SnapThreshold()), "dragged", "rejected, clip unchanged")
	return nil
}

func (s *Shell) key(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: key <id> <prop> <value>", ErrUsage)
	}
	v, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[2])
	}
	added, err := s.engine.ToggleKeyframe(args[0], args[1], v)
	if err != nil {
		return err
	}
	s.report(added, "keyframe added", "keyframe removed")
	return nil
}

func (s *Shell) filter(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: filter <id> <name> <value|none>", ErrUsage)
	}
	c, ok := s.engine.Clip(args[0])
	if !ok {
		return fmt.Errorf("%s: %w", args[0], clips.ErrClipNotFound)
	}
	fs := c.Filters.Clone()
	if args[2] == clips.NoFilter {
		fs = fs.Delete(args[1])
	} else {
		fs = fs.Set(args[1], args[2])
	}
	return s.engine.UpdateClip(c.ID, clips.Changes{Filters: &fs})
}

func (s *Shell) volume(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: volume <id> <value>", ErrUsage)
	}
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil || v < 0 {
		return fmt.Errorf("invalid volume %q", args[1])
	}
	c, ok := s.engine.Clip(args[0])
	if !ok {
		return fmt.Errorf("%s: %w", args[0], clips.ErrClipNotFound)
	}

	var payload clips.Payload
	switch p := c.Payload.(type) {
	case *clips.VideoPayload:
		next := *p
		next.Volume = clips.Ptr(v)
		payload = &next
	case *clips.AudioPayload:
		payload = &clips.AudioPayload{Volume: clips.Ptr(v)}
	default:
		return fmt.Errorf("%s clips have no volume", c.Kind())
	}
	return s.engine.UpdateClip(c.ID, clips.Changes{Payload: payload})
}

func (s *Shell) seek(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: seek <time>", ErrUsage)
	}
	t, err := parseTime(args[0])
	if err != nil {
		return err
	}
	s.clock.Seek(t, s.engine.Duration())
	fmt.Fprintf(s.out, "playhead %s\n", timing.FormatSeconds(s.engine.Seek(t)))
	return nil
}

func (s *Shell) zoom(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: zoom <factor>", ErrUsage)
	}
	z, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid zoom %q", args[0])
	}
	s.viewport = s.viewport.WithZoom(z)
	fmt.Fprintf(s.out, "zoom %s\n", timing.FormatSeconds(s.viewport.Zoom))
	return nil
}

func (s *Shell) wheel(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: wheel <delta>", ErrUsage)
	}
	d, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid delta %q", args[0])
	}
	s.viewport = s.viewport.Wheel(d)
	fmt.Fprintf(s.out, "zoom %s\n", timing.FormatSeconds(s.viewport.Zoom))
	return nil
}

func (s *Shell) pan(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("%w: pan <x> [to-x]", ErrUsage)
	}
	from, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid x %q", args[0])
	}
	to := from
	if len(args) == 2 {
		if to, err = strconv.ParseFloat(args[1], 64); err != nil {
			return fmt.Errorf("invalid x %q", args[1])
		}
	}

	v := s.viewport
	v.Duration = s.engine.Duration()

	state := timeline.BeginPan(from, v)
	state, v.ScrollLeft = timeline.PanTo(state, to, v)
	res := timeline.EndPan(state, to, v)
	s.viewport.ScrollLeft = res.ScrollLeft

	if res.Seek {
		s.clock.Seek(res.SeekTime, v.Duration)
		fmt.Fprintf(s.out, "playhead %s\n", timing.FormatSeconds(s.engine.Seek(res.SeekTime)))
		return nil
	}
	fmt.Fprintf(s.out, "scroll %s\n", timing.FormatSeconds(s.viewport.ScrollLeft))
	return nil
}

func (s *Shell) eval(args []string) error {
	t := s.engine.Playhead()
	if len(args) > 0 {
		v, err := parseTime(args[0])
		if err != nil {
			return err
		}
		t = v
	}
	PrintFrame(s.out, evaluator.Evaluate(s.engine.Snapshot(), t))
	return nil
}

// PrintFrame writes a readable summary of f
func PrintFrame(w io.Writer, f evaluator.Frame) {
	fmt.Fprintf(w, "t=%s\n", timing.FormatSeconds(f.Time))
	if top, ok := f.Top(); ok {
		fmt.Fprintf(w, "  top: %s\n", top.ClipID)
	}
	for _, l := range f.Layers {
		fmt.Fprintf(w, "  layer %-12s %-5s src %s opacity %s scale %s filter %s\n",
			l.ClipID, l.Kind, timing.FormatSeconds(l.SourceTime),
			timing.FormatSeconds(l.Opacity), timing.FormatSeconds(l.Scale), l.Filter)
	}
	for _, tl := range f.Text {
		fmt.Fprintf(w, "  text  %-12s %q opacity %s\n", tl.ClipID, tl.Content, timing.FormatSeconds(tl.Opacity))
	}
	for _, v := range f.Audio {
		fmt.Fprintf(w, "  audio %-12s src %s volume %s\n", v.ClipID, timing.FormatSeconds(v.SourceTime), timing.FormatSeconds(v.Volume))
	}
}

func (s *Shell) graph() error {
	g, err := render.NewCompiler(render.Options{}).Compile(s.engine.Snapshot(), s.settings)
	if err != nil {
		return err
	}
	for _, f := range g.Filters {
		fmt.Fprintln(s.out, f)
	}
	for _, w := range g.Warnings {
		fmt.Fprintf(s.out, "warning: %s\n", w)
	}
	return nil
}

func (s *Shell) save(args []string) error {
	path := s.path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("%w: save <path>", ErrUsage)
	}
	out := s.store.SaveTo(path, s.engine.Snapshot())
	if !out.Success {
		return errors.New(out.Message)
	}
	s.path = out.Path
	fmt.Fprintf(s.out, "saved %s\n", out.Path)
	return nil
}

func (s *Shell) load(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: load <path>", ErrUsage)
	}
	out := s.store.LoadFrom(args[0])
	if !out.Success {
		return errors.New(out.Message)
	}
	s.clock.Stop()
	s.engine.Load(out.Document.Project())
	s.path = out.Path
	fmt.Fprintf(s.out, "loaded %s (%d clips)\n", out.Path, len(s.engine.Clips()))
	return nil
}

func (s *Shell) export(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: export <output> [resolution] [format] [fps]", ErrUsage)
	}
	if s.pipeline == nil {
		return errors.New("export is not available without ffmpeg")
	}

	settings := s.settings
	if len(args) > 1 {
		settings.Resolution = args[1]
	}
	if len(args) > 2 {
		settings.Format = args[2]
	}
	if len(args) > 3 {
		fps, err := strconv.ParseFloat(args[3], 64)
		if err != nil {
			return fmt.Errorf("invalid frame rate %q", args[3])
		}
		settings.FrameRate = fps
	}

	res := s.pipeline.Export(context.Background(), s.engine.Snapshot(), pipeline.ExportOptions{
		Settings: settings,
		Output:   args[0],
	})
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintf(s.out, "exported %s in %s\n", res.Path, res.Took.Round(10*time.Millisecond))
	return nil
}

// parseTime accepts seconds or HH:MM:SS timestamps
func parseTime(s string) (float64, error) {
	d, err := util.ParseTimestamp(s)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}
