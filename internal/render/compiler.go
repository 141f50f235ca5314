// Package render compiles a composition into a filter graph and argument
// vector for ffmpeg. The same input always yields the same graph.
package render

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/internal/evaluator"
	"github.com/kikiluvv/vibecut/internal/ffmpeg"
	"github.com/kikiluvv/vibecut/internal/timing"
)

const (
	baseLabel     = "[v_base]"
	audioOutLabel = "[a_out]"

	// DefaultFontSize applies to text clips without a font size
	DefaultFontSize = "24"

	// DefaultFontColor applies to text clips without a color
	DefaultFontColor = "white"
)

// Options tune the encoder side of the graph
type Options struct {
	FontFile string
	Preset   string
	CRF      int
}

// Input is one engine input with the options that precede its -i
type Input struct {
	ClipID  string
	Path    string
	Options []string
}

// Graph is a compiled export job
type Graph struct {
	Inputs    []Input
	Filters   []string
	VideoOut  string
	AudioOut  string
	Width     int
	Height    int
	Duration  float64
	FrameRate float64
	Format    string
	Warnings  []string

	opts Options
}

// FilterComplex joins the filter chains into one -filter_complex value
func (g *Graph) FilterComplex() string {
	return strings.Join(g.Filters, ";")
}

// Args returns the engine arguments that render the graph into output
func (g *Graph) Args(output string) []string {
	var args []string
	for _, in := range g.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}

	args = append(args,
		"-filter_complex", g.FilterComplex(),
		"-map", g.VideoOut,
		"-map", g.AudioOut,
		"-r", num(g.FrameRate),
	)
	args = append(args, codecArgs(g.Format, g.opts)...)
	return append(args, output)
}

func codecArgs(format string, opts Options) []string {
	switch format {
	case "webm":
		crf := opts.CRF
		if crf == 0 {
			crf = 32
		}
		return []string{"-c:v", "libvpx-vp9", "-b:v", "0", "-crf", fmt.Sprint(crf), "-pix_fmt", "yuv420p", "-c:a", "libopus"}
	default:
		crf := opts.CRF
		if crf == 0 {
			crf = 23
		}
		preset := opts.Preset
		if preset == "" {
			preset = "medium"
		}
		return []string{"-c:v", "libx264", "-preset", preset, "-crf", fmt.Sprint(crf), "-pix_fmt", "yuv420p", "-c:a", "aac"}
	}
}

// DefaultFontFile returns a font that exists on a stock install of the platform
func DefaultFontFile() string {
	switch runtime.GOOS {
	case "windows":
		return "C:/Windows/Fonts/arial.ttf"
	case "darwin":
		return "/System/Library/Fonts/Helvetica.ttc"
	default:
		return "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	}
}

// Compiler turns project snapshots into graphs
type Compiler struct {
	opts Options
}

// NewCompiler creates a compiler
func NewCompiler(opts Options) *Compiler {
	if opts.FontFile == "" {
		opts.FontFile = DefaultFontFile()
	}
	return &Compiler{opts: opts}
}

// Compile builds the export graph for p. Picture clips are laid over a solid
// base in evaluator.LayerOrder, text overlays follow in list order, and every
// audible clip is delayed to its offset and mixed.
func (c *Compiler) Compile(p *clips.Project, s Settings) (*Graph, error) {
	s = s.WithDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	w, h, _ := ParseResolution(s.Resolution)

	var visual, audio, text []clips.Clip
	for _, cl := range p.Clips {
		switch cl.Kind() {
		case clips.KindVideo, clips.KindImage:
			visual = append(visual, cl)
		case clips.KindAudio:
			audio = append(audio, cl)
		case clips.KindText:
			text = append(text, cl)
		}
		if cl.Kind() != clips.KindText && cl.Source == "" {
			return nil, fmt.Errorf("clip %s has no source", cl.ID)
		}
		if !cl.SourceRange.Valid() {
			return nil, fmt.Errorf("clip %s: %w", cl.ID, clips.ErrInvalidRange)
		}
	}
	visual = evaluator.LayerOrder(p, visual)

	g := &Graph{
		Width:     w,
		Height:    h,
		Duration:  p.Duration(),
		FrameRate: s.FrameRate,
		Format:    s.Format,
		AudioOut:  audioOutLabel,
		opts:      c.opts,
	}

	// inputs: pictures in layer order, then audio clips
	inputIdx := make(map[string]int, len(visual)+len(audio))
	for _, cl := range visual {
		inputIdx[cl.ID] = len(g.Inputs)
		g.Inputs = append(g.Inputs, inputFor(cl))
	}
	for _, cl := range audio {
		inputIdx[cl.ID] = len(g.Inputs)
		g.Inputs = append(g.Inputs, inputFor(cl))
	}

	g.Filters = append(g.Filters, fmt.Sprintf("color=c=black:s=%dx%d:d=%s%s", w, h, num(g.Duration), baseLabel))
	last := baseLabel

	for i, cl := range visual {
		in := fmt.Sprintf("[v_in_%d]", i)
		out := fmt.Sprintf("[v_layer_%d]", i)

		chain, warnings := c.layerChain(cl)
		g.Warnings = append(g.Warnings, warnings...)
		g.Filters = append(g.Filters, fmt.Sprintf("[%d:v]%s%s", inputIdx[cl.ID], chain, in))

		x, y := "(W-w)/2", "(H-h)/2"
		if kfs := cl.Keyframes.Sorted(clips.PropX); len(kfs) > 0 {
			x = fmt.Sprintf("'(W-w)/2+(%s)'", piecewise(kfs, clipTime(cl, "t")))
		}
		if kfs := cl.Keyframes.Sorted(clips.PropY); len(kfs) > 0 {
			y = fmt.Sprintf("'(H-h)/2+(%s)'", piecewise(kfs, clipTime(cl, "t")))
		}

		g.Filters = append(g.Filters, fmt.Sprintf("%s%soverlay=x=%s:y=%s:enable='%s':eof_action=pass%s",
			last, in, x, y, gate(cl.Offset, cl.End()), out))
		last = out
	}

	for i, cl := range text {
		out := fmt.Sprintf("[v_text_%d]", i)
		g.Filters = append(g.Filters, last+c.drawtext(cl)+out)
		last = out
	}
	g.VideoOut = last

	var mixInputs []string
	for _, cl := range visual {
		if cl.Kind() != clips.KindVideo || !cl.Audible() {
			continue
		}
		label := fmt.Sprintf("[a_v_%d]", inputIdx[cl.ID])
		g.Filters = append(g.Filters, audioChain(cl, inputIdx[cl.ID], label))
		mixInputs = append(mixInputs, label)
	}
	for _, cl := range audio {
		label := fmt.Sprintf("[a_a_%d]", inputIdx[cl.ID])
		g.Filters = append(g.Filters, audioChain(cl, inputIdx[cl.ID], label))
		mixInputs = append(mixInputs, label)
	}

	if len(mixInputs) > 0 {
		// duration=first follows the first stream, not the longest one
		g.Filters = append(g.Filters, fmt.Sprintf("%samix=inputs=%d:duration=first:dropout_transition=2%s",
			strings.Join(mixInputs, ""), len(mixInputs), audioOutLabel))
	} else {
		g.Filters = append(g.Filters, fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=44100:d=%s%s",
			num(g.Duration), audioOutLabel))
	}

	return g, nil
}

func inputFor(cl clips.Clip) Input {
	in := Input{ClipID: cl.ID, Path: cl.Source}
	if cl.Kind() == clips.KindImage {
		in.Options = []string{"-loop", "1", "-t", num(cl.Duration())}
		return in
	}
	if cl.SourceRange.Start > 0 {
		in.Options = append(in.Options, "-ss", num(cl.SourceRange.Start))
	}
	in.Options = append(in.Options, "-t", num(cl.Duration()))
	return in
}

// clipTime rewrites the engine time variable into time since the clip's offset
func clipTime(cl clips.Clip, v string) string {
	if cl.Offset == 0 {
		return v
	}
	return fmt.Sprintf("(%s-%s)", v, num(cl.Offset))
}

func (c *Compiler) layerChain(cl clips.Clip) (string, []string) {
	chain := ffmpeg.NewFilterBuilder().Custom(fmt.Sprintf("setpts=PTS-STARTPTS+%s/TB", num(cl.Offset)))

	fs := cl.Filters
	if len(fs) == 0 && cl.Effect != "" {
		fs = ParseFilterExpression(cl.Effect)
	}
	css, cssOpacity, warnings := translateFilters(fs)
	for _, f := range css {
		chain.Custom(f)
	}

	if kfs := cl.Keyframes.Sorted(clips.PropScale); len(kfs) > 0 {
		e := piecewise(kfs, clipTime(cl, "t"))
		chain.Custom(fmt.Sprintf("scale=w='iw*(%s)':h='ih*(%s)':eval=frame", e, e))
	} else if s := cl.Style.ScaleOr(1); s != 1 {
		chain.Custom(fmt.Sprintf("scale=iw*%s:ih*%s", num(s), num(s)))
	}

	if kfs := cl.Keyframes.Sorted(clips.PropOpacity); len(kfs) > 0 {
		e := piecewise(kfs, clipTime(cl, "T"))
		if cssOpacity != 1 {
			e = fmt.Sprintf("%s*(%s)", num(cssOpacity), e)
		}
		chain.Custom("format=rgba").
			Custom(fmt.Sprintf("geq=r='r(X,Y)':g='g(X,Y)':b='b(X,Y)':a='alpha(X,Y)*(%s)'", e))
	} else if o := timing.Clamp(cl.Style.OpacityOr(1)*cssOpacity, 0, 1); o < 1 {
		chain.Custom("format=rgba").Custom("colorchannelmixer=aa=" + num(o))
	}

	return chain.Build(), warnings
}

func (c *Compiler) drawtext(cl clips.Clip) string {
	st := cl.Style

	size := DefaultFontSize
	if v, ok := timing.ParseLength(st.FontSize); ok && v > 0 {
		size = num(v)
	}
	color := DefaultFontColor
	if st.Color != "" {
		color = st.Color
	}

	parts := []string{
		"text=" + quoteText(cl.Content()),
		"fontfile=" + quoteOption(c.opts.FontFile),
		"fontsize=" + size,
		"fontcolor=" + color,
		"x=" + position(st.Left, "(w-text_w)/2"),
		"y=" + position(st.Top, "(h-text_h)/2"),
	}
	if o := st.OpacityOr(1); o < 1 {
		parts = append(parts, "alpha="+num(timing.Clamp(o, 0, 1)))
	}
	parts = append(parts, fmt.Sprintf("enable='%s'", gate(cl.Offset, cl.End())))

	return "drawtext=" + strings.Join(parts, ":")
}

func audioChain(cl clips.Clip, idx int, label string) string {
	chain := ffmpeg.NewFilterBuilder()
	if v := cl.Volume(); v != 1 {
		chain.Custom("volume=" + num(v))
	}
	ms := timing.Millis(cl.Offset)
	chain.Custom(fmt.Sprintf("adelay=%d|%d", ms, ms))
	return fmt.Sprintf("[%d:a]%s%s", idx, chain.Build(), label)
}
