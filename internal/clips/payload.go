package clips

// DefaultText is the content of a freshly added text clip
const DefaultText = "New Text"

// Payload holds the fields that only make sense for one clip kind
type Payload interface {
	Kind() Kind
	clone() Payload
}

// VideoPayload carries the thumbnail strip and audio properties of a video clip.
// HasAudio stays nil until probing tells us whether the source has a sound track.
type VideoPayload struct {
	Thumbnails []string
	Volume     *float64
	HasAudio   *bool
}

func (p *VideoPayload) Kind() Kind { return KindVideo }

func (p *VideoPayload) clone() Payload {
	out := &VideoPayload{}
	if p.Thumbnails != nil {
		out.Thumbnails = append([]string(nil), p.Thumbnails...)
	}
	if p.Volume != nil {
		out.Volume = Ptr(*p.Volume)
	}
	if p.HasAudio != nil {
		out.HasAudio = Ptr(*p.HasAudio)
	}
	return out
}

// AudioPayload carries the gain of an audio clip
type AudioPayload struct {
	Volume *float64
}

func (p *AudioPayload) Kind() Kind { return KindAudio }

func (p *AudioPayload) clone() Payload {
	out := &AudioPayload{}
	if p.Volume != nil {
		out.Volume = Ptr(*p.Volume)
	}
	return out
}

// ImagePayload marks a still image clip
type ImagePayload struct{}

func (p *ImagePayload) Kind() Kind { return KindImage }

func (p *ImagePayload) clone() Payload { return &ImagePayload{} }

// TextPayload carries the rendered string of a text clip
type TextPayload struct {
	Content string
}

func (p *TextPayload) Kind() Kind { return KindText }

func (p *TextPayload) clone() Payload { return &TextPayload{Content: p.Content} }

// PayloadFor returns an empty payload of the given kind
func PayloadFor(k Kind) Payload {
	switch k {
	case KindAudio:
		return &AudioPayload{}
	case KindImage:
		return &ImagePayload{}
	case KindText:
		return &TextPayload{}
	default:
		return &VideoPayload{}
	}
}
