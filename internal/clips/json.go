package clips

import (
	"encoding/json"
	"fmt"
)

// wireClip is the flat document shape of a clip
type wireClip struct {
	ID             string      `json:"id"`
	Src            string      `json:"src"`
	Type           Kind        `json:"type"`
	Start          float64     `json:"start"`
	End            float64     `json:"end"`
	SourceDuration *float64    `json:"sourceDuration,omitempty"`
	Offset         float64     `json:"offset"`
	TrackID        string      `json:"trackId"`
	Style          *Style      `json:"style,omitempty"`
	Content        *string     `json:"content,omitempty"`
	Effect         string      `json:"effect,omitempty"`
	Filters        Filters     `json:"filters,omitempty"`
	Volume         *float64    `json:"volume,omitempty"`
	HasAudio       *bool       `json:"hasAudio,omitempty"`
	Keyframes      Keyframes   `json:"keyframes,omitempty"`
	Transition     *Transition `json:"transition,omitempty"`
	Animation      *Animation  `json:"animation,omitempty"`
	Thumbnails     []string    `json:"thumbnails,omitempty"`
}

func (c Clip) MarshalJSON() ([]byte, error) {
	w := wireClip{
		ID:             c.ID,
		Src:            c.Source,
		Type:           c.Kind(),
		Start:          c.SourceRange.Start,
		End:            c.SourceRange.End,
		SourceDuration: c.SourceDuration,
		Offset:         c.Offset,
		TrackID:        c.TrackID,
		Effect:         c.Effect,
		Filters:        c.Filters,
		Keyframes:      c.Keyframes,
		Transition:     c.Transition,
		Animation:      c.Animation,
	}
	if c.Style != (Style{}) {
		s := c.Style
		w.Style = &s
	}

	switch p := c.Payload.(type) {
	case *VideoPayload:
		w.Thumbnails = p.Thumbnails
		w.Volume = p.Volume
		w.HasAudio = p.HasAudio
	case *AudioPayload:
		w.Volume = p.Volume
	case *TextPayload:
		content := p.Content
		w.Content = &content
	}

	return json.Marshal(w)
}

func (c *Clip) UnmarshalJSON(data []byte) error {
	var w wireClip
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type == "" {
		w.Type = KindVideo
	}
	if !w.Type.Valid() {
		return fmt.Errorf("clip %s: unknown type %q", w.ID, w.Type)
	}

	out := Clip{
		ID:             w.ID,
		Source:         w.Src,
		SourceDuration: w.SourceDuration,
		Offset:         w.Offset,
		TrackID:        w.TrackID,
		Effect:         w.Effect,
		Filters:        w.Filters,
		Keyframes:      w.Keyframes,
		Transition:     w.Transition,
		Animation:      w.Animation,
	}
	out.SourceRange.Start = w.Start
	out.SourceRange.End = w.End
	if w.Style != nil {
		out.Style = *w.Style
	}

	switch w.Type {
	case KindVideo:
		out.Payload = &VideoPayload{Thumbnails: w.Thumbnails, Volume: w.Volume, HasAudio: w.HasAudio}
	case KindAudio:
		out.Payload = &AudioPayload{Volume: w.Volume}
	case KindImage:
		out.Payload = &ImagePayload{}
	case KindText:
		p := &TextPayload{}
		if w.Content != nil {
			p.Content = *w.Content
		}
		out.Payload = p
	}

	*c = out
	return nil
}
