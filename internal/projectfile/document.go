// Package projectfile reads and writes the JSON project document.
package projectfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kikiluvv/vibecut/internal/clips"
)

// Extension is the project file extension
const Extension = ".vibe"

// ErrUnrecognizedDocument is returned for JSON that is not a project
var ErrUnrecognizedDocument = errors.New("unrecognized project document")

var validate = validator.New()

// Timeline is the saved composition
type Timeline struct {
	Duration float64       `json:"duration" validate:"gte=0"`
	Clips    []clips.Clip  `json:"clips"`
	Tracks   []clips.Track `json:"tracks,omitempty" validate:"dive"`
}

// Document is the on-disk project
type Document struct {
	Version      string    `json:"version" validate:"required"`
	Name         string    `json:"name"`
	Timeline     *Timeline `json:"timeline" validate:"required"`
	LastModified int64     `json:"lastModified"`
}

// FromProject builds a document for p stamped with now
func FromProject(p *clips.Project, now time.Time) Document {
	snap := p.Clone()
	version := snap.Version
	if version == "" {
		version = clips.FormatVersion
	}
	return Document{
		Version: version,
		Name:    snap.Name,
		Timeline: &Timeline{
			Duration: snap.Duration(),
			Clips:    snap.Clips,
			Tracks:   snap.Tracks,
		},
		LastModified: now.UnixMilli(),
	}
}

// Project converts the document into a project. Documents written before
// tracks were saved get the default lanes.
func (d Document) Project() *clips.Project {
	p := clips.NewProject(d.Name)
	if d.Version != "" {
		p.Version = d.Version
	}
	if d.Timeline == nil {
		return p
	}
	if len(d.Timeline.Tracks) > 0 {
		p.Tracks = append([]clips.Track(nil), d.Timeline.Tracks...)
	}
	if d.Timeline.Clips != nil {
		p.Clips = clips.CloneAll(d.Timeline.Clips)
	}
	// clips saved before lanes existed go to the default lane for their kind
	for i := range p.Clips {
		if p.Clips[i].TrackID != "" {
			continue
		}
		if t, ok := p.DefaultTrackFor(p.Clips[i].Kind()); ok {
			p.Clips[i].TrackID = t.ID
		}
	}
	return p
}

// Encode writes d as indented JSON
func Encode(d Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Decode parses a project document. Anything without a timeline object is
// rejected with ErrUnrecognizedDocument.
func Decode(data []byte) (Document, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnrecognizedDocument, err)
	}
	raw, ok := shape["timeline"]
	if !ok || !isObject(raw) {
		return Document{}, fmt.Errorf("%w: missing timeline", ErrUnrecognizedDocument)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse project: %w", err)
	}
	// older files carry no version
	if doc.Version == "" {
		doc.Version = clips.FormatVersion
	}

	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Document{}, fmt.Errorf("invalid project: %s", strings.Join(formatErrors(verrs), "; "))
		}
		return Document{}, err
	}

	if err := doc.Project().Validate(); err != nil {
		return Document{}, fmt.Errorf("invalid project: %w", err)
	}
	return doc, nil
}

func isObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "{")
}

func formatErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, fmt.Sprintf("field '%s' failed on the '%s' tag", err.Namespace(), err.Tag()))
	}
	return out
}
