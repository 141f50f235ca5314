package projectfile

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/vibecut/internal/clips"
	"github.com/kikiluvv/vibecut/pkg/util"
)

// ErrCancelled is returned by a Dialog when the user backs out
var ErrCancelled = errors.New("cancelled")

// Dialog asks the user where to save or what to open
type Dialog interface {
	SavePath(defaultName string) (string, error)
	OpenPath() (string, error)
}

// FixedDialog always answers with Path; an empty Path is a cancel
type FixedDialog struct {
	Path string
}

func (d FixedDialog) SavePath(string) (string, error) {
	if d.Path == "" {
		return "", ErrCancelled
	}
	return d.Path, nil
}

func (d FixedDialog) OpenPath() (string, error) {
	return d.SavePath("")
}

// Outcome is the result of a save or load. A cancelled dialog is not a
// failure and carries no message.
type Outcome struct {
	Success   bool
	Cancelled bool
	Path      string
	Message   string
	Document  *Document
}

// Store saves and loads project documents
type Store struct {
	logger zerolog.Logger
	dialog Dialog
	now    func() time.Time
}

// NewStore creates a store that asks dialog for paths
func NewStore(logger zerolog.Logger, dialog Dialog) *Store {
	return &Store{
		logger: logger.With().Str("component", "projectfile").Logger(),
		dialog: dialog,
		now:    time.Now,
	}
}

// Save asks for a destination and writes p there
func (s *Store) Save(p *clips.Project) Outcome {
	path, err := s.dialog.SavePath("project" + Extension)
	if errors.Is(err, ErrCancelled) {
		return Outcome{Cancelled: true}
	}
	if err != nil {
		return Outcome{Message: err.Error()}
	}
	return s.SaveTo(path, p)
}

// SaveTo writes p to path
func (s *Store) SaveTo(path string, p *clips.Project) Outcome {
	doc := FromProject(p, s.now())
	data, err := Encode(doc)
	if err != nil {
		return s.fail("save", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := util.EnsureDir(dir); err != nil {
			return s.fail("save", path, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return s.fail("save", path, err)
	}

	s.logger.Info().Str("path", path).Int("clips", len(p.Clips)).Msg("project saved")
	return Outcome{Success: true, Path: path, Document: &doc}
}

// Load asks for a file and reads it
func (s *Store) Load() Outcome {
	path, err := s.dialog.OpenPath()
	if errors.Is(err, ErrCancelled) {
		return Outcome{Cancelled: true}
	}
	if err != nil {
		return Outcome{Message: err.Error()}
	}
	return s.LoadFrom(path)
}

// LoadFrom reads the project at path
func (s *Store) LoadFrom(path string) Outcome {
	data, err := os.ReadFile(path)
	if err != nil {
		return s.fail("load", path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return s.fail("load", path, err)
	}

	s.logger.Info().Str("path", path).Int("clips", len(doc.Timeline.Clips)).Msg("project loaded")
	return Outcome{Success: true, Path: path, Document: &doc}
}

func (s *Store) fail(op, path string, err error) Outcome {
	s.logger.Error().Err(err).Str("path", path).Msgf("%s failed", op)
	return Outcome{Path: path, Message: err.Error()}
}
